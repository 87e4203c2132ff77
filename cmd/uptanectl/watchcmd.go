package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/uptane-targets/cache"
	"github.com/tos-network/uptane-targets/config"
	"github.com/tos-network/uptane-targets/log"
	"github.com/tos-network/uptane-targets/telemetry"
	"github.com/tos-network/uptane-targets/watch"
)

const defaultSeenCacheBytes = 4 << 20

var commandWatch = &cli.Command{
	Name:   "watch",
	Usage:  "re-verify the manifest every time it changes on disk",
	Flags:  []cli.Flag{configFlag, ecuFlag, verifyPassphraseFileFlag},
	Action: runWatch,
}

func runWatch(ctx *cli.Context) error {
	cfgFile, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	passphrase, err := resolvePassphrase(ctx)
	if err != nil {
		return err
	}
	ecus, err := selectECUs(cfgFile.ECUs, ctx.StringSlice("ecu"))
	if err != nil {
		return err
	}

	seenBytes := cfgFile.SeenCacheBytes
	if seenBytes <= 0 {
		seenBytes = defaultSeenCacheBytes
	}
	seen := cache.NewSeenSet(seenBytes)

	var pub *telemetry.Publisher
	if cfgFile.TelemetryURL != "" {
		pub = telemetry.NewPublisher(cfgFile.TelemetryURL, cfgFile.TelemetryToken, cfgFile.TelemetryOrg, cfgFile.TelemetryBucket)
		defer pub.Close(context.Background())
	}

	w, err := watch.New(cfgFile.ManifestPath)
	if err != nil {
		return err
	}
	defer w.Close()

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return w.Run(runCtx, func(path string) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Root().Error("watch: read manifest failed", "path", path, "err", err)
			return nil
		}
		if seen.Seen(raw) {
			log.Root().Debug("manifest unchanged, skipping", "path", path)
			return nil
		}

		for _, ecu := range ecus {
			start := time.Now()
			res, tc, err := verifyOne(runCtx, path, ecu, passphrase)
			elapsed := time.Since(start)
			if err != nil {
				log.Root().Error("verify failed", "ecu", ecu.Name, "err", err)
				continue
			}
			log.Root().Info("verified", "ecu", ecu.Name, "result", res.String(), "version", tc.Version)
			if pub != nil {
				pub.RecordOutcome(ecu.ECUID, ecu.HardwareID, res.String(), elapsed, res.Success())
			}
		}
		return nil
	})
}

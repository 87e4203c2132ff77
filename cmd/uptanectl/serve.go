package main

import (
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/uptane-targets/config"
	"github.com/tos-network/uptane-targets/internal/flags"
	"github.com/tos-network/uptane-targets/log"
	"github.com/tos-network/uptane-targets/server"
	"github.com/tos-network/uptane-targets/state"
	"github.com/tos-network/uptane-targets/targets"
	"github.com/tos-network/uptane-targets/telemetry"
)

var listenFlag = &cli.StringFlag{
	Name:     "listen",
	Usage:    "override the listen address from the config",
	Category: flags.ServerCategory,
}

var commandServe = &cli.Command{
	Name:   "serve",
	Usage:  "serve POST /validate and GET /events over HTTP",
	Flags:  []cli.Flag{configFlag, listenFlag, verifyPassphraseFileFlag},
	Action: runServe,
}

func runServe(ctx *cli.Context) error {
	cfgFile, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	addr := cfgFile.ListenAddr
	if a := ctx.String("listen"); a != "" {
		addr = a
	}
	passphrase, err := resolvePassphrase(ctx)
	if err != nil {
		return err
	}

	ecusByECUID := make(map[string]config.ECU, len(cfgFile.ECUs))
	for _, e := range cfgFile.ECUs {
		ecusByECUID[e.ECUID] = e
	}

	srv := server.New(
		func() server.Verifier { return &targets.Context{} },
		func(r *http.Request) (targets.Config, error) {
			ecuID := r.URL.Query().Get("ecu_id")
			ecu, ok := ecusByECUID[ecuID]
			if !ok {
				return targets.Config{}, httpBadRequest("unknown ecu_id")
			}
			st, err := state.Open(ecu.StatePath)
			if err != nil {
				return targets.Config{}, err
			}
			defer st.Close()
			prev, err := st.VersionPrev(ecu.ECUID, ecu.HardwareID)
			if err != nil {
				return targets.Config{}, err
			}
			keys := make([]targets.Key, 0, len(ecu.Keys))
			for _, ke := range ecu.Keys {
				k, err := loadVerifyKey(ke, passphrase)
				if err != nil {
					return targets.Config{}, err
				}
				keys = append(keys, k)
			}
			return targets.Config{
				Keys:        keys,
				Threshold:   ecu.Threshold,
				ECUID:       []byte(ecu.ECUID),
				HardwareID:  []byte(ecu.HardwareID),
				VersionPrev: uint32(prev),
				Now:         nowTime(),
			}, nil
		},
	)

	if cfgFile.TelemetryURL != "" {
		pub := telemetry.NewPublisher(cfgFile.TelemetryURL, cfgFile.TelemetryToken, cfgFile.TelemetryOrg, cfgFile.TelemetryBucket)
		defer pub.Close(ctx.Context)
		srv.SetRecorder(pub)
	}

	log.Root().Info("serving", "addr", addr)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return httpSrv.ListenAndServe()
}

// httpBadRequest is used by the serve cfgFor closure to report an
// unknown ecu_id; server.handleValidate answers every cfgFor error with
// 400 Bad Request.
type httpError string

func httpBadRequest(msg string) error { return httpError(msg) }
func (e httpError) Error() string     { return string(e) }

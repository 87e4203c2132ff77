package main

import (
	"context"
	stded25519 "crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	mapset "github.com/deckarep/golang-set"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	blst "github.com/supranational/blst/bindings/go"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/uptane-targets/config"
	"github.com/tos-network/uptane-targets/crypto/blsverify"
	"github.com/tos-network/uptane-targets/crypto/ed25519verify"
	"github.com/tos-network/uptane-targets/crypto/minisignverify"
	"github.com/tos-network/uptane-targets/crypto/secp256k1verify"
	"github.com/tos-network/uptane-targets/internal/flags"
	"github.com/tos-network/uptane-targets/keystore"
	"github.com/tos-network/uptane-targets/state"
	"github.com/tos-network/uptane-targets/targets"
	"github.com/tos-network/uptane-targets/transport"
)

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "path to the uptanectl TOML configuration file",
	Required: true,
	Category: flags.VerifyCategory,
}

var manifestFlag = &cli.StringFlag{
	Name:     "manifest",
	Usage:    "override the manifest file path from the config",
	Category: flags.VerifyCategory,
}

var fromFlag = &cli.StringFlag{
	Name:     "from",
	Usage:    "manifest source URI (file://, s3://bucket/key, azblob://url); overrides --manifest and the config's manifest_path",
	Category: flags.VerifyCategory,
}

var ecuFlag = &cli.StringSliceFlag{
	Name:     "ecu",
	Usage:    "verify only these ECU names (repeatable); default is every ECU in the config",
	Category: flags.VerifyCategory,
}

var verifyPassphraseFileFlag = &cli.StringFlag{
	Name:     "passphrase-file",
	Usage:    "file containing the passphrase that unlocks the provisioned trust-anchor keys",
	Category: flags.VerifyCategory,
}

var commandVerify = &cli.Command{
	Name:      "verify",
	Usage:     "verify a director/targets manifest against every configured ECU",
	ArgsUsage: " ",
	Flags:     []cli.Flag{configFlag, manifestFlag, fromFlag, ecuFlag, verifyPassphraseFileFlag},
	Action:    runVerify,
}

func runVerify(ctx *cli.Context) error {
	cfgFile, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	ref := cfgFile.ManifestPath
	if p := ctx.String("manifest"); p != "" {
		ref = p
	}
	if f := ctx.String("from"); f != "" {
		ref = f
	}

	passphrase, err := resolvePassphrase(ctx)
	if err != nil {
		return err
	}

	ecus, err := selectECUs(cfgFile.ECUs, ctx.StringSlice("ecu"))
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ECU", "Result", "Version", "Length"})

	for _, ecu := range ecus {
		res, tc, err := verifyOne(ctx.Context, ref, ecu, passphrase)
		if err != nil {
			return fmt.Errorf("ecu %s: %w", ecu.Name, err)
		}
		line := res.String()
		if res.Success() {
			line = color.GreenString(line)
		} else {
			line = color.RedString(line)
		}
		table.Append([]string{ecu.Name, line, fmt.Sprint(tc.Version), fmt.Sprint(tc.Length)})

		if res.Success() && res != targets.OKNoUpdate {
			st, err := state.Open(ecu.StatePath)
			if err != nil {
				return err
			}
			err = st.Advance(ecu.ECUID, ecu.HardwareID, uint64(tc.Version))
			st.Close()
			if err != nil {
				return err
			}
		}
	}
	table.Render()
	return nil
}

// selectECUs implements SPEC_FULL.md §4.11's gateway mode: a
// repeated --ecu flag narrows the fan-out to a de-duplicated subset
// of the configured identities, preserving config order.
func selectECUs(all []config.ECU, names []string) ([]config.ECU, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := mapset.NewSet()
	for _, n := range names {
		want.Add(n)
	}
	out := make([]config.ECU, 0, want.Cardinality())
	for _, ecu := range all {
		if want.Contains(ecu.Name) {
			out = append(out, ecu)
			want.Remove(ecu.Name)
		}
	}
	if want.Cardinality() > 0 {
		return nil, fmt.Errorf("uptanectl: unknown --ecu name(s): %v", want.ToSlice())
	}
	return out, nil
}

func resolvePassphrase(ctx *cli.Context) (string, error) {
	path := ctx.String("passphrase-file")
	if path == "" {
		return "", nil
	}
	return readPassphraseFile(path)
}

func verifyOne(ctx context.Context, ref string, ecu config.ECU, passphrase string) (targets.Result, *targets.Context, error) {
	src, closeSrc, err := transport.Open(ctx, ref)
	if err != nil {
		return targets.ReadErr, nil, err
	}
	defer closeSrc()

	st, err := state.Open(ecu.StatePath)
	if err != nil {
		return targets.ReadErr, nil, err
	}
	defer st.Close()

	prev, err := st.VersionPrev(ecu.ECUID, ecu.HardwareID)
	if err != nil {
		return targets.ReadErr, nil, err
	}

	keys := make([]targets.Key, 0, len(ecu.Keys))
	for _, ke := range ecu.Keys {
		k, err := loadVerifyKey(ke, passphrase)
		if err != nil {
			return targets.ReadErr, nil, err
		}
		keys = append(keys, k)
	}

	cfg := targets.Config{
		Source:      src,
		Keys:        keys,
		Threshold:   ecu.Threshold,
		ECUID:       []byte(ecu.ECUID),
		HardwareID:  []byte(ecu.HardwareID),
		VersionPrev: uint32(prev),
		Now:         nowTime(),
	}

	var tc targets.Context
	tc.Init(cfg)
	res := tc.Process()
	tc.Release()
	return res, &tc, nil
}

func loadVerifyKey(ke config.KeyEntry, passphrase string) (targets.Key, error) {
	store := keystore.NewStore(".")
	anchor, err := store.Load(ke.File, passphrase)
	if err != nil {
		return targets.Key{}, err
	}

	switch ke.Method {
	case ed25519verify.Method:
		return targets.Key{
			ID:      anchorKeyID(anchor.Public),
			Backend: ed25519verify.NewKey(stded25519.PublicKey(anchor.Public)),
		}, nil
	case secp256k1verify.Method:
		pub, err := btcec.ParsePubKey(anchor.Public)
		if err != nil {
			return targets.Key{}, fmt.Errorf("uptanectl: secp256k1 public key: %w", err)
		}
		return targets.Key{
			ID:      anchorKeyID(anchor.Public),
			Backend: secp256k1verify.NewKey(pub),
		}, nil
	case blsverify.Method:
		pub := new(blst.P1Affine).Uncompress(anchor.Public)
		if pub == nil {
			return targets.Key{}, fmt.Errorf("uptanectl: malformed bls12381 public key in %s", ke.File)
		}
		return targets.Key{
			ID:      anchorKeyID(anchor.Public),
			Backend: blsverify.NewKey(pub),
		}, nil
	case minisignverify.Method:
		k, err := minisignverify.ParseKey(string(anchor.Public))
		if err != nil {
			return targets.Key{}, err
		}
		return targets.Key{
			ID:      anchorKeyID(anchor.Public),
			Backend: k,
		}, nil
	default:
		return targets.Key{}, fmt.Errorf("uptanectl: unsupported key method %q", ke.Method)
	}
}

// anchorKeyID derives a stable KeyIDLen-byte identifier from a public
// key's on-disk encoding via SHA-256. A raw truncate/copy only works
// when the encoding happens to be exactly KeyIDLen bytes (true for
// Ed25519, false for compressed secp256k1, BLS12-381 G1 points, and
// minisign's base64 string), so every method hashes down to size here.
func anchorKeyID(pub []byte) [targets.KeyIDLen]byte {
	return sha256.Sum256(pub)
}

func nowTime() targets.Time {
	t := time.Now().UTC()
	return targets.Time{
		Year:   uint16(t.Year()),
		Month:  uint16(t.Month()),
		Day:    uint16(t.Day()),
		Hour:   uint16(t.Hour()),
		Minute: uint16(t.Minute()),
		Second: uint16(t.Second()),
	}
}

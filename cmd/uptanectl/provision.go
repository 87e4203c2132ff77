package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/uptane-targets/internal/flags"
	"github.com/tos-network/uptane-targets/keystore"
)

var keystoreDirFlag = &cli.StringFlag{
	Name:     "keystore",
	Usage:    "directory to write the new encrypted key file into",
	Value:    "./keystore",
	Category: flags.KeystoreCategory,
}

var passphraseFileFlag = &cli.StringFlag{
	Name:     "passwordfile",
	Usage:    "file containing the passphrase to encrypt the new key with",
	Required: true,
	Category: flags.KeystoreCategory,
}

var commandProvisionKeys = &cli.Command{
	Name:   "provision-keys",
	Usage:  "generate a new Ed25519 trust-anchor key and print its BIP-39 mnemonic",
	Flags:  []cli.Flag{keystoreDirFlag, passphraseFileFlag},
	Action: runProvisionKeys,
}

func runProvisionKeys(ctx *cli.Context) error {
	passphrase, err := readPassphraseFile(ctx.String("passwordfile"))
	if err != nil {
		return err
	}

	anchor, mnemonic, err := keystore.NewMnemonicAnchor()
	if err != nil {
		return err
	}

	store := keystore.NewStore(ctx.String("keystore"))
	if err := store.Save(anchor, passphrase); err != nil {
		return err
	}

	fmt.Printf("key id:   %s\n", anchor.ID)
	fmt.Printf("method:   %s\n", anchor.Method)
	fmt.Printf("mnemonic: %s\n", mnemonic)
	fmt.Println("record the mnemonic somewhere safe; it is not stored on disk.")
	return nil
}

// Package secp256k1verify is the ECDSA/secp256k1 backend for the
// targets.VerifyKey/VerifyContext contract, grounded on the teacher's
// crypto/secp256k1 package and its use of btcsuite/btcd/btcec/v2.
package secp256k1verify

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/tos-network/uptane-targets/targets"
)

const Method = "secp256k1"

// Key binds one compressed or uncompressed secp256k1 public key to the
// "secp256k1" method name. Signatures are DER-encoded ECDSA over the
// SHA-256 digest of the signed region, matching the teacher's
// transaction-signing convention.
type Key struct {
	Public *btcec.PublicKey
}

func NewKey(pub *btcec.PublicKey) *Key {
	return &Key{Public: pub}
}

func (k *Key) Method() string { return Method }

func (k *Key) NewContext(sig []byte) (targets.VerifyContext, error) {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return nil, fmt.Errorf("secp256k1verify: %w", err)
	}
	return &context{key: k.Public, sig: parsed}, nil
}

type context struct {
	key *btcec.PublicKey
	sig *ecdsa.Signature
	h   [32]byte
	sum [32]byte
	buf []byte
}

func (c *context) Feed(p []byte) {
	c.buf = append(c.buf, p...)
}

func (c *context) Result() bool {
	c.sum = sha256.Sum256(c.buf)
	return c.sig.Verify(c.sum[:], c.key)
}

func (c *context) Free() {
	c.buf = nil
}

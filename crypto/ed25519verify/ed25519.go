// Package ed25519verify is the software Ed25519 backend for the
// targets.VerifyKey/VerifyContext contract, grounded on the teacher's
// crypto/ed25519 package (a thin re-export of the standard library
// types — see TEACHER.txt).
package ed25519verify

import (
	stded25519 "crypto/ed25519"
	"fmt"

	"github.com/tos-network/uptane-targets/targets"
)

const Method = "ed25519"

// Key binds one Ed25519 public key to the "ed25519" method name.
type Key struct {
	Public stded25519.PublicKey
}

func NewKey(pub stded25519.PublicKey) *Key {
	return &Key{Public: pub}
}

func (k *Key) Method() string { return Method }

func (k *Key) NewContext(sig []byte) (targets.VerifyContext, error) {
	if len(sig) != stded25519.SignatureSize {
		return nil, fmt.Errorf("ed25519verify: signature must be %d bytes, got %d", stded25519.SignatureSize, len(sig))
	}
	return &context{key: k.Public, sig: append([]byte(nil), sig...)}, nil
}

// context is append-only: Feed accumulates the tee'd signed-region
// bytes, Result runs the single verification pass once, on demand.
type context struct {
	key stded25519.PublicKey
	sig []byte
	buf []byte
}

func (c *context) Feed(p []byte) {
	c.buf = append(c.buf, p...)
}

func (c *context) Result() bool {
	return stded25519.Verify(c.key, c.buf, c.sig)
}

func (c *context) Free() {
	c.buf = nil
}

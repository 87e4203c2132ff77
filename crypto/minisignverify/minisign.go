// Package minisignverify wraps github.com/jedisct1/go-minisign so
// minisign-signed manifests verify through the same targets.VerifyKey
// contract as the other three backends. SPEC_FULL.md §4.5 lists
// "minisign" as the lightweight Ed25519-based wire format some
// embedded directors use for out-of-band key distribution; its
// whole-message, non-streaming design means context buffers the tee'd
// bytes and only verifies once, in Result, rather than incrementally.
package minisignverify

import (
	"fmt"

	"github.com/jedisct1/go-minisign"

	"github.com/tos-network/uptane-targets/targets"
)

const Method = "minisign"

// Key holds a parsed minisign public key.
type Key struct {
	Public minisign.PublicKey
}

func ParseKey(encoded string) (*Key, error) {
	pub, err := minisign.NewPublicKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("minisignverify: %w", err)
	}
	return &Key{Public: pub}, nil
}

func (k *Key) Method() string { return Method }

// NewContext buffers the whole message, since minisign verifies
// against a detached signature in one call rather than incrementally.
func (k *Key) NewContext(sig []byte) (targets.VerifyContext, error) {
	parsed, err := minisign.DecodeSignature(string(sig))
	if err != nil {
		return nil, fmt.Errorf("minisignverify: %w", err)
	}
	return &context{key: k.Public, sig: parsed}, nil
}

type context struct {
	key minisign.PublicKey
	sig minisign.Signature
	buf []byte
}

func (c *context) Feed(p []byte) {
	c.buf = append(c.buf, p...)
}

func (c *context) Result() bool {
	ok, err := c.key.Verify(c.buf, c.sig)
	return err == nil && ok
}

func (c *context) Free() {
	c.buf = nil
}

// VerifyBundle checks a detached minisign signature over a file's
// entire contents in one shot, outside the streaming manifest path.
// No package in this repository calls it.
func VerifyBundle(pub minisign.PublicKey, data []byte, sig minisign.Signature) bool {
	ok, err := pub.Verify(data, sig)
	return err == nil && ok
}

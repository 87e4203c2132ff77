// Package blsverify is the BLS12-381 backend for the
// targets.VerifyKey/VerifyContext contract, built on
// github.com/supranational/blst. It adds an AggregateVerify fast path
// (spec.md's threshold policy checks each signature independently, but
// BLS signatures over a common message can be verified as one
// pairing-check batch — see SPEC_FULL.md §4.5).
package blsverify

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/tos-network/uptane-targets/targets"
)

const Method = "bls12381"

type PublicKey = blst.P1Affine
type Signature = blst.P2Affine

// Key binds one BLS12-381 public key to the "bls12381" method name.
type Key struct {
	Public *PublicKey
}

func NewKey(pub *PublicKey) *Key {
	return &Key{Public: pub}
}

func (k *Key) Method() string { return Method }

func (k *Key) NewContext(sig []byte) (targets.VerifyContext, error) {
	s := new(Signature).Uncompress(sig)
	if s == nil {
		return nil, fmt.Errorf("blsverify: malformed signature encoding")
	}
	return &context{key: k.Public, sig: s}, nil
}

type context struct {
	key *PublicKey
	sig *Signature
	buf []byte
}

func (c *context) Feed(p []byte) {
	c.buf = append(c.buf, p...)
}

func (c *context) Result() bool {
	return c.sig.Verify(true, c.key, true, c.buf, nil)
}

func (c *context) Free() {
	c.buf = nil
}

// AggregateVerifier batches several public-key/signature pairs over
// the same signed message into a single pairing check. Nothing in this
// repository calls it; targets.Process verifies each slot's context
// independently.
type AggregateVerifier struct {
	keys []*PublicKey
	sigs []*Signature
	msg  []byte
}

func NewAggregateVerifier(msg []byte) *AggregateVerifier {
	return &AggregateVerifier{msg: msg}
}

func (a *AggregateVerifier) Add(key *PublicKey, sig *Signature) {
	a.keys = append(a.keys, key)
	a.sigs = append(a.sigs, sig)
}

func (a *AggregateVerifier) Verify() bool {
	if len(a.keys) == 0 {
		return false
	}
	agg := new(blst.P2Aggregate)
	if !agg.AggregateCompressed(compressAll(a.sigs), true) {
		return false
	}
	aggSig := agg.ToAffine()
	msgs := make([][]byte, len(a.keys))
	for i := range msgs {
		msgs[i] = a.msg
	}
	return aggSig.AggregateVerify(true, a.keys, true, msgs, nil)
}

func compressAll(sigs []*Signature) [][]byte {
	out := make([][]byte, len(sigs))
	for i, s := range sigs {
		out[i] = s.Compress()
	}
	return out
}

package targets

import (
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"strings"
)

var errAllocFailed = errors.New("fake: context allocation failed")

// memSource is a Source backed by an in-memory byte slice, used by
// the test suite in place of a real transport.
type memSource struct {
	data []byte
	pos  int
}

func (m *memSource) Read(buf []byte) error {
	if m.pos+len(buf) > len(m.data) {
		return io.ErrUnexpectedEOF
	}
	copy(buf, m.data[m.pos:m.pos+len(buf)])
	m.pos += len(buf)
	return nil
}

func (m *memSource) Peek() (byte, error) {
	if m.pos >= len(m.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return m.data[m.pos], nil
}

// fakeKey is a VerifyKey whose verdict is decided by exact signature
// byte-equality against a pre-agreed "valid" value, so the grammar
// and threshold-policy tests never need a real asymmetric primitive.
type fakeKey struct {
	method string
	valid  []byte
}

func (k *fakeKey) Method() string { return k.method }

func (k *fakeKey) NewContext(sig []byte) (VerifyContext, error) {
	return &fakeCtx{want: k.valid, got: append([]byte(nil), sig...)}, nil
}

type fakeCtx struct {
	want, got []byte
	fed       []byte
}

func (c *fakeCtx) Feed(p []byte) { c.fed = append(c.fed, p...) }
func (c *fakeCtx) Result() bool  { return string(c.want) == string(c.got) }
func (c *fakeCtx) Free()         {}

// failingKey always fails to mint a verification context, used to
// exercise the NoMem path.
type failingKey struct{ method string }

func (k *failingKey) Method() string { return k.method }
func (k *failingKey) NewContext([]byte) (VerifyContext, error) {
	return nil, errAllocFailed
}

type hashKV struct{ alg, hex string }

func buildTarget(path, ecu, hw string, releaseCounter int, hashes []hashKV, length int) string {
	var b strings.Builder
	b.WriteString(`"` + path + `":{"custom":{"ecu_identifier":"` + ecu + `"`)
	b.WriteString(`,"hardware_identifier":"` + hw + `"`)
	b.WriteString(`,"release_counter":` + strconv.Itoa(releaseCounter) + `}`)
	b.WriteString(`,"hashes":{`)
	for i, h := range hashes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"` + h.alg + `":"` + h.hex + `"`)
	}
	b.WriteString(`},"length":` + strconv.Itoa(length) + `}`)
	return b.String()
}

type sigText struct {
	keyidHex, method, sigHex string
}

// buildManifest assembles the full director/targets document and
// reports the byte offsets of the signed object's value (the exact
// region spec.md §3 invariant 2 requires be teed), so callers can
// slice doc[signedStart:signedEnd] for a tee-exactness assertion.
func buildManifest(sigs []sigText, typ, expires string, targetsJoined string, version int) (doc string, signedStart, signedEnd int) {
	var b strings.Builder
	b.WriteString(`{"signatures":[`)
	for i, s := range sigs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"keyid":"` + s.keyidHex + `","method":"` + s.method + `","sig":"` + s.sigHex + `"}`)
	}
	b.WriteString(`],"signed":`)
	signedStart = b.Len()
	b.WriteString(`{"_type":"` + typ + `","expires":"` + expires + `","targets":{`)
	b.WriteString(targetsJoined)
	b.WriteString(`},"version":` + strconv.Itoa(version))
	b.WriteString(`}`)
	signedEnd = b.Len()
	b.WriteString(`}`)
	return b.String(), signedStart, signedEnd
}

func keyid(b byte) [KeyIDLen]byte {
	var id [KeyIDLen]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func hexOf(b []byte) string { return hex.EncodeToString(b) }

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

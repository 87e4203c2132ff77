package targets

// Build-time configuration constants (spec.md §6). In the original C
// core these are preprocessor defines; here they are plain Go
// constants so a build that wants different limits forks the package.
const (
	// MaxSigs caps the number of elements accepted from the
	// signatures array. Exceeding it is a structural failure.
	MaxSigs = 16

	// BufSize is the scratch buffer capacity for text fields: target
	// paths, ECU/hardware identifiers, method names, hash algorithm
	// names.
	BufSize = 64

	// KeyIDLen is the fixed length, in bytes, of a key identifier.
	KeyIDLen = 32

	// MaxSigLen is the largest raw signature this build accepts,
	// sized to the largest of the ed25519, secp256k1 and BLS12-381
	// backends (BLS12-381, 96 bytes). A minisign signature in its text
	// encoding is longer than this and is rejected as JSONErr.
	MaxSigLen = 96

	// SHA512Len is the fixed digest size of the one hash algorithm
	// the grammar extracts.
	SHA512Len = 64

	// NumContexts is the pool size used by the pooled build
	// (build tag "targets_pooled").
	NumContexts = 4
)

// Time is a calendar timestamp with the exact shape the grammar
// requires: "YYYY-MM-DDTHH:MM:SSZ". Field bounds are enforced by the
// lexer (iso_timestamp); calendar validity beyond those bounds (e.g.
// Feb 30) is not checked, matching spec.md §4.2.
type Time struct {
	Year   uint16
	Month  uint16
	Day    uint16
	Hour   uint16
	Minute uint16
	Second uint16
}

// Compare returns -1, 0, or 1 as t is lexicographically before, equal
// to, or after o, per the total ordering spec.md §3 defines over the
// six calendar fields.
func (t Time) Compare(o Time) int {
	switch {
	case t.Year != o.Year:
		return cmpUint16(t.Year, o.Year)
	case t.Month != o.Month:
		return cmpUint16(t.Month, o.Month)
	case t.Day != o.Day:
		return cmpUint16(t.Day, o.Day)
	case t.Hour != o.Hour:
		return cmpUint16(t.Hour, o.Hour)
	case t.Minute != o.Minute:
		return cmpUint16(t.Minute, o.Minute)
	case t.Second != o.Second:
		return cmpUint16(t.Second, o.Second)
	default:
		return 0
	}
}

func cmpUint16(a, b uint16) int {
	if a < b {
		return -1
	}
	return 1
}

// Source is the byte source adapter contract of spec.md §4.1/§6: the
// transport-agnostic collaborator the core pulls bytes from. Read must
// deliver exactly len(buf) bytes or fail; Peek must return the next
// byte without advancing the cursor. Implementations live outside this
// package (see the transport package) — the core never knows whether
// bytes come from a file, a socket, or an object store.
type Source interface {
	Read(buf []byte) error
	Peek() (byte, error)
}

// VerifyContext is the append-only, opaque verification context of
// spec.md §3/§6. Feed is called once per tee'd chunk while the cursor
// is inside the signed object; Result yields the pass/fail verdict
// after the signed region closes; Free releases any resource the
// context holds (for software backends this is a no-op, but the
// interface exists because a backend may hold a cryptographic
// hardware handle, per spec.md §5).
type VerifyContext interface {
	Feed(p []byte)
	Result() bool
	Free()
}

// VerifyKey is the opaque key handle of spec.md §3: a stable key
// identity bound to one signing algorithm, capable of minting a fresh
// VerifyContext once a matching, supported signature is found in the
// signatures array.
type VerifyKey interface {
	// Method is the algorithm name this key expects in the
	// signature's "method" field (e.g. "ed25519").
	Method() string
	// NewContext binds the raw decoded signature bytes to this key
	// and returns a live verification context. An error here
	// propagates as NoMem.
	NewContext(sig []byte) (VerifyContext, error)
}

// Key is a trusted public key entry: an opaque VerifyKey handle plus
// the stable KeyIDLen-byte identifier used to locate it in the
// signatures array.
type Key struct {
	ID      [KeyIDLen]byte
	Backend VerifyKey
}

// Config carries every immutable-after-init configuration input of
// spec.md §3.
type Config struct {
	VersionPrev uint32
	Now         Time
	ECUID       []byte
	HardwareID  []byte
	Keys        []Key
	Threshold   int
	Source      Source
}

// sigSlot is a per-key slot (spec.md §3 "Per-key slots"): indexed by
// key index, not by position in the signatures array, because a
// signature element binds to whichever trusted key its keyid matches.
type sigSlot struct {
	sig  [MaxSigLen]byte
	siglen int
	live bool
	ctx  VerifyContext
}

// Context is the single stateful object threaded through the
// pipeline (spec.md §3).
type Context struct {
	cfg  Config
	src  *teeSource
	slots []sigSlot

	// Outputs, valid only when Result().Success().
	Length  uint32
	Digest  [SHA512Len]byte
	Version uint32

	result Result
}

// Result returns the disposition of the most recent Process call.
func (c *Context) Result() Result { return c.result }

// OutputLength returns the verified target length, valid only when
// Result().Success(); exposed for hosts (e.g. server.Verifier) that
// report length and version without reaching into the struct directly.
func (c *Context) OutputLength() uint32 { return c.Length }

// OutputVersion returns the verified manifest version, valid only
// when Result().Success().
func (c *Context) OutputVersion() uint32 { return c.Version }

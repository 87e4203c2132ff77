package targets

// Result is the disposition of a call to Process. The caller must
// pattern-match on the code rather than inspect Context's output
// fields to decide validity: outputs are only meaningful for the
// three OK_* variants.
type Result int

const (
	// OKUpdate: a target matched the local ECU/hardware identity, it
	// carried a SHA-512 hash, and version > v_prev.
	OKUpdate Result = iota
	// OKNoUpdate: same as OKUpdate but version == v_prev.
	OKNoUpdate
	// OKNoImage: no target in the manifest matched this ECU. This is a
	// legitimate, successful outcome.
	OKNoImage
	// NoHash: a matching target existed but carried no SHA-512 hash.
	NoHash
	// JSONErr: a grammar or lexical violation.
	JSONErr
	// ReadErr: the underlying Source failed (transport/read fault).
	// Split out from JSONErr rather than conflated with it; see
	// DESIGN.md "Open Question Decisions" item 6.
	ReadErr
	// WrongType: the signed document's _type is not "Targets".
	WrongType
	// Expired: now > expires.
	Expired
	// Downgrade: version < v_prev.
	Downgrade
	// SigFail: fewer than Threshold signatures verified.
	SigFail
	// ECUDuplicate: two distinct targets both claim this ECU.
	ECUDuplicate
	// NoMem: verification-context allocation failed.
	NoMem
)

func (r Result) String() string {
	switch r {
	case OKUpdate:
		return "OK_UPDATE"
	case OKNoUpdate:
		return "OK_NOUPDATE"
	case OKNoImage:
		return "OK_NOIMAGE"
	case NoHash:
		return "NOHASH"
	case JSONErr:
		return "JSONERR"
	case ReadErr:
		return "READERR"
	case WrongType:
		return "WRONGTYPE"
	case Expired:
		return "EXPIRED"
	case Downgrade:
		return "DOWNGRADE"
	case SigFail:
		return "SIGFAIL"
	case ECUDuplicate:
		return "ECUDUPLICATE"
	case NoMem:
		return "NOMEM"
	default:
		return "UNKNOWN"
	}
}

// Success reports whether r is one of the three success dispositions.
// NoHash is deliberately excluded: the target matched but the manifest
// is malformed from this ECU's perspective, so the caller must not use
// Context's output fields (recommend: fall back to the last known-good
// image, per spec.md §4.3).
func (r Result) Success() bool {
	return r == OKUpdate || r == OKNoUpdate || r == OKNoImage
}

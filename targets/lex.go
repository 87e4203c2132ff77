package targets

import "errors"

// errGrammar is the single internal sentinel every lexical primitive
// returns on a structural violation; Process translates it to JSONErr.
// Read failures from the underlying Source are threaded through
// unchanged and translate to ReadErr instead (see "Open Question
// Decisions" item 6 in DESIGN.md).
var errGrammar = errors.New("targets: grammar violation")

const maxFixedLiteral = 31 // longest fixed string in the grammar

// fixedLiteral consumes exactly len(lit) bytes and asserts byte
// equality with lit. Used for every delimiter, key name, and
// punctuation mark the grammar's rigid skeleton requires.
func fixedLiteral(s *teeSource, lit string) error {
	if len(lit) > maxFixedLiteral {
		panic("targets: literal exceeds maxFixedLiteral")
	}
	var buf [maxFixedLiteral]byte
	if err := s.read(buf[:len(lit)]); err != nil {
		return err
	}
	if string(buf[:len(lit)]) != lit {
		return errGrammar
	}
	return nil
}

// quotedText requires a leading '"', then consumes bytes until an
// unescaped '"', storing up to max bytes into out (if out is nil the
// characters are discarded). Escape sequences are not interpreted:
// the grammar's string fields are known ASCII-safe identifiers and
// hex. Returns the number of bytes stored/skipped.
func quotedText(s *teeSource, max int, out []byte) (int, error) {
	b, err := s.readByte()
	if err != nil {
		return 0, err
	}
	if b != '"' {
		return 0, errGrammar
	}
	n := 0
	for {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		if b == '"' {
			return n, nil
		}
		if n >= max {
			return 0, errGrammar
		}
		if out != nil {
			out[n] = b
		}
		n++
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// quotedHex requires '"', then consumes an even number of hex nibbles
// until a closing '"', writing up to max decoded bytes into out.
// Mismatched parity, non-hex characters, or overflow of max fail.
// Returns the number of bytes decoded.
func quotedHex(s *teeSource, max int, out []byte) (int, error) {
	b, err := s.readByte()
	if err != nil {
		return 0, err
	}
	if b != '"' {
		return 0, errGrammar
	}
	n := 0
	haveHi := false
	var hi byte
	for {
		c, err := s.readByte()
		if err != nil {
			return 0, err
		}
		if c == '"' {
			if haveHi {
				return 0, errGrammar // odd number of nibbles
			}
			return n, nil
		}
		if !isHexDigit(c) {
			return 0, errGrammar
		}
		if !haveHi {
			hi = c
			haveHi = true
			continue
		}
		if n >= max {
			return 0, errGrammar
		}
		out[n] = hexNibble(hi)<<4 | hexNibble(c)
		n++
		haveHi = false
	}
}

// decimalInteger peeks until the next byte is not in [0-9],
// accumulating base-10 into a 32-bit unsigned value. At least one
// digit is required. Overflow beyond 2^32-1 is a grammar failure
// (the caller's range checks, e.g. iso_timestamp's per-field bounds,
// are expected to catch realistic overflows long before this).
func decimalInteger(s *teeSource) (uint32, error) {
	var res uint64
	valid := false
	for {
		c, err := s.peek()
		if err != nil {
			return 0, err
		}
		if c < '0' || c > '9' {
			break
		}
		if _, err := s.readByte(); err != nil {
			return 0, err
		}
		res = res*10 + uint64(c-'0')
		valid = true
		if res > 0xffffffff {
			return 0, errGrammar
		}
	}
	if !valid {
		return 0, errGrammar
	}
	return uint32(res), nil
}

// isoTimestamp enforces the shape "YYYY-MM-DDTHH:MM:SSZ": the
// delimiters are fixed and each field is range-checked, but the digit
// count of a field is not (e.g. "2024-6-1T0:0:0Z" is accepted).
func isoTimestamp(s *teeSource) (Time, error) {
	var t Time

	if err := fixedLiteral(s, "\""); err != nil {
		return t, err
	}
	year, err := decimalInteger(s)
	if err != nil || year > 65535 {
		return t, errOrGrammar(err)
	}
	t.Year = uint16(year)

	if err := fixedLiteral(s, "-"); err != nil {
		return t, err
	}
	month, err := decimalInteger(s)
	if err != nil || month > 12 {
		return t, errOrGrammar(err)
	}
	t.Month = uint16(month)

	if err := fixedLiteral(s, "-"); err != nil {
		return t, err
	}
	day, err := decimalInteger(s)
	if err != nil || day > 31 {
		return t, errOrGrammar(err)
	}
	t.Day = uint16(day)

	if err := fixedLiteral(s, "T"); err != nil {
		return t, err
	}
	hour, err := decimalInteger(s)
	if err != nil || hour > 23 {
		return t, errOrGrammar(err)
	}
	t.Hour = uint16(hour)

	if err := fixedLiteral(s, ":"); err != nil {
		return t, err
	}
	minute, err := decimalInteger(s)
	if err != nil || minute > 59 {
		return t, errOrGrammar(err)
	}
	t.Minute = uint16(minute)

	if err := fixedLiteral(s, ":"); err != nil {
		return t, err
	}
	second, err := decimalInteger(s)
	if err != nil || second > 59 {
		return t, errOrGrammar(err)
	}
	t.Second = uint16(second)

	if err := fixedLiteral(s, "Z"); err != nil {
		return t, err
	}
	return t, nil
}

// errOrGrammar normalizes a bound violation (err == nil but the value
// was out of range) to errGrammar, while still propagating a genuine
// read failure unchanged.
func errOrGrammar(err error) error {
	if err != nil {
		return err
	}
	return errGrammar
}

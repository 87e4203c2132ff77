package targets

import (
	"crypto/subtle"
)

// classify turns a lexical-primitive error into the Result the
// grammar driver returns: errGrammar (or any grammar-level mismatch)
// becomes JSONErr, anything else — a genuine Source failure — becomes
// ReadErr. See DESIGN.md "Open Question Decisions" item 6: this is
// the chosen split of the original's conflated JSONERR.
func classify(err error) Result {
	if err == errGrammar {
		return JSONErr
	}
	return ReadErr
}

// Init prepares ctx to run Process once against cfg. Per-key signature
// slots are allocated here (spec.md §3 lifecycle).
func (c *Context) Init(cfg Config) {
	c.cfg = cfg
	c.slots = make([]sigSlot, len(cfg.Keys))
	c.src = newTeeSource(cfg.Source, c.slots)
	c.result = JSONErr
	c.Length = 0
	c.Digest = [SHA512Len]byte{}
	c.Version = 0
}

// findKey locates the trusted key matching keyid by constant-time
// byte comparison (spec.md §4.3 "constant-time byte comparison of the
// key id"), returning its index or -1.
func (c *Context) findKey(keyid []byte) int {
	found := -1
	for i := range c.cfg.Keys {
		if subtle.ConstantTimeCompare(c.cfg.Keys[i].ID[:], keyid) == 1 {
			found = i
		}
	}
	return found
}

// Process drives ctx once through the fixed director/targets grammar,
// per spec.md §4.3's state machine:
//
//	START -> SIGS -> SIGNED_OPEN -> TYPE -> EXPIRES -> TARGETS
//	      -> VERSION -> SIGNED_CLOSE -> VERIFY -> DOC_END -> FINAL
//
// Any lexical/grammar failure short-circuits to an error terminal; the
// verification phase is never reached in that case.
func (c *Context) Process() Result {
	res := c.process()
	c.result = res
	return res
}

func (c *Context) process() Result {
	s := c.src
	var buf [BufSize]byte

	// --- SIGS ---
	if err := fixedLiteral(s, "{\"signatures\":["); err != nil {
		return classify(err)
	}

	var keyidBuf [KeyIDLen]byte
	i := 0
	for ; i < MaxSigs; i++ {
		if err := fixedLiteral(s, "{\"keyid\":"); err != nil {
			return classify(err)
		}
		n, err := quotedHex(s, KeyIDLen, keyidBuf[:])
		if err != nil {
			return classify(err)
		}
		if n != KeyIDLen {
			return JSONErr
		}
		keyIdx := c.findKey(keyidBuf[:])

		if err := fixedLiteral(s, ",\"method\":"); err != nil {
			return classify(err)
		}
		mn, err := quotedText(s, BufSize, buf[:])
		if err != nil {
			return classify(err)
		}
		method := string(buf[:mn])

		ignoreSig := keyIdx < 0
		if !ignoreSig && c.cfg.Keys[keyIdx].Backend.Method() != method {
			ignoreSig = true
		}

		if err := fixedLiteral(s, ",\"sig\":"); err != nil {
			return classify(err)
		}
		if ignoreSig {
			if _, err := quotedText(s, MaxSigLen*2, nil); err != nil {
				return classify(err)
			}
		} else {
			var sigBuf [MaxSigLen]byte
			sn, err := quotedHex(s, MaxSigLen, sigBuf[:])
			if err != nil {
				return classify(err)
			}
			if sn <= 0 {
				return JSONErr
			}
			ctx, err := c.cfg.Keys[keyIdx].Backend.NewContext(sigBuf[:sn])
			if err != nil {
				return NoMem
			}
			c.slots[keyIdx].sig = sigBuf
			c.slots[keyIdx].siglen = sn
			c.slots[keyIdx].live = true
			c.slots[keyIdx].ctx = ctx
		}

		// Closing brace of this signature element (spec.md §4.3
		// grammar: sig ends in a literal "}").
		if err := fixedLiteral(s, "}"); err != nil {
			return classify(err)
		}

		b, err := s.readByte()
		if err != nil {
			return classify(err)
		}
		if b == ']' {
			break
		}
		if b != ',' {
			return JSONErr
		}
	}
	if i == MaxSigs {
		return JSONErr
	}

	// --- SIGNED_OPEN ---
	if err := fixedLiteral(s, ",\"signed\":"); err != nil {
		return classify(err)
	}
	s.inSigned = true

	if err := fixedLiteral(s, "{\"_type\":"); err != nil {
		return classify(err)
	}
	tn, err := quotedText(s, BufSize, buf[:])
	if err != nil {
		return classify(err)
	}
	// Correct contract (spec.md §9 item 5): WRONGTYPE iff the string
	// is not equal to "Targets".
	if string(buf[:tn]) != "Targets" {
		return WrongType
	}

	// --- EXPIRES ---
	if err := fixedLiteral(s, ",\"expires\":"); err != nil {
		return classify(err)
	}
	expires, err := isoTimestamp(s)
	if err != nil {
		return classify(err)
	}
	if c.cfg.Now.Compare(expires) > 0 {
		return Expired
	}

	// --- TARGETS ---
	if err := fixedLiteral(s, ",\"targets\":{"); err != nil {
		return classify(err)
	}

	gotImage := false
	gotHash := false
	var ecuBuf, hwBuf, algBuf [BufSize]byte

	for {
		ignoreImage := false

		// Target path, discarded.
		if _, err := quotedText(s, BufSize, nil); err != nil {
			return classify(err)
		}

		if err := fixedLiteral(s, ":{\"custom\":{\"ecu_identifier\":"); err != nil {
			return classify(err)
		}
		en, err := quotedText(s, BufSize, ecuBuf[:])
		if err != nil {
			return classify(err)
		}
		if !bytesEqual(ecuBuf[:en], c.cfg.ECUID) {
			ignoreImage = true
		}

		if err := fixedLiteral(s, ",\"hardware_identifier\":"); err != nil {
			return classify(err)
		}
		hn, err := quotedText(s, BufSize, hwBuf[:])
		if err != nil {
			return classify(err)
		}
		if !bytesEqual(hwBuf[:hn], c.cfg.HardwareID) {
			ignoreImage = true
		}

		if err := fixedLiteral(s, ",\"release_counter\":"); err != nil {
			return classify(err)
		}
		if _, err := decimalInteger(s); err != nil {
			return classify(err)
		}

		if err := fixedLiteral(s, "},\"hashes\":{"); err != nil {
			return classify(err)
		}

		gotHashThisTarget := false
		var digest [SHA512Len]byte
		for {
			an, err := quotedText(s, BufSize, algBuf[:])
			if err != nil {
				return classify(err)
			}
			if !ignoreImage && string(algBuf[:an]) == "sha512" {
				// spec.md §9 item 7, resolved: reject a second
				// sha512 entry within the same target rather than
				// "last wins".
				if gotHashThisTarget {
					return JSONErr
				}
				dn, err := quotedHex(s, SHA512Len, digest[:])
				if err != nil {
					return classify(err)
				}
				if dn != SHA512Len {
					return JSONErr
				}
				gotHashThisTarget = true
			} else {
				if _, err := quotedText(s, MaxSigLen*2, nil); err != nil {
					return classify(err)
				}
			}

			b, err := s.readByte()
			if err != nil {
				return classify(err)
			}
			if b == '}' {
				break
			}
			if b != ',' {
				return JSONErr
			}
		}

		if err := fixedLiteral(s, ",\"length\":"); err != nil {
			return classify(err)
		}
		length, err := decimalInteger(s)
		if err != nil {
			return classify(err)
		}

		if !ignoreImage {
			if gotImage {
				return ECUDuplicate
			}
			gotImage = true
			c.Length = length
			if gotHashThisTarget {
				c.Digest = digest
				gotHash = true
			}
		}

		if err := fixedLiteral(s, "}"); err != nil {
			return classify(err)
		}

		b, err := s.readByte()
		if err != nil {
			return classify(err)
		}
		if b == '}' {
			break
		}
		if b != ',' {
			return JSONErr
		}
	}

	// --- VERSION ---
	if err := fixedLiteral(s, ",\"version\":"); err != nil {
		return classify(err)
	}
	version, err := decimalInteger(s)
	if err != nil {
		return classify(err)
	}
	if version < c.cfg.VersionPrev {
		return Downgrade
	}
	c.Version = version

	// --- SIGNED_CLOSE --- the closing '}' of the signed object is
	// teed (spec.md §4.1 invariant 2) before inSigned clears.
	if err := fixedLiteral(s, "}"); err != nil {
		return classify(err)
	}
	s.inSigned = false

	// --- VERIFY ---
	validSigs := 0
	for i := range c.slots {
		if c.slots[i].live && c.slots[i].ctx.Result() {
			validSigs++
		}
	}
	if validSigs < c.cfg.Threshold {
		return SigFail
	}

	// --- DOC_END ---
	if err := fixedLiteral(s, "}"); err != nil {
		return classify(err)
	}

	// --- FINAL ---
	if !gotImage {
		return OKNoImage
	}
	if !gotHash {
		return NoHash
	}
	if c.Version == c.cfg.VersionPrev {
		return OKNoUpdate
	}
	return OKUpdate
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

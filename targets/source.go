package targets

// teeSource wraps the caller's Source and owns the fan-out described
// in spec.md §4.1 and the re-architecture note in spec.md §9: while
// inSigned is true, every byte delivered by read is additionally
// forwarded, in order, to each live VerifyContext. peek never tees —
// a peeked byte is teed on the subsequent read that actually consumes
// it.
type teeSource struct {
	under    Source
	inSigned bool
	slots    []sigSlot
}

func newTeeSource(under Source, slots []sigSlot) *teeSource {
	return &teeSource{under: under, slots: slots}
}

// read consumes exactly len(buf) bytes and, while inSigned, feeds them
// to every live verification context.
func (t *teeSource) read(buf []byte) error {
	if err := t.under.Read(buf); err != nil {
		return err
	}
	if t.inSigned {
		for i := range t.slots {
			if t.slots[i].live {
				t.slots[i].ctx.Feed(buf)
			}
		}
	}
	return nil
}

func (t *teeSource) readByte() (byte, error) {
	var buf [1]byte
	if err := t.read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *teeSource) peek() (byte, error) {
	return t.under.Peek()
}

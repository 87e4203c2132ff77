package targets

import (
	"testing"

	fuzz "github.com/google/gofuzz"
)

// TestFuzzNeverPanics feeds gofuzz-generated random byte streams, and
// copies of a valid manifest with bytes flipped at deterministic
// positions, through the grammar driver and asserts it always returns a defined Result and
// never panics, regardless of how malformed the input is (spec.md §8
// "Never panics").
func TestFuzzNeverPanics(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 4096)

	validDoc, _, _ := buildManifest(
		[]sigText{{keyidHex: hexOf(repeat(0x11, KeyIDLen)), method: "ed25519", sigHex: hexOf(repeat(0xAA, 64))}},
		"Targets", "2030-01-01T00:00:00Z",
		buildTarget("firmware.bin", "ecu-1", "hw-1", 1, []hashKV{{alg: "sha512", hex: hexOf(repeat(0x01, SHA512Len))}}, 42),
		7,
	)

	cfg := Config{
		Keys:        []Key{{ID: keyid(0x11), Backend: &fakeKey{method: "ed25519", valid: repeat(0xAA, 64)}}},
		Threshold:   1,
		ECUID:       []byte("ecu-1"),
		HardwareID:  []byte("hw-1"),
		VersionPrev: 0,
		Now:         Time{Year: 2025, Month: 1, Day: 1},
	}

	const rounds = 200
	for i := 0; i < rounds; i++ {
		var raw []byte
		f.Fuzz(&raw)

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Process panicked on random input (len=%d): %v", len(raw), r)
				}
			}()
			var ctx Context
			cfg.Source = &memSource{data: raw}
			ctx.Init(cfg)
			res := ctx.Process()
			ctx.Release()
			if res < OKUpdate || res > NoMem {
				t.Fatalf("Process returned an undefined Result %d for random input", res)
			}
		}()

		mutated := []byte(validDoc)
		flips := len(mutated) / 20
		if flips == 0 {
			flips = 1
		}
		for j := 0; j < flips; j++ {
			idx := (i*7 + j*13) % len(mutated)
			mutated[idx] ^= 0xFF
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Process panicked on mutated manifest (round %d): %v", i, r)
				}
			}()
			var ctx Context
			cfg.Source = &memSource{data: mutated}
			ctx.Init(cfg)
			res := ctx.Process()
			ctx.Release()
			if res < OKUpdate || res > NoMem {
				t.Fatalf("Process returned an undefined Result %d for mutated input", res)
			}
		}()
	}
}

package targets

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func dump(t *testing.T, v interface{}) {
	t.Helper()
	t.Log(spew.Sdump(v))
}

func defaultTime() Time { return Time{Year: 2024, Month: 6, Day: 1} }
func farFuture() string { return "2099-01-01T00:00:00Z" }
func longPast() string  { return "2000-01-01T00:00:00Z" }

func oneSig(method string, valid []byte, actual []byte) ([]Key, []sigText) {
	k := &fakeKey{method: method, valid: valid}
	keys := []Key{{ID: keyid(0x11), Backend: k}}
	sigs := []sigText{{keyidHex: hexOf(keyid(0x11)[:]), method: method, sigHex: hexOf(actual)}}
	return keys, sigs
}

func run(t *testing.T, cfg Config, doc string) (*Context, Result) {
	t.Helper()
	cfg.Source = &memSource{data: []byte(doc)}
	ctx, err := NewContext()
	require.NoError(t, err)
	defer ctx.Release()
	ctx.Init(cfg)
	res := ctx.Process()
	return ctx, res
}

// S1: one valid Ed25519 signature, threshold=1, version=2 > v_prev=1,
// matching target -> OK_UPDATE.
func TestS1_OKUpdate(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 7,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	ctx, res := run(t, cfg, doc)
	require.Equal(t, OKUpdate, res)
	require.Equal(t, uint32(1024), ctx.Length)
	require.Equal(t, repeat(0x00, 64), ctx.Digest[:])
}

// S2: version == v_prev -> OK_NOUPDATE.
func TestS2_OKNoUpdate(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 1)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, OKNoUpdate, res)
}

// S3: version < v_prev -> DOWNGRADE.
func TestS3_Downgrade(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 0)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, Downgrade, res)
}

// S4: target's ecu_identifier doesn't match -> OK_NOIMAGE.
func TestS4_OKNoImage(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu2", "hw1", 0,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, OKNoImage, res)
}

// S5: signature byte flipped -> SIGFAIL.
func TestS5_SigFail(t *testing.T) {
	valid := repeat('A', 64)
	flipped := append([]byte(nil), valid...)
	flipped[0] = 'B'
	keys, sigs := oneSig("ed25519", valid, flipped)
	target := buildTarget("img.bin", "ecu1", "hw1", 0,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, SigFail, res)
}

// S6: two targets both matching local ECU -> ECUDUPLICATE.
func TestS6_ECUDuplicate(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	t1 := buildTarget("img1.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	t2 := buildTarget("img2.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x01, 64))}}, 2048)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), t1+","+t2, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, ECUDuplicate, res)
}

// S7: wrong _type -> WRONGTYPE.
func TestS7_WrongType(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Snapshot", farFuture(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, WrongType, res)
}

// S8: expired manifest -> EXPIRED.
func TestS8_Expired(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", longPast(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, Expired, res)
}

// Property: tee exactness. The bytes fed to a live verification
// context equal exactly the "signed" object's value, braces
// inclusive.
func TestProperty_TeeExactness(t *testing.T) {
	valid := repeat('A', 64)
	k := &fakeKey{method: "ed25519", valid: valid}
	keys := []Key{{ID: keyid(0x11), Backend: k}}
	sigs := []sigText{{keyidHex: hexOf(keyid(0x11)[:]), method: "ed25519", sigHex: hexOf(valid)}}
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, signedStart, signedEnd := buildManifest(sigs, "Targets", farFuture(), target, 2)

	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	cfg.Source = &memSource{data: []byte(doc)}
	ctx, err := NewContext()
	require.NoError(t, err)
	defer ctx.Release()
	ctx.Init(cfg)

	// Peek the live fake context's fed bytes via the slot before
	// Release clears it.
	res := ctx.Process()
	require.Equal(t, OKUpdate, res)

	fc, ok := ctx.slots[0].ctx.(*fakeCtx)
	require.True(t, ok)
	require.Equal(t, doc[signedStart:signedEnd], string(fc.fed))
	dump(t, fc.fed)
}

// Property: threshold monotonicity. With K keys, T valid and K-T
// invalid, success iff threshold <= T.
func TestProperty_ThresholdMonotonicity(t *testing.T) {
	const k = 4
	valid := repeat('A', 64)
	invalid := repeat('B', 64)

	for validCount := 0; validCount <= k; validCount++ {
		for threshold := 1; threshold <= k; threshold++ {
			var keys []Key
			var sigs []sigText
			for i := 0; i < k; i++ {
				fk := &fakeKey{method: "ed25519", valid: valid}
				keys = append(keys, Key{ID: keyid(byte(0x20 + i)), Backend: fk})
				actual := invalid
				if i < validCount {
					actual = valid
				}
				sigs = append(sigs, sigText{keyidHex: hexOf(keyid(byte(0x20 + i))[:]), method: "ed25519", sigHex: hexOf(actual)})
			}
			target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
			doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)
			cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: threshold}
			_, res := run(t, cfg, doc)

			wantSuccess := threshold <= validCount
			if wantSuccess {
				require.Equal(t, OKUpdate, res, "validCount=%d threshold=%d", validCount, threshold)
			} else {
				require.Equal(t, SigFail, res, "validCount=%d threshold=%d", validCount, threshold)
			}
		}
	}
}

// Property: anti-rollback exactly as spec.md §8 item 3.
func TestProperty_AntiRollback(t *testing.T) {
	valid := repeat('A', 64)
	cases := []struct{ v, vPrev uint32 }{
		{0, 1}, {1, 1}, {2, 1}, {5, 5}, {4, 5},
	}
	for _, c := range cases {
		keys, sigs := oneSig("ed25519", valid, valid)
		target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
		doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, int(c.v))
		cfg := Config{VersionPrev: c.vPrev, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
		_, res := run(t, cfg, doc)

		switch {
		case c.v < c.vPrev:
			require.Equal(t, Downgrade, res)
		case c.v == c.vPrev:
			require.Equal(t, OKNoUpdate, res)
		default:
			require.Equal(t, OKUpdate, res)
		}
	}
}

// Property: selection idempotence. Extra targets that don't match the
// local identity never change the result or the extracted
// digest/length, regardless of ordering.
func TestProperty_SelectionIdempotence(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	match := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	other1 := buildTarget("other1.bin", "ecuX", "hwX", 0, []hashKV{{"sha512", hexOf(repeat(0xff, 64))}}, 999)
	other2 := buildTarget("other2.bin", "ecu1", "hwY", 0, []hashKV{{"sha512", hexOf(repeat(0xee, 64))}}, 888)

	orders := [][]string{
		{match},
		{match, other1},
		{other1, match},
		{match, other1, other2},
		{other2, other1, match},
	}
	for _, order := range orders {
		cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
		doc, _, _ := buildManifest(sigs, "Targets", farFuture(), join(order), 2)
		ctx, res := run(t, cfg, doc)
		require.Equal(t, OKUpdate, res)
		require.Equal(t, uint32(1024), ctx.Length)
		require.Equal(t, repeat(0x00, 64), ctx.Digest[:])
	}
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// Property: expiry boundary. now == expires is not expired;
// now > expires is expired.
func TestProperty_ExpiryBoundary(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)

	exact := Time{Year: 2024, Month: 6, Day: 1, Hour: 12, Minute: 0, Second: 0}
	doc, _, _ := buildManifest(sigs, "Targets", "2024-06-01T12:00:00Z", target, 2)
	cfg := Config{VersionPrev: 1, Now: exact, ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, OKUpdate, res, "now == expires must not be expired")

	after := Time{Year: 2024, Month: 6, Day: 1, Hour: 12, Minute: 0, Second: 1}
	cfg2 := cfg
	cfg2.Now = after
	doc2, _, _ := buildManifest(sigs, "Targets", "2024-06-01T12:00:00Z", target, 2)
	_, res2 := run(t, cfg2, doc2)
	require.Equal(t, Expired, res2)
}

func TestNoMem(t *testing.T) {
	keys := []Key{{ID: keyid(0x11), Backend: &failingKey{method: "ed25519"}}}
	sigs := []sigText{{keyidHex: hexOf(keyid(0x11)[:]), method: "ed25519", sigHex: hexOf(repeat('A', 64))}}
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)
	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, NoMem, res)
}

func TestNoHash(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha256", hexOf(repeat(0x00, 32))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)
	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, NoHash, res)
}

func TestDuplicateSHA512Rejected(t *testing.T) {
	valid := repeat('A', 64)
	keys, sigs := oneSig("ed25519", valid, valid)
	target := buildTarget("img.bin", "ecu1", "hw1", 0,
		[]hashKV{{"sha512", hexOf(repeat(0x00, 64))}, {"sha512", hexOf(repeat(0x01, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)
	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, JSONErr, res)
}

func TestUnsupportedMethodSkipsSignature(t *testing.T) {
	valid := repeat('A', 64)
	k := &fakeKey{method: "ed25519", valid: valid}
	keys := []Key{{ID: keyid(0x11), Backend: k}}
	sigs := []sigText{{keyidHex: hexOf(keyid(0x11)[:]), method: "unknown-algo", sigHex: hexOf(valid)}}
	target := buildTarget("img.bin", "ecu1", "hw1", 0, []hashKV{{"sha512", hexOf(repeat(0x00, 64))}}, 1024)
	doc, _, _ := buildManifest(sigs, "Targets", farFuture(), target, 2)
	cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Keys: keys, Threshold: 1}
	_, res := run(t, cfg, doc)
	require.Equal(t, SigFail, res)
}

func TestMalformedDocument(t *testing.T) {
	cases := []string{
		``,
		`{"signatures":[]`,
		`not json at all`,
		`{"signatures":[],"signed":{"_type":"Targets","expires":"2099-01-01T00:00:00Z","targets":{},"version":1}} `, // empty signatures array (the trailing space is never read)
	}
	for _, doc := range cases {
		cfg := Config{VersionPrev: 1, Now: defaultTime(), ECUID: []byte("ecu1"), HardwareID: []byte("hw1"), Threshold: 0}
		_, res := run(t, cfg, doc)
		require.True(t, res == JSONErr || res == ReadErr, "doc=%q got=%s", doc, res)
	}
}

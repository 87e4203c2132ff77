package minisignverify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// go-minisign is verify-only: it has no public API to produce a
// signature, so a real sign-then-verify round trip can't be
// constructed here without shelling out to the minisign CLI, which
// isn't available in this environment. These tests cover the error
// paths ParseKey and NewContext are responsible for instead.

func TestParseKeyRejectsMalformed(t *testing.T) {
	_, err := ParseKey("not a minisign public key")
	require.Error(t, err)
}

func TestParseKeyRejectsEmpty(t *testing.T) {
	_, err := ParseKey("")
	require.Error(t, err)
}

func TestNewContextRejectsMalformedSignature(t *testing.T) {
	// A structurally valid minisign public key (algorithm tag "Ed",
	// all-zero key id, arbitrary 32-byte key), so the failure under
	// test is isolated to signature decoding rather than key parsing.
	const samplePub = "RWQAAAAAAAAAAAEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEB"
	key, err := ParseKey(samplePub)
	require.NoError(t, err)

	_, err = key.NewContext([]byte("not a minisign signature"))
	require.Error(t, err)
}

func TestMethod(t *testing.T) {
	require.Equal(t, "minisign", Method)
	require.Equal(t, Method, (&Key{}).Method())
}

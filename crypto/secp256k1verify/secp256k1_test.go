package secp256k1verify

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("director manifest signed region")
	sum := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, sum[:])

	key := NewKey(priv.PubKey())
	ctx, err := key.NewContext(sig.Serialize())
	require.NoError(t, err)
	ctx.Feed(msg[:10])
	ctx.Feed(msg[10:])
	require.True(t, ctx.Result())
	ctx.Free()
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("director manifest signed region")
	sum := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, sum[:])

	key := NewKey(other.PubKey())
	ctx, err := key.NewContext(sig.Serialize())
	require.NoError(t, err)
	ctx.Feed(msg)
	require.False(t, ctx.Result())
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("director manifest signed region")
	sum := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv, sum[:])

	key := NewKey(priv.PubKey())
	ctx, err := key.NewContext(sig.Serialize())
	require.NoError(t, err)
	ctx.Feed([]byte("director manifest SIGNED region"))
	require.False(t, ctx.Result())
}

func TestNewContextRejectsMalformedSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	key := NewKey(priv.PubKey())
	_, err = key.NewContext([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestMethod(t *testing.T) {
	require.Equal(t, "secp256k1", Method)
	require.Equal(t, Method, (&Key{}).Method())
}

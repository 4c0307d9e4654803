package signer_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/keyutil"
	"github.com/josecore/jose/pkg/signer"
)

func TestHMACRoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.HS256)
	require.NoError(t, err)

	key := []byte("super-secret-key-material-for-hs256")
	input := []byte("header.payload")

	sig, err := alg.Sign(input, key)
	require.NoError(t, err)
	require.NoError(t, alg.Verify(input, sig, key))

	tampered := append([]byte{}, sig...)
	tampered[0] ^= 0xFF
	require.Error(t, alg.Verify(input, tampered, key))
}

func TestHMACRejectsShortKey(t *testing.T) {
	alg, err := signer.ByName(jwa.HS256)
	require.NoError(t, err)

	// HS256 hashes to 32 bytes; a 16 byte secret is shorter than that.
	require.Error(t, alg.ValidateSigningKey([]byte("0123456789abcdef")))
	require.Error(t, alg.ValidateVerificationKey([]byte("0123456789abcdef")))
}

func TestRSAPKCS1RoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.RS256)
	require.NoError(t, err)

	pub, priv, err := keyutil.NewRSAKeyPair()
	require.NoError(t, err)

	input := []byte("header.payload")
	sig, err := alg.Sign(input, priv)
	require.NoError(t, err)
	require.NoError(t, alg.Verify(input, sig, pub))
}

func TestRSAPKCS1RejectsUndersizedKey(t *testing.T) {
	alg, err := signer.ByName(jwa.RS256)
	require.NoError(t, err)

	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	require.Error(t, alg.ValidateSigningKey(priv))
}

func TestRSAPSSRoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.PS256)
	require.NoError(t, err)

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	input := []byte("header.payload")
	sig, err := alg.Sign(input, priv)
	require.NoError(t, err)
	require.NoError(t, alg.Verify(input, sig, &priv.PublicKey))
}

func TestECDSARoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.ES256)
	require.NoError(t, err)

	pub, priv, err := keyutil.NewECDSAKeyPair()
	require.NoError(t, err)

	input := []byte("header.payload")
	sig, err := alg.Sign(input, priv)
	require.NoError(t, err)
	require.Len(t, sig, 64)
	require.NoError(t, alg.Verify(input, sig, pub))
}

func TestECDSARejectsWrongCurve(t *testing.T) {
	alg, err := signer.ByName(jwa.ES256)
	require.NoError(t, err)

	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	require.Error(t, alg.ValidateSigningKey(priv))
}

func TestES256KRoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.ES256K)
	require.NoError(t, err)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	input := []byte("header.payload")
	sig, err := alg.Sign(input, priv)
	require.NoError(t, err)
	require.Len(t, sig, 64)
	require.NoError(t, alg.Verify(input, sig, priv.PubKey()))
}

func TestEdDSARoundTrip(t *testing.T) {
	alg, err := signer.ByName(jwa.EdDSA)
	require.NoError(t, err)

	pub, priv, err := keyutil.NewEdDSAKeyPair()
	require.NoError(t, err)

	input := []byte("header.payload")
	sig, err := alg.Sign(input, priv)
	require.NoError(t, err)
	require.NoError(t, alg.Verify(input, sig, pub))
}

func TestNoneRequiresEmptySignature(t *testing.T) {
	alg, err := signer.ByName(jwa.None)
	require.NoError(t, err)

	sig, err := alg.Sign([]byte("x"), nil)
	require.NoError(t, err)
	require.Empty(t, sig)
	require.NoError(t, alg.Verify([]byte("x"), sig, nil))
	require.Error(t, alg.Verify([]byte("x"), []byte("nonempty"), nil))
}

func TestByNameUnknownAlgorithm(t *testing.T) {
	_, err := signer.ByName("bogus")
	require.Error(t, err)
}

package jwe_test

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jwe"
	"github.com/josecore/jose/pkg/joseerr"
)

func newHeader(keyAlg, encAlg jwa.Algorithm) *header.Parameters {
	return header.New().Set(header.Algorithm, keyAlg).Set(header.Encryption, encAlg)
}

func TestJWEDirectRoundTrip(t *testing.T) {
	cek := make([]byte, 32)
	_, _ = rand.Read(cek)

	h := newHeader(jwa.Direct, jwa.A256GCM)
	plaintext := []byte("the eagle flies at midnight")

	msg, err := jwe.Encrypt(h, plaintext, cek, nil)
	require.NoError(t, err)

	parsed, err := jwe.Parse(msg.String())
	require.NoError(t, err)

	got, err := parsed.Decrypt(cek, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestJWEAESKWCBCHMACRoundTrip(t *testing.T) {
	kek := make([]byte, 16)
	_, _ = rand.Read(kek)

	h := newHeader(jwa.A128KW, jwa.A128CBCHS256)
	plaintext := []byte("a longer message that spans more than one AES block boundary")

	msg, err := jwe.Encrypt(h, plaintext, kek, nil)
	require.NoError(t, err)
	require.NotEmpty(t, msg.EncryptedKey)

	got, err := msg.Decrypt(kek, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestJWERejectsTamperedTag(t *testing.T) {
	kek := make([]byte, 16)
	_, _ = rand.Read(kek)

	h := newHeader(jwa.A128GCMKW, jwa.A128GCM)
	msg, err := jwe.Encrypt(h, []byte("payload"), kek, nil)
	require.NoError(t, err)

	msg.Tag[0] ^= 0xFF

	_, err = msg.Decrypt(kek, nil)
	require.Error(t, err)
}

func TestJWECompressionRoundTrip(t *testing.T) {
	cek := make([]byte, 32)
	_, _ = rand.Read(cek)

	h := newHeader(jwa.Direct, jwa.A256GCM).Set(header.Compression, jwa.DEF)
	plaintext := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	msg, err := jwe.Encrypt(h, plaintext, cek, nil)
	require.NoError(t, err)

	got, err := msg.Decrypt(cek, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestJWERSA1_5RequiresExplicitConstraintOptIn(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	h := newHeader(jwa.RSA1_5, jwa.A128CBCHS256)

	_, err = jwe.Encrypt(h, []byte("secret"), &priv.PublicKey, nil)
	require.Error(t, err)

	msg, err := jwe.Encrypt(h, []byte("secret"), &priv.PublicKey, &jwe.EncryptOptions{
		KeyConstraints: jwa.NoConstraints(),
	})
	require.NoError(t, err)

	_, err = msg.Decrypt(priv, nil)
	require.Error(t, err)

	got, err := msg.Decrypt(priv, &jwe.DecryptOptions{KeyConstraints: jwa.NoConstraints()})
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), got)
}

func TestJWEECDHESRoundTrip(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	h := newHeader(jwa.ECDHES, jwa.A256GCM)
	plaintext := []byte("ephemeral agreement payload")

	msg, err := jwe.Encrypt(h, plaintext, priv.PublicKey(), nil)
	require.NoError(t, err)
	require.Empty(t, msg.EncryptedKey)

	got, err := msg.Decrypt(priv, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestJWEParseRejectsEmptyCiphertext(t *testing.T) {
	_, err := jwe.Parse("aGVhZGVy.a2V5.aXY..dGFn")
	require.Error(t, err)
}

func TestJWEParseRejectsWrongPartCount(t *testing.T) {
	_, err := jwe.Parse("a.b.c")
	require.Error(t, err)
}

func TestJWEUnsupportedContentEncAlgorithm(t *testing.T) {
	cek := make([]byte, 32)
	_, _ = rand.Read(cek)

	h := newHeader(jwa.Direct, "BOGUS")
	_, err := jwe.Encrypt(h, []byte("x"), cek, nil)
	require.Error(t, err)
}

func TestJWEDecryptRejectsOversizedDeflateExpansion(t *testing.T) {
	cek := make([]byte, 32)
	_, _ = rand.Read(cek)

	h := newHeader(jwa.Direct, jwa.A256GCM).Set(header.Compression, jwa.DEF)
	plaintext := make([]byte, jwe.MaxDecompressedSize+1)

	msg, err := jwe.Encrypt(h, plaintext, cek, nil)
	require.NoError(t, err)

	_, err = msg.Decrypt(cek, nil)
	require.Error(t, err)

	jerr, ok := err.(*joseerr.Error)
	require.True(t, ok)
	require.Equal(t, joseerr.DecompressionTooLarge, jerr.Kind)
}

func TestJWEECDHESRejectsOffCurveEPK(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	h := newHeader(jwa.ECDHES, jwa.A256GCM)
	msg, err := jwe.Encrypt(h, []byte("ephemeral agreement payload"), priv.PublicKey(), nil)
	require.NoError(t, err)

	offCurve := make([]byte, 32)
	msg.Header.Set(header.EphemeralPublicKey, map[string]any{
		"kty": "EC",
		"crv": "P-256",
		"x":   base64.Encode(offCurve),
		"y":   base64.Encode(offCurve),
	})

	_, err = msg.Decrypt(priv, nil)
	require.Error(t, err)
}

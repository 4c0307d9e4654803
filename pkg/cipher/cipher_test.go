package cipher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/cipher"
	"github.com/josecore/jose/pkg/jwa"
)

func TestCBCHMACRoundTrip(t *testing.T) {
	alg, err := cipher.ByName(jwa.A128CBCHS256)
	require.NoError(t, err)

	cek := make([]byte, alg.CEKBytes())
	for i := range cek {
		cek[i] = byte(i)
	}
	iv, err := alg.GenerateIV()
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	aad := []byte("encoded-header")

	ciphertext, tag, err := alg.Encrypt(cek, iv, plaintext, aad)
	require.NoError(t, err)

	got, err := alg.Decrypt(cek, iv, ciphertext, tag, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestCBCHMACRejectsTamperedTag(t *testing.T) {
	alg, err := cipher.ByName(jwa.A256CBCHS512)
	require.NoError(t, err)

	cek := make([]byte, alg.CEKBytes())
	iv, err := alg.GenerateIV()
	require.NoError(t, err)

	ciphertext, tag, err := alg.Encrypt(cek, iv, []byte("payload"), []byte("aad"))
	require.NoError(t, err)

	tag[0] ^= 0xFF

	_, err = alg.Decrypt(cek, iv, ciphertext, tag, []byte("aad"))
	require.Error(t, err)
}

func TestCBCHMACRejectsWrongAAD(t *testing.T) {
	alg, err := cipher.ByName(jwa.A192CBCHS384)
	require.NoError(t, err)

	cek := make([]byte, alg.CEKBytes())
	iv, err := alg.GenerateIV()
	require.NoError(t, err)

	ciphertext, tag, err := alg.Encrypt(cek, iv, []byte("payload"), []byte("aad-one"))
	require.NoError(t, err)

	_, err = alg.Decrypt(cek, iv, ciphertext, tag, []byte("aad-two"))
	require.Error(t, err)
}

func TestGCMRoundTrip(t *testing.T) {
	alg, err := cipher.ByName(jwa.A256GCM)
	require.NoError(t, err)

	cek := make([]byte, alg.CEKBytes())
	iv, err := alg.GenerateIV()
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	aad := []byte("encoded-header")

	ciphertext, tag, err := alg.Encrypt(cek, iv, plaintext, aad)
	require.NoError(t, err)

	got, err := alg.Decrypt(cek, iv, ciphertext, tag, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestGCMRejectsTamperedCiphertext(t *testing.T) {
	alg, err := cipher.ByName(jwa.A128GCM)
	require.NoError(t, err)

	cek := make([]byte, alg.CEKBytes())
	iv, err := alg.GenerateIV()
	require.NoError(t, err)

	ciphertext, tag, err := alg.Encrypt(cek, iv, []byte("payload"), []byte("aad"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF

	_, err = alg.Decrypt(cek, iv, ciphertext, tag, []byte("aad"))
	require.Error(t, err)
}

func TestByNameUnknownContentAlgorithm(t *testing.T) {
	_, err := cipher.ByName("bogus")
	require.Error(t, err)
}

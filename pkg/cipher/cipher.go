// Package cipher implements the JWE content encryption algorithms:
// the AES-CBC+HMAC-SHA2 composite AEAD and AES-GCM, per RFC 7518
// section 5.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"
	"io"

	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// Algorithm is the content-encryption capability: authenticated
// encryption and decryption of the plaintext CEK-protected body, bound
// to the given Additional Authenticated Data (the encoded JOSE header).
type Algorithm interface {
	Name() jwa.Algorithm
	CEKBytes() int
	IVBytes() int
	GenerateIV() ([]byte, error)
	Encrypt(cek, iv, plaintext, aad []byte) (ciphertext, tag []byte, err error)
	Decrypt(cek, iv, ciphertext, tag, aad []byte) (plaintext []byte, err error)
}

// ByName returns the cipher.Algorithm for a registered jwa.Algorithm
// content-encryption name.
func ByName(name jwa.Algorithm) (Algorithm, error) {
	a, ok := registry[name]
	if !ok {
		return nil, joseerr.Newf(joseerr.UnsupportedAlgorithm, "cipher: no content encryption algorithm registered for %q", name)
	}
	return a, nil
}

var registry = map[jwa.Algorithm]Algorithm{
	jwa.A128CBCHS256: cbcHMACAlg{name: jwa.A128CBCHS256, encKeyBytes: 16, hashFunc: sha256.New, tagBytes: 16},
	jwa.A192CBCHS384: cbcHMACAlg{name: jwa.A192CBCHS384, encKeyBytes: 24, hashFunc: sha512.New384, tagBytes: 24},
	jwa.A256CBCHS512: cbcHMACAlg{name: jwa.A256CBCHS512, encKeyBytes: 32, hashFunc: sha512.New, tagBytes: 32},

	jwa.A128GCM: gcmAlg{name: jwa.A128GCM, keyBytes: 16},
	jwa.A192GCM: gcmAlg{name: jwa.A192GCM, keyBytes: 24},
	jwa.A256GCM: gcmAlg{name: jwa.A256GCM, keyBytes: 32},
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, joseerr.Wrap(joseerr.Unknown, "cipher: failed to read random bytes", err)
	}
	return b, nil
}

// cbcHMACAlg implements the AES-CBC+HMAC-SHA2 composite AEAD of RFC
// 7518 section 5.2. The CEK is split in half: the first half is the
// HMAC key, the second half the AES-CBC key.
type cbcHMACAlg struct {
	name        jwa.Algorithm
	encKeyBytes int
	hashFunc    func() hash.Hash
	tagBytes    int
}

func (a cbcHMACAlg) Name() jwa.Algorithm { return a.name }
func (a cbcHMACAlg) CEKBytes() int       { return 2 * a.encKeyBytes }
func (a cbcHMACAlg) IVBytes() int        { return aes.BlockSize }

func (a cbcHMACAlg) GenerateIV() ([]byte, error) {
	return randomBytes(a.IVBytes())
}

func (a cbcHMACAlg) splitKey(cek []byte) (macKey, encKey []byte, err error) {
	if len(cek) != a.CEKBytes() {
		return nil, nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte CEK, got %d", a.name, a.CEKBytes(), len(cek))
	}
	return cek[:a.encKeyBytes], cek[a.encKeyBytes:], nil
}

// al returns the 64-bit big-endian bit length of aad, as required by
// the AL input to the MAC computation.
func al(aad []byte) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(len(aad))*8)
	return out
}

func (a cbcHMACAlg) mac(macKey, aad, iv, ciphertext []byte) []byte {
	h := hmac.New(a.hashFunc, macKey)
	h.Write(aad)
	h.Write(iv)
	h.Write(ciphertext)
	h.Write(al(aad))
	full := h.Sum(nil)
	return full[:a.tagBytes]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, joseerr.New(joseerr.IntegrityFailure, "cipher: ciphertext is not a multiple of the block size")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, joseerr.New(joseerr.IntegrityFailure, "cipher: invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, joseerr.New(joseerr.IntegrityFailure, "cipher: invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}

func (a cbcHMACAlg) Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error) {
	macKey, encKey, err := a.splitKey(cek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != a.IVBytes() {
		return nil, nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte IV, got %d", a.name, a.IVBytes(), len(iv))
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, joseerr.Wrap(joseerr.InvalidKey, "cipher: failed to create AES cipher", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag := a.mac(macKey, aad, iv, ciphertext)

	return ciphertext, tag, nil
}

func (a cbcHMACAlg) Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	macKey, encKey, err := a.splitKey(cek)
	if err != nil {
		return nil, err
	}
	if len(iv) != a.IVBytes() {
		return nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte IV, got %d", a.name, a.IVBytes(), len(iv))
	}

	// Verify the authentication tag before touching the padding, so a
	// padding-oracle never gets the chance to run.
	expected := a.mac(macKey, aad, iv, ciphertext)
	if !hmac.Equal(expected, tag) {
		return nil, joseerr.New(joseerr.IntegrityFailure, "cipher: authentication tag mismatch")
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, joseerr.New(joseerr.IntegrityFailure, "cipher: ciphertext is not a multiple of the block size")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.InvalidKey, "cipher: failed to create AES cipher", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// gcmAlg implements AES-GCM content encryption (RFC 7518 section 5.3),
// used directly as the content-encryption AEAD, never as a key-wrap
// primitive (see pkg/keywrap for AnnnGCMKW).
type gcmAlg struct {
	name     jwa.Algorithm
	keyBytes int
}

func (a gcmAlg) Name() jwa.Algorithm { return a.name }
func (a gcmAlg) CEKBytes() int       { return a.keyBytes }
func (a gcmAlg) IVBytes() int        { return 12 }

func (a gcmAlg) GenerateIV() ([]byte, error) {
	return randomBytes(a.IVBytes())
}

func (a gcmAlg) gcm(cek []byte) (cipher.AEAD, error) {
	if len(cek) != a.keyBytes {
		return nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte CEK, got %d", a.name, a.keyBytes, len(cek))
	}
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.InvalidKey, "cipher: failed to create AES cipher", err)
	}
	return cipher.NewGCM(block)
}

func (a gcmAlg) Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error) {
	aead, err := a.gcm(cek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != a.IVBytes() {
		return nil, nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte IV, got %d", a.name, a.IVBytes(), len(iv))
	}
	sealed := aead.Seal(nil, iv, plaintext, aad)
	ciphertext := sealed[:len(sealed)-aead.Overhead()]
	tag := sealed[len(sealed)-aead.Overhead():]
	return ciphertext, tag, nil
}

func (a gcmAlg) Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	aead, err := a.gcm(cek)
	if err != nil {
		return nil, err
	}
	if len(iv) != a.IVBytes() {
		return nil, joseerr.Newf(joseerr.InvalidKey, "cipher: %s requires a %d-byte IV, got %d", a.name, a.IVBytes(), len(iv))
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.IntegrityFailure, "cipher: authentication tag mismatch", err)
	}
	return plaintext, nil
}

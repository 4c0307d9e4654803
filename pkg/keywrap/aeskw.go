package keywrap

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// defaultIV is the 64-bit integrity check value prepended to the key
// being wrapped, per RFC 3394 section 2.2.3.1.
var defaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// aesKeyWrap implements the NIST AES Key Wrap algorithm (RFC 3394).
// No ecosystem package in the retrieved corpus provides this primitive
// (neither the teacher nor golang.org/x/crypto carry it); it is
// reimplemented here directly from the RFC, which specifies the
// algorithm completely in terms of raw AES block operations.
func aesKeyWrap(kek, plaintext []byte) ([]byte, error) {
	if len(plaintext)%8 != 0 || len(plaintext) < 16 {
		return nil, joseerr.New(joseerr.InvalidKey, "keywrap: AES key wrap input must be a multiple of 8 bytes, at least 16")
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.InvalidKey, "keywrap: failed to create AES cipher", err)
	}

	n := len(plaintext) / 8
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, plaintext[i*8:(i+1)*8]...)
	}

	a := append([]byte{}, defaultIV[:]...)
	buf := make([]byte, 16)

	for j := 0; j <= 5; j++ {
		for i := 0; i < n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[i])
			block.Encrypt(buf, buf)

			t := uint64(n*j + i + 1)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			for k := 0; k < 8; k++ {
				buf[k] ^= tb[k]
			}

			a = append([]byte{}, buf[:8]...)
			r[i] = append([]byte{}, buf[8:]...)
		}
	}

	out := make([]byte, 0, 8+len(plaintext))
	out = append(out, a...)
	for _, ri := range r {
		out = append(out, ri...)
	}
	return out, nil
}

// aesKeyUnwrap reverses aesKeyWrap, failing if the integrity check
// value does not match the expected default.
func aesKeyUnwrap(kek, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%8 != 0 || len(ciphertext) < 24 {
		return nil, joseerr.New(joseerr.IntegrityFailure, "keywrap: AES key wrap ciphertext has invalid length")
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.InvalidKey, "keywrap: failed to create AES cipher", err)
	}

	n := len(ciphertext)/8 - 1
	a := append([]byte{}, ciphertext[:8]...)
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, ciphertext[8+i*8:8+(i+1)*8]...)
	}

	buf := make([]byte, 16)

	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			t := uint64(n*j + i + 1)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)

			abuf := append([]byte{}, a...)
			for k := 0; k < 8; k++ {
				abuf[k] ^= tb[k]
			}

			copy(buf[:8], abuf)
			copy(buf[8:], r[i])
			block.Decrypt(buf, buf)

			a = append([]byte{}, buf[:8]...)
			r[i] = append([]byte{}, buf[8:]...)
		}
	}

	if !constantTimeEqual(a, defaultIV[:]) {
		return nil, joseerr.New(joseerr.IntegrityFailure, "keywrap: AES key wrap integrity check failed")
	}

	out := make([]byte, 0, len(ciphertext)-8)
	for _, ri := range r {
		out = append(out, ri...)
	}
	return out, nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// aesKWAlg implements A128KW/A192KW/A256KW: wrap a randomly generated
// CEK with a pre-shared symmetric key.
type aesKWAlg struct {
	name     jwa.Algorithm
	kekBytes int
}

func (a aesKWAlg) Name() jwa.Algorithm { return a.name }

func (a aesKWAlg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	kek, err := symmetricKey(in.Key, a.kekBytes)
	if err != nil {
		return EncryptOutput{}, err
	}
	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}
	wrapped, err := aesKeyWrap(kek, cek)
	if err != nil {
		return EncryptOutput{}, err
	}
	return EncryptOutput{CEK: cek, EncryptedKey: wrapped}, nil
}

// aesKWHandle carries the resolved KEK; Unwrap consumes the encrypted
// key against it.
type aesKWHandle struct{ kek []byte }

func (h aesKWHandle) Unwrap(encryptedKey []byte) ([]byte, error) {
	return aesKeyUnwrap(h.kek, encryptedKey)
}

func (a aesKWAlg) Prepare(in PrepareInput) (Handle, error) {
	kek, err := symmetricKey(in.Key, a.kekBytes)
	if err != nil {
		return nil, err
	}
	return aesKWHandle{kek: kek}, nil
}

// aesGCMKWAlg implements A128GCMKW/A192GCMKW/A256GCMKW: the randomly
// generated CEK is sealed with AES-GCM under the pre-shared symmetric
// key, publishing "iv" and "tag" header parameters (RFC 7518 section
// 4.7).
type aesGCMKWAlg struct {
	name     jwa.Algorithm
	kekBytes int
}

func (a aesGCMKWAlg) Name() jwa.Algorithm { return a.name }

func (a aesGCMKWAlg) gcm(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.InvalidKey, "keywrap: failed to create AES cipher", err)
	}
	return cipher.NewGCM(block)
}

func (a aesGCMKWAlg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	kek, err := symmetricKey(in.Key, a.kekBytes)
	if err != nil {
		return EncryptOutput{}, err
	}
	aead, err := a.gcm(kek)
	if err != nil {
		return EncryptOutput{}, err
	}
	iv, err := randomBytes(aead.NonceSize())
	if err != nil {
		return EncryptOutput{}, err
	}
	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}

	sealed := aead.Seal(nil, iv, cek, nil)
	ciphertext := sealed[:len(sealed)-aead.Overhead()]
	tag := sealed[len(sealed)-aead.Overhead():]

	in.Header.Set(header.InitializationVector, base64urlString(iv))
	in.Header.Set(header.AuthenticationTag, base64urlString(tag))

	return EncryptOutput{CEK: cek, EncryptedKey: ciphertext}, nil
}

// aesGCMKWHandle carries the AEAD keyed with the resolved KEK plus the
// "iv"/"tag" header parameters read at Prepare time; only the
// ciphertext itself is left for Unwrap.
type aesGCMKWHandle struct {
	aead cipher.AEAD
	iv   []byte
	tag  []byte
}

func (h aesGCMKWHandle) Unwrap(encryptedKey []byte) ([]byte, error) {
	sealed := append(append([]byte{}, encryptedKey...), h.tag...)
	cek, err := h.aead.Open(nil, h.iv, sealed, nil)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.IntegrityFailure, "keywrap: AES-GCM key unwrap failed", err)
	}
	return cek, nil
}

func (a aesGCMKWAlg) Prepare(in PrepareInput) (Handle, error) {
	kek, err := symmetricKey(in.Key, a.kekBytes)
	if err != nil {
		return nil, err
	}
	ivStr, err := in.Header.GetString(header.InitializationVector)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "keywrap: missing \"iv\" header parameter", err)
	}
	tagStr, err := in.Header.GetString(header.AuthenticationTag)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "keywrap: missing \"tag\" header parameter", err)
	}
	iv, err := base64urlDecode(ivStr)
	if err != nil {
		return nil, err
	}
	tag, err := base64urlDecode(tagStr)
	if err != nil {
		return nil, err
	}

	aead, err := a.gcm(kek)
	if err != nil {
		return nil, err
	}

	return aesGCMKWHandle{aead: aead, iv: iv, tag: tag}, nil
}

// Package jwe implements JSON Web Encryption (RFC 7516) objects in
// Compact Serialization: five base64url segments —
// encoded-header.encoded-encrypted-key.encoded-iv.encoded-ciphertext.encoded-tag.
package jwe

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/cipher"
	"github.com/josecore/jose/pkg/compact"
	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
	"github.com/josecore/jose/pkg/keywrap"
)

// Header is a JSON object containing the parameters describing the
// cryptographic operations and parameters employed.
type Header = header.Parameters

// MaxDecompressedSize bounds DEFLATE expansion on decrypt (RFC 7516
// section 10.1's "zip bomb" concern): a decompressed plaintext larger
// than this fails with joseerr.DecompressionTooLarge rather than being
// handed to the caller.
const MaxDecompressedSize = 10 * 1024 * 1024

// Message is a parsed or freshly-built JWE object.
type Message struct {
	Header *Header

	EncryptedKey []byte
	IV           []byte
	Ciphertext   []byte
	Tag          []byte

	encodedHeader string
}

// EncryptOptions configures Encrypt beyond what the header specifies.
type EncryptOptions struct {
	KeyConstraints     *jwa.Constraints
	ContentConstraints *jwa.Constraints
}

// Encrypt builds a Message: h must carry "alg" (key management) and
// "enc" (content encryption) header parameters; key is the recipient's
// key material per the chosen "alg". If h has "zip" set to "DEF", the
// plaintext is DEFLATEd before encryption.
func Encrypt(h *Header, plaintext []byte, key any, opts *EncryptOptions) (*Message, error) {
	if opts == nil {
		opts = &EncryptOptions{}
	}
	if opts.KeyConstraints == nil {
		opts.KeyConstraints = jwa.DefaultJWEKeyConstraints()
	}
	if opts.ContentConstraints == nil {
		opts.ContentConstraints = jwa.DefaultJWEEncConstraints()
	}

	keyAlgName, err := h.GetString(header.Algorithm)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: missing or invalid \"alg\" header", err)
	}
	encAlgName, err := h.GetString(header.Encryption)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: missing or invalid \"enc\" header", err)
	}
	keyAlg := jwa.Algorithm(keyAlgName)
	encAlg := jwa.Algorithm(encAlgName)

	if !opts.KeyConstraints.Permits(keyAlg) {
		return nil, joseerr.Newf(joseerr.AlgorithmConstraintViolated, "jwe: key management algorithm %q is not permitted", keyAlg)
	}
	if !opts.ContentConstraints.Permits(encAlg) {
		return nil, joseerr.Newf(joseerr.AlgorithmConstraintViolated, "jwe: content encryption algorithm %q is not permitted", encAlg)
	}

	contentImpl, err := cipher.ByName(encAlg)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jwe: unsupported content encryption algorithm %q", encAlg)
	}

	keyImpl, err := keywrap.ByName(keyAlg)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jwe: unsupported key management algorithm %q", keyAlg)
	}

	wrapped, err := keyImpl.Encrypt(keywrap.EncryptInput{
		Key:           key,
		CEKByteLen:    contentImpl.CEKBytes(),
		ContentEncAlg: encAlg,
		Header:        h,
	})
	if err != nil {
		return nil, err
	}
	if len(wrapped.CEK) != contentImpl.CEKBytes() {
		return nil, joseerr.Newf(joseerr.InvalidKey, "jwe: key management produced a %d-byte CEK, content encryption requires %d", len(wrapped.CEK), contentImpl.CEKBytes())
	}

	body := plaintext
	if zip, _ := h.GetString(header.Compression); zip == jwa.DEF {
		compressed, err := deflate(plaintext)
		if err != nil {
			return nil, joseerr.Wrap(joseerr.Unknown, "jwe: failed to compress plaintext", err)
		}
		body = compressed
	}

	headerBytes, err := h.EncodedBytes()
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to encode header", err)
	}
	aad := []byte(base64.Encode(headerBytes))

	iv, err := contentImpl.GenerateIV()
	if err != nil {
		return nil, err
	}

	ciphertext, tag, err := contentImpl.Encrypt(wrapped.CEK, iv, body, aad)
	if err != nil {
		return nil, err
	}

	return &Message{
		Header:        h,
		EncryptedKey:  wrapped.EncryptedKey,
		IV:            iv,
		Ciphertext:    ciphertext,
		Tag:           tag,
		encodedHeader: base64.Encode(headerBytes),
	}, nil
}

// DecryptOptions configures Decrypt beyond the header's own algorithm
// choices.
type DecryptOptions struct {
	KeyConstraints     *jwa.Constraints
	ContentConstraints *jwa.Constraints

	// KnownCriticalHeaders extends the key management algorithm's own
	// built-in supported-critical set with names the caller (a
	// higher-level protocol such as pkg/jwt's consumer) recognizes and
	// handles itself.
	KnownCriticalHeaders []string
}

// Decrypt recovers the plaintext protected by m, using key as the
// recipient's key material. Tag verification inside the content
// encryption algorithm completes before any decompression or other
// processing of the candidate plaintext, per RFC 7516 section 5.2 step 15.
func (m *Message) Decrypt(key any, opts *DecryptOptions) ([]byte, error) {
	if opts == nil {
		opts = &DecryptOptions{}
	}
	if opts.KeyConstraints == nil {
		opts.KeyConstraints = jwa.DefaultJWEKeyConstraints()
	}
	if opts.ContentConstraints == nil {
		opts.ContentConstraints = jwa.DefaultJWEEncConstraints()
	}

	keyAlgName, err := m.Header.GetString(header.Algorithm)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: missing or invalid \"alg\" header", err)
	}
	encAlgName, err := m.Header.GetString(header.Encryption)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: missing or invalid \"enc\" header", err)
	}
	keyAlg := jwa.Algorithm(keyAlgName)
	encAlg := jwa.Algorithm(encAlgName)

	if !opts.KeyConstraints.Permits(keyAlg) {
		return nil, joseerr.Newf(joseerr.AlgorithmConstraintViolated, "jwe: key management algorithm %q is not permitted", keyAlg)
	}
	if !opts.ContentConstraints.Permits(encAlg) {
		return nil, joseerr.Newf(joseerr.AlgorithmConstraintViolated, "jwe: content encryption algorithm %q is not permitted", encAlg)
	}

	if err := enforceCritical(m.Header, keyAlg, opts.KnownCriticalHeaders); err != nil {
		return nil, err
	}

	contentImpl, err := cipher.ByName(encAlg)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jwe: unsupported content encryption algorithm %q", encAlg)
	}

	keyImpl, err := keywrap.ByName(keyAlg)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jwe: unsupported key management algorithm %q", keyAlg)
	}

	cek, err := keywrap.Decrypt(keyImpl, keywrap.DecryptInput{
		Key:           key,
		EncryptedKey:  m.EncryptedKey,
		CEKByteLen:    contentImpl.CEKBytes(),
		ContentEncAlg: encAlg,
		Header:        m.Header,
	})
	if err != nil {
		return nil, err
	}

	aad := []byte(m.encodedHeaderOrDerive())

	body, err := contentImpl.Decrypt(cek, m.IV, m.Ciphertext, m.Tag, aad)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.IntegrityFailure, "jwe: content decryption failed", err)
	}

	if zip, _ := m.Header.GetString(header.Compression); zip == jwa.DEF {
		plaintext, err := inflate(body, MaxDecompressedSize)
		if err != nil {
			return nil, err
		}
		return plaintext, nil
	}

	return body, nil
}

func (m *Message) encodedHeaderOrDerive() string {
	if m.encodedHeader != "" {
		return m.encodedHeader
	}
	headerBytes, err := m.Header.EncodedBytes()
	if err != nil {
		return ""
	}
	m.encodedHeader = base64.Encode(headerBytes)
	return m.encodedHeader
}

// enforceCritical rejects a "crit" header naming anything outside the
// key management algorithm's built-in supported-critical set (the
// GCMKW/PBES2/ECDH-ES variants each publish their own additional
// header parameters and declare them critical-safe) plus the
// caller-supplied knownCritical names.
func enforceCritical(h *Header, keyAlg jwa.Algorithm, knownCritical []string) error {
	names, err := h.Critical()
	if err != nil || len(names) == 0 {
		return nil
	}

	desc, known := jwa.LookupKeyMgmt(keyAlg)
	supported := map[string]bool{}
	if known {
		for _, n := range desc.SupportedCritical {
			supported[n] = true
		}
	}
	for _, n := range knownCritical {
		supported[n] = true
	}

	for _, n := range names {
		if !supported[n] {
			return joseerr.Newf(joseerr.UnrecognizedCritical, "jwe: unrecognized critical header %q", n)
		}
	}
	return nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte, maxSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	limited := io.LimitReader(r, int64(maxSize)+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.Unknown, "jwe: failed to decompress plaintext", err)
	}
	if len(out) > maxSize {
		return nil, joseerr.Newf(joseerr.DecompressionTooLarge, "jwe: decompressed plaintext exceeds %d bytes", maxSize)
	}
	return out, nil
}

// String returns the Compact Serialization of m.
func (m *Message) String() string {
	return compact.Join(
		m.encodedHeaderOrDerive(),
		base64.Encode(m.EncryptedKey),
		base64.Encode(m.IV),
		base64.Encode(m.Ciphertext),
		base64.Encode(m.Tag),
	)
}

// Parse parses a JWE Compact Serialization string.
func Parse(input string) (*Message, error) {
	if input == "" {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jwe: empty JWE string")
	}

	parts, err := compact.RequireParts(input, 5)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: malformed compact serialization", err)
	}

	h, err := header.Parse(parts[0])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to parse header", err)
	}

	encryptedKey, err := base64.Decode(parts[1])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to decode encrypted key", err)
	}

	iv, err := base64.Decode(parts[2])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to decode IV", err)
	}

	ciphertext, err := base64.Decode(parts[3])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to decode ciphertext", err)
	}
	if len(ciphertext) == 0 {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jwe: ciphertext segment must not be empty")
	}

	tag, err := base64.Decode(parts[4])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwe: failed to decode authentication tag", err)
	}
	if len(tag) == 0 {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jwe: authentication tag segment must not be empty")
	}

	return &Message{
		Header:        h,
		EncryptedKey:  encryptedKey,
		IV:            iv,
		Ciphertext:    ciphertext,
		Tag:           tag,
		encodedHeader: parts[0],
	}, nil
}

// Package keywrap implements the JWE key management algorithms of RFC
// 7518 section 4: how the Content Encryption Key (CEK) that protects
// the JWE payload is itself produced and protected for each recipient.
//
// Four shapes exist, and every algorithm below is exactly one of them:
//
//   - Key Encryption: a CEK is generated at random and wrapped with the
//     recipient's key (RSA1_5, RSA-OAEP(-256), AxxxKW, AxxxGCMKW,
//     PBES2-HSxxx+AxxxKW).
//   - Direct Encryption: the recipient's key is used as the CEK
//     directly ("dir").
//   - Direct Key Agreement: a shared secret is derived and used as the
//     CEK directly (ECDH-ES).
//   - Key Agreement with Key Wrapping: a shared secret derives a KEK,
//     which wraps a randomly generated CEK (ECDH-ES+AxxxKW).
package keywrap

import (
	"crypto/rand"
	"io"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// EncryptInput is what an Algorithm needs to produce a CEK and its
// encrypted-key representation for one recipient.
type EncryptInput struct {
	// Key is the recipient's key material: a shared secret ([]byte) for
	// oct-kind algorithms, a password ([]byte or string) for PBES2, or a
	// public key for RSA/EC algorithms.
	Key any

	// CEKByteLen is the CEK length required by the chosen content
	// encryption algorithm ("enc").
	CEKByteLen int

	// ContentEncAlg is the "enc" algorithm name, used as the Concat KDF
	// AlgorithmID input for direct key agreement.
	ContentEncAlg jwa.Algorithm

	// Header is the fresh per-recipient JOSE header; algorithms that
	// need to publish additional parameters (epk, p2s, p2c, iv, tag)
	// call Header.Set before returning.
	Header *header.Parameters
}

// EncryptOutput is the result of EncryptInput processing.
type EncryptOutput struct {
	CEK          []byte
	EncryptedKey []byte
}

// PrepareInput is everything an Algorithm needs to resolve the
// management key into a decryption Handle, short of the encrypted CEK
// itself.
type PrepareInput struct {
	// Key is the recipient's private key material, mirroring EncryptInput.Key.
	Key any

	CEKByteLen int

	ContentEncAlg jwa.Algorithm

	// Header is the parsed per-recipient JOSE header; algorithms read
	// back whatever parameters their Encrypt side published.
	Header *header.Parameters
}

// DecryptInput is what Decrypt needs to recover the CEK in one call; it
// is PrepareInput plus the encrypted key, kept around for call sites
// that have no reason to hold a Handle across the two phases.
type DecryptInput struct {
	Key any

	EncryptedKey []byte

	CEKByteLen int

	ContentEncAlg jwa.Algorithm

	Header *header.Parameters
}

// Handle is a management key already resolved by Prepare against a
// specific header, ready to recover a CEK from an encrypted key. Its
// existence is what lets a caller bind to key material once — a
// primitive living behind an HSM or KMS handle, say — and then use that
// binding to unwrap, without the unwrap step ever needing direct access
// to the raw key again.
type Handle interface {
	Unwrap(encryptedKey []byte) ([]byte, error)
}

// Algorithm is the JWE key management capability. Decrypt is two-phase:
// Prepare resolves the management key and header parameters into a
// Handle, and the Handle's Unwrap recovers the CEK from the encrypted
// key. This split exists because resolving the key (loading a private
// key, deriving a KEK from a password or an ECDH shared secret) and
// consuming the encrypted key are logically separate steps, and some
// deployments bind the first step to external key material that is
// never handed back to the caller as raw bytes.
type Algorithm interface {
	Name() jwa.Algorithm
	Encrypt(in EncryptInput) (EncryptOutput, error)
	Prepare(in PrepareInput) (Handle, error)
}

// Decrypt runs both phases of a.Prepare/Handle.Unwrap for callers that
// have no reason to hold the Handle across calls, and checks the
// recovered CEK is the length the content encryption algorithm expects.
func Decrypt(a Algorithm, in DecryptInput) ([]byte, error) {
	handle, err := a.Prepare(PrepareInput{
		Key:           in.Key,
		CEKByteLen:    in.CEKByteLen,
		ContentEncAlg: in.ContentEncAlg,
		Header:        in.Header,
	})
	if err != nil {
		return nil, err
	}

	cek, err := handle.Unwrap(in.EncryptedKey)
	if err != nil {
		return nil, err
	}
	if len(cek) != in.CEKByteLen {
		return nil, joseerr.Newf(joseerr.IntegrityFailure, "keywrap: unwrapped CEK is %d bytes, want %d", len(cek), in.CEKByteLen)
	}
	return cek, nil
}

// ByName returns the keywrap.Algorithm for a registered jwa.Algorithm
// key management name.
func ByName(name jwa.Algorithm) (Algorithm, error) {
	a, ok := registry[name]
	if !ok {
		return nil, joseerr.Newf(joseerr.UnsupportedAlgorithm, "keywrap: no key management algorithm registered for %q", name)
	}
	return a, nil
}

var registry = map[jwa.Algorithm]Algorithm{
	jwa.Direct: dirAlg{},

	jwa.A128KW: aesKWAlg{name: jwa.A128KW, kekBytes: 16},
	jwa.A192KW: aesKWAlg{name: jwa.A192KW, kekBytes: 24},
	jwa.A256KW: aesKWAlg{name: jwa.A256KW, kekBytes: 32},

	jwa.A128GCMKW: aesGCMKWAlg{name: jwa.A128GCMKW, kekBytes: 16},
	jwa.A192GCMKW: aesGCMKWAlg{name: jwa.A192GCMKW, kekBytes: 24},
	jwa.A256GCMKW: aesGCMKWAlg{name: jwa.A256GCMKW, kekBytes: 32},

	jwa.PBES2_HS256_A128KW: newPBES2Alg(jwa.PBES2_HS256_A128KW),
	jwa.PBES2_HS384_A192KW: newPBES2Alg(jwa.PBES2_HS384_A192KW),
	jwa.PBES2_HS512_A256KW: newPBES2Alg(jwa.PBES2_HS512_A256KW),

	jwa.RSA1_5:     rsa15Alg{},
	jwa.RSAOAEP:    rsaOAEPAlg{name: jwa.RSAOAEP},
	jwa.RSAOAEP256: rsaOAEPAlg{name: jwa.RSAOAEP256},

	jwa.ECDHES:       ecdhAlg{name: jwa.ECDHES},
	jwa.ECDHESA128KW: ecdhAlg{name: jwa.ECDHESA128KW, kwName: jwa.A128KW, kekBytes: 16},
	jwa.ECDHESA192KW: ecdhAlg{name: jwa.ECDHESA192KW, kwName: jwa.A192KW, kekBytes: 24},
	jwa.ECDHESA256KW: ecdhAlg{name: jwa.ECDHESA256KW, kwName: jwa.A256KW, kekBytes: 32},
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, joseerr.Wrap(joseerr.Unknown, "keywrap: failed to read random bytes", err)
	}
	return b, nil
}

func symmetricKey(key any, wantBytes int) ([]byte, error) {
	var k []byte
	switch v := key.(type) {
	case []byte:
		k = v
	case string:
		k = []byte(v)
	default:
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: expected []byte or string key, got %T", key)
	}
	if len(k) != wantBytes {
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: key is %d bytes, want %d", len(k), wantBytes)
	}
	return k, nil
}

// dirAlg implements "dir": the shared key is the CEK, verbatim.
type dirAlg struct{}

func (dirAlg) Name() jwa.Algorithm { return jwa.Direct }

func (a dirAlg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	cek, err := symmetricKey(in.Key, in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}
	return EncryptOutput{CEK: cek, EncryptedKey: []byte{}}, nil
}

// dirHandle carries the already-validated CEK; dir has no encrypted
// key to unwrap, so Unwrap ignores its argument.
type dirHandle struct{ cek []byte }

func (h dirHandle) Unwrap(_ []byte) ([]byte, error) { return h.cek, nil }

func (a dirAlg) Prepare(in PrepareInput) (Handle, error) {
	cek, err := symmetricKey(in.Key, in.CEKByteLen)
	if err != nil {
		return nil, err
	}
	return dirHandle{cek: cek}, nil
}

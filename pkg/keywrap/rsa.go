package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// rsa15Alg implements RSA1_5. Decrypt uses
// rsa.DecryptPKCS1v15SessionKey, which the standard library provides
// specifically to defeat the Bleichenbacher padding-oracle attack: on
// a padding failure it silently returns the caller-supplied random
// placeholder instead of an error, so no observable timing or error
// signal distinguishes a valid ciphertext from an invalid one.
type rsa15Alg struct{}

func (rsa15Alg) Name() jwa.Algorithm { return jwa.RSA1_5 }

func (a rsa15Alg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	pub, ok := in.Key.(*rsa.PublicKey)
	if !ok {
		return EncryptOutput{}, joseerr.Newf(joseerr.InvalidKey, "keywrap: RSA1_5 requires an *rsa.PublicKey, got %T", in.Key)
	}
	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, cek)
	if err != nil {
		return EncryptOutput{}, joseerr.Wrap(joseerr.InvalidKey, "keywrap: RSA1_5 encryption failed", err)
	}
	return EncryptOutput{CEK: cek, EncryptedKey: wrapped}, nil
}

// rsa15Handle carries the private key and the target CEK length; the
// Bleichenbacher countermeasure needs the encrypted key itself, so it
// lives entirely in Unwrap.
type rsa15Handle struct {
	priv       *rsa.PrivateKey
	cekByteLen int
}

func (h rsa15Handle) Unwrap(encryptedKey []byte) ([]byte, error) {
	cek := make([]byte, h.cekByteLen)
	if _, err := rand.Read(cek); err != nil {
		return nil, joseerr.Wrap(joseerr.Unknown, "keywrap: failed to read random bytes", err)
	}
	if err := rsa.DecryptPKCS1v15SessionKey(rand.Reader, h.priv, encryptedKey, cek); err != nil {
		// DecryptPKCS1v15SessionKey only returns an error for malformed
		// ciphertext lengths, never for padding failures; on padding
		// failure it leaves cek unmodified from the caller-supplied
		// random bytes above.
		return nil, joseerr.Wrap(joseerr.IntegrityFailure, "keywrap: RSA1_5 decryption failed", err)
	}
	return cek, nil
}

func (a rsa15Alg) Prepare(in PrepareInput) (Handle, error) {
	priv, ok := in.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: RSA1_5 requires an *rsa.PrivateKey, got %T", in.Key)
	}
	return rsa15Handle{priv: priv, cekByteLen: in.CEKByteLen}, nil
}

// rsaOAEPAlg implements RSA-OAEP (SHA-1) and RSA-OAEP-256 (SHA-256).
type rsaOAEPAlg struct {
	name jwa.Algorithm
}

func (a rsaOAEPAlg) Name() jwa.Algorithm { return a.name }

func (a rsaOAEPAlg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	pub, ok := in.Key.(*rsa.PublicKey)
	if !ok {
		return EncryptOutput{}, joseerr.Newf(joseerr.InvalidKey, "keywrap: %s requires an *rsa.PublicKey, got %T", a.name, in.Key)
	}
	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}

	var wrapped []byte
	if a.name == jwa.RSAOAEP256 {
		wrapped, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, cek, nil)
	} else {
		wrapped, err = rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, cek, nil)
	}
	if err != nil {
		return EncryptOutput{}, joseerr.Wrapf(joseerr.InvalidKey, err, "keywrap: %s encryption failed", a.name)
	}
	return EncryptOutput{CEK: cek, EncryptedKey: wrapped}, nil
}

type rsaOAEPHandle struct {
	priv *rsa.PrivateKey
	name jwa.Algorithm
}

func (h rsaOAEPHandle) Unwrap(encryptedKey []byte) ([]byte, error) {
	var cek []byte
	var err error
	if h.name == jwa.RSAOAEP256 {
		cek, err = rsa.DecryptOAEP(sha256.New(), rand.Reader, h.priv, encryptedKey, nil)
	} else {
		cek, err = rsa.DecryptOAEP(sha1.New(), rand.Reader, h.priv, encryptedKey, nil)
	}
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.IntegrityFailure, err, "keywrap: %s decryption failed", h.name)
	}
	return cek, nil
}

func (a rsaOAEPAlg) Prepare(in PrepareInput) (Handle, error) {
	priv, ok := in.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: %s requires an *rsa.PrivateKey, got %T", a.name, in.Key)
	}
	return rsaOAEPHandle{priv: priv, name: a.name}, nil
}

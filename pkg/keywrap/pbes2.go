package keywrap

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// MaxPBES2Count bounds the "p2c" iteration count a decrypter will
// honor. Without a ceiling, a malicious sender could name an
// attacker-chosen iteration count in the 2^31 range and turn a single
// decrypt call into a denial-of-service.
const MaxPBES2Count = 10_000_000

// DefaultPBES2Count is the iteration count this package uses when
// encrypting, matching the magnitude of the RFC 7520 PBES2 examples.
const DefaultPBES2Count = 8192

// DefaultPBES2SaltInputBytes is the salt input length this package
// generates when encrypting, per RFC 7518 section 4.8's recommendation
// of at least 8 bytes; 16 gives a comfortable margin.
const DefaultPBES2SaltInputBytes = 16

type pbes2Alg struct {
	name      jwa.Algorithm
	hashFunc  func() hash.Hash
	kekBytes  int
}

func newPBES2Alg(name jwa.Algorithm) pbes2Alg {
	switch name {
	case jwa.PBES2_HS256_A128KW:
		return pbes2Alg{name: name, hashFunc: sha256.New, kekBytes: 16}
	case jwa.PBES2_HS384_A192KW:
		return pbes2Alg{name: name, hashFunc: sha512.New384, kekBytes: 24}
	case jwa.PBES2_HS512_A256KW:
		return pbes2Alg{name: name, hashFunc: sha512.New, kekBytes: 32}
	default:
		panic("keywrap: unknown PBES2 variant " + name)
	}
}

func (a pbes2Alg) Name() jwa.Algorithm { return a.name }

func (a pbes2Alg) password(key any) ([]byte, error) {
	switch v := key.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: %s requires a []byte or string password, got %T", a.name, key)
	}
}

// derive builds the PBKDF2 salt per RFC 7518 section 4.8.1.1: the
// UTF-8 algorithm name, a 0x00 separator, then the salt input, and runs
// PBKDF2 with this package's hash to produce a KEK of a.kekBytes.
func (a pbes2Alg) derive(password, saltInput []byte, count int) []byte {
	salt := make([]byte, 0, len(a.name)+1+len(saltInput))
	salt = append(salt, []byte(a.name)...)
	salt = append(salt, 0x00)
	salt = append(salt, saltInput...)
	return pbkdf2.Key(password, salt, count, a.kekBytes, a.hashFunc)
}

func (a pbes2Alg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	password, err := a.password(in.Key)
	if err != nil {
		return EncryptOutput{}, err
	}

	saltInput, err := randomBytes(DefaultPBES2SaltInputBytes)
	if err != nil {
		return EncryptOutput{}, err
	}
	count := DefaultPBES2Count

	kek := a.derive(password, saltInput, count)

	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}
	wrapped, err := aesKeyWrap(kek, cek)
	if err != nil {
		return EncryptOutput{}, err
	}

	in.Header.Set(header.PBES2SaltInput, base64urlString(saltInput))
	in.Header.Set(header.PBES2Count, int64(count))

	return EncryptOutput{CEK: cek, EncryptedKey: wrapped}, nil
}

// pbes2Handle carries the KEK already derived from the password and
// the "p2s"/"p2c" header parameters; Unwrap only has AES key unwrap
// left to do.
type pbes2Handle struct{ kek []byte }

func (h pbes2Handle) Unwrap(encryptedKey []byte) ([]byte, error) {
	return aesKeyUnwrap(h.kek, encryptedKey)
}

func (a pbes2Alg) Prepare(in PrepareInput) (Handle, error) {
	password, err := a.password(in.Key)
	if err != nil {
		return nil, err
	}

	saltInputStr, err := in.Header.GetString(header.PBES2SaltInput)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "keywrap: missing \"p2s\" header parameter", err)
	}
	saltInput, err := base64urlDecode(saltInputStr)
	if err != nil {
		return nil, err
	}

	count64, err := in.Header.GetInt64(header.PBES2Count)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "keywrap: missing \"p2c\" header parameter", err)
	}
	if count64 <= 0 || count64 > MaxPBES2Count {
		return nil, joseerr.Newf(joseerr.AlgorithmConstraintViolated, "keywrap: \"p2c\" %d exceeds the maximum permitted iteration count %d", count64, MaxPBES2Count)
	}

	kek := a.derive(password, saltInput, int(count64))
	return pbes2Handle{kek: kek}, nil
}

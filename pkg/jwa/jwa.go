// Package jwa is the JOSE algorithm registry: four independent,
// read-only tables mapping a header-declared algorithm identifier to a
// descriptor of the primitive it names (required key kind, minimum
// strength, whether it is integrity-providing on its own, and an
// Available method). No descriptor is probed at run time: every
// registered primitive is compiled in, and Available reports true for
// all of them.
//
// Per RFC 7518. The tables are built once at package initialization and
// never mutated afterward, so concurrent reads from any number of
// goroutines are safe without further synchronization — the same
// immutability contract the rest of this module relies on for its
// registry types.
package jwa

import (
	"golang.org/x/exp/slices"
)

// Algorithm is a JOSE "alg"/"enc"/"zip" header value, e.g. "RS256".
type Algorithm = string

// KeyKind identifies the family of key material an algorithm requires.
type KeyKind string

const (
	KindRSA      KeyKind = "RSA"
	KindEC       KeyKind = "EC"
	KindOKP      KeyKind = "OKP"
	KindOct      KeyKind = "oct"
	KindPassword KeyKind = "password"
	KindNone     KeyKind = "none"
)

// JWS Signature Algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.1
const (
	HS256  Algorithm = "HS256"
	HS384  Algorithm = "HS384"
	HS512  Algorithm = "HS512"
	RS256  Algorithm = "RS256"
	RS384  Algorithm = "RS384"
	RS512  Algorithm = "RS512"
	ES256  Algorithm = "ES256"
	ES384  Algorithm = "ES384"
	ES512  Algorithm = "ES512"
	PS256  Algorithm = "PS256"
	PS384  Algorithm = "PS384"
	PS512  Algorithm = "PS512"
	ES256K Algorithm = "ES256K"
	EdDSA  Algorithm = "EdDSA"
	None   Algorithm = "none"
)

// JWE Key Management Algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4
const (
	Direct            Algorithm = "dir"
	A128KW            Algorithm = "A128KW"
	A192KW            Algorithm = "A192KW"
	A256KW            Algorithm = "A256KW"
	A128GCMKW         Algorithm = "A128GCMKW"
	A192GCMKW         Algorithm = "A192GCMKW"
	A256GCMKW         Algorithm = "A256GCMKW"
	PBES2_HS256_A128KW Algorithm = "PBES2-HS256+A128KW"
	PBES2_HS384_A192KW Algorithm = "PBES2-HS384+A192KW"
	PBES2_HS512_A256KW Algorithm = "PBES2-HS512+A256KW"
	RSA1_5            Algorithm = "RSA1_5"
	RSAOAEP           Algorithm = "RSA-OAEP"
	RSAOAEP256        Algorithm = "RSA-OAEP-256"
	ECDHES            Algorithm = "ECDH-ES"
	ECDHESA128KW      Algorithm = "ECDH-ES+A128KW"
	ECDHESA192KW      Algorithm = "ECDH-ES+A192KW"
	ECDHESA256KW      Algorithm = "ECDH-ES+A256KW"
)

// JWE Content Encryption Algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5
const (
	A128CBCHS256 Algorithm = "A128CBC-HS256"
	A192CBCHS384 Algorithm = "A192CBC-HS384"
	A256CBCHS512 Algorithm = "A256CBC-HS512"
	A128GCM      Algorithm = "A128GCM"
	A192GCM      Algorithm = "A192GCM"
	A256GCM      Algorithm = "A256GCM"
)

// Compression Algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7516#section-4.1.3
const DEF Algorithm = "DEF"

// SigDescriptor describes a JWS signature algorithm.
type SigDescriptor struct {
	Name              Algorithm
	KeyKind           KeyKind
	MinKeyBits        int // 0 means "not applicable / checked elsewhere"
	ProvidesIntegrity bool
	SupportedCritical []string
	available         func() bool
}

func (d SigDescriptor) Available() bool {
	if d.available == nil {
		return true
	}
	return d.available()
}

// KeyMgmtDescriptor describes a JWE key management algorithm.
type KeyMgmtDescriptor struct {
	Name              Algorithm
	KeyKind           KeyKind
	ProvidesIntegrity bool // key management alone never provides integrity
	SupportedCritical []string
	available         func() bool
}

func (d KeyMgmtDescriptor) Available() bool {
	if d.available == nil {
		return true
	}
	return d.available()
}

// ContentEncDescriptor describes a JWE content encryption algorithm.
type ContentEncDescriptor struct {
	Name              Algorithm
	CEKBytes          int
	IVBytes           int
	ProvidesIntegrity bool // AEAD, so always true
	available         func() bool
}

func (d ContentEncDescriptor) Available() bool {
	if d.available == nil {
		return true
	}
	return d.available()
}

// CompressionDescriptor describes a compression algorithm.
type CompressionDescriptor struct {
	Name      Algorithm
	available func() bool
}

func (d CompressionDescriptor) Available() bool {
	if d.available == nil {
		return true
	}
	return d.available()
}

var sigTable = map[Algorithm]SigDescriptor{
	HS256: {Name: HS256, KeyKind: KindOct, ProvidesIntegrity: true},
	HS384: {Name: HS384, KeyKind: KindOct, ProvidesIntegrity: true},
	HS512: {Name: HS512, KeyKind: KindOct, ProvidesIntegrity: true},

	RS256: {Name: RS256, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},
	RS384: {Name: RS384, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},
	RS512: {Name: RS512, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},

	PS256: {Name: PS256, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},
	PS384: {Name: PS384, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},
	PS512: {Name: PS512, KeyKind: KindRSA, MinKeyBits: 2048, ProvidesIntegrity: true},

	ES256:  {Name: ES256, KeyKind: KindEC, ProvidesIntegrity: true},
	ES384:  {Name: ES384, KeyKind: KindEC, ProvidesIntegrity: true},
	ES512:  {Name: ES512, KeyKind: KindEC, ProvidesIntegrity: true},
	ES256K: {Name: ES256K, KeyKind: KindEC, ProvidesIntegrity: true},

	EdDSA: {Name: EdDSA, KeyKind: KindOKP, ProvidesIntegrity: true},

	None: {Name: None, KeyKind: KindNone, ProvidesIntegrity: false},
}

var keyMgmtTable = map[Algorithm]KeyMgmtDescriptor{
	Direct: {Name: Direct, KeyKind: KindOct},

	A128KW: {Name: A128KW, KeyKind: KindOct},
	A192KW: {Name: A192KW, KeyKind: KindOct},
	A256KW: {Name: A256KW, KeyKind: KindOct},

	A128GCMKW: {Name: A128GCMKW, KeyKind: KindOct, SupportedCritical: []string{"iv", "tag"}},
	A192GCMKW: {Name: A192GCMKW, KeyKind: KindOct, SupportedCritical: []string{"iv", "tag"}},
	A256GCMKW: {Name: A256GCMKW, KeyKind: KindOct, SupportedCritical: []string{"iv", "tag"}},

	PBES2_HS256_A128KW: {Name: PBES2_HS256_A128KW, KeyKind: KindPassword, SupportedCritical: []string{"p2s", "p2c"}},
	PBES2_HS384_A192KW: {Name: PBES2_HS384_A192KW, KeyKind: KindPassword, SupportedCritical: []string{"p2s", "p2c"}},
	PBES2_HS512_A256KW: {Name: PBES2_HS512_A256KW, KeyKind: KindPassword, SupportedCritical: []string{"p2s", "p2c"}},

	RSA1_5:     {Name: RSA1_5, KeyKind: KindRSA},
	RSAOAEP:    {Name: RSAOAEP, KeyKind: KindRSA},
	RSAOAEP256: {Name: RSAOAEP256, KeyKind: KindRSA},

	ECDHES:       {Name: ECDHES, KeyKind: KindEC, SupportedCritical: []string{"epk", "apu", "apv"}},
	ECDHESA128KW: {Name: ECDHESA128KW, KeyKind: KindEC, SupportedCritical: []string{"epk", "apu", "apv"}},
	ECDHESA192KW: {Name: ECDHESA192KW, KeyKind: KindEC, SupportedCritical: []string{"epk", "apu", "apv"}},
	ECDHESA256KW: {Name: ECDHESA256KW, KeyKind: KindEC, SupportedCritical: []string{"epk", "apu", "apv"}},
}

var contentEncTable = map[Algorithm]ContentEncDescriptor{
	A128CBCHS256: {Name: A128CBCHS256, CEKBytes: 32, IVBytes: 16, ProvidesIntegrity: true},
	A192CBCHS384: {Name: A192CBCHS384, CEKBytes: 48, IVBytes: 16, ProvidesIntegrity: true},
	A256CBCHS512: {Name: A256CBCHS512, CEKBytes: 64, IVBytes: 16, ProvidesIntegrity: true},

	A128GCM: {Name: A128GCM, CEKBytes: 16, IVBytes: 12, ProvidesIntegrity: true},
	A192GCM: {Name: A192GCM, CEKBytes: 24, IVBytes: 12, ProvidesIntegrity: true},
	A256GCM: {Name: A256GCM, CEKBytes: 32, IVBytes: 12, ProvidesIntegrity: true},
}

var compressionTable = map[Algorithm]CompressionDescriptor{
	DEF: {Name: DEF},
}

// LookupSignature returns the descriptor for a JWS signature algorithm.
func LookupSignature(name Algorithm) (SigDescriptor, bool) {
	d, ok := sigTable[name]
	return d, ok
}

// LookupKeyMgmt returns the descriptor for a JWE key management algorithm.
func LookupKeyMgmt(name Algorithm) (KeyMgmtDescriptor, bool) {
	d, ok := keyMgmtTable[name]
	return d, ok
}

// LookupContentEnc returns the descriptor for a JWE content encryption
// algorithm.
func LookupContentEnc(name Algorithm) (ContentEncDescriptor, bool) {
	d, ok := contentEncTable[name]
	return d, ok
}

// LookupCompression returns the descriptor for a compression algorithm.
func LookupCompression(name Algorithm) (CompressionDescriptor, bool) {
	d, ok := compressionTable[name]
	return d, ok
}

// Constraints is an allow-list of algorithm identifiers. A nil
// *Constraints, like the value NoConstraints returns, permits everything.
type Constraints struct {
	allowed map[Algorithm]struct{}
	any     bool
}

// NoConstraints permits every algorithm. It is the default for JWE
// content-encryption algorithms, per spec. The result is non-nil, so
// options that read a nil field as "use the defaults" (such as
// jwe.EncryptOptions.KeyConstraints) see it as an explicit opt-in.
func NoConstraints() *Constraints {
	return &Constraints{any: true}
}

// NewConstraints returns a Constraints permitting exactly the given
// algorithms.
func NewConstraints(allowed ...Algorithm) *Constraints {
	m := make(map[Algorithm]struct{}, len(allowed))
	for _, a := range allowed {
		m[a] = struct{}{}
	}
	return &Constraints{allowed: m}
}

// Permits reports whether alg is allowed under c. A nil Constraints
// permits everything.
func (c *Constraints) Permits(alg Algorithm) bool {
	if c == nil || c.any {
		return true
	}
	_, ok := c.allowed[alg]
	return ok
}

// Allowed returns the algorithms permitted by c, or nil if c is
// unconstrained.
func (c *Constraints) Allowed() []Algorithm {
	if c == nil || c.any {
		return nil
	}
	out := make([]Algorithm, 0, len(c.allowed))
	for a := range c.allowed {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// DefaultJWSConstraints permits every registered signature algorithm
// except "none" and ES256K, which must be explicitly opted into.
func DefaultJWSConstraints() *Constraints {
	return NewConstraints(
		HS256, HS384, HS512,
		RS256, RS384, RS512,
		PS256, PS384, PS512,
		ES256, ES384, ES512,
		EdDSA,
	)
}

// DefaultJWEKeyConstraints permits every registered key management
// algorithm except RSA1_5 and the PBES2-* family, which must be
// explicitly opted into (spec.md section 4.10).
func DefaultJWEKeyConstraints() *Constraints {
	return NewConstraints(
		Direct,
		A128KW, A192KW, A256KW,
		A128GCMKW, A192GCMKW, A256GCMKW,
		RSAOAEP, RSAOAEP256,
		ECDHES, ECDHESA128KW, ECDHESA192KW, ECDHESA256KW,
	)
}

// DefaultJWEEncConstraints permits every registered content encryption
// algorithm; spec.md section 4.10 notes content-encryption constraints
// default to NoConstraints.
func DefaultJWEEncConstraints() *Constraints {
	return NoConstraints()
}

// IsSymmetric reports whether alg is one of the HMAC signature
// algorithms.
func IsSymmetric(alg Algorithm) bool {
	switch alg {
	case HS256, HS384, HS512:
		return true
	default:
		return false
	}
}

// IsAsymmetric reports whether alg is one of the public-key signature
// algorithms.
func IsAsymmetric(alg Algorithm) bool {
	switch alg {
	case RS256, RS384, RS512,
		PS256, PS384, PS512,
		ES256, ES384, ES512, ES256K,
		EdDSA:
		return true
	default:
		return false
	}
}

// Package jws implements JSON Web Signature (RFC 7515) objects in
// Compact Serialization: encoded-header.encoded-payload.encoded-signature.
package jws

import (
	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/compact"
	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
	"github.com/josecore/jose/pkg/signer"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Header is comprised
// of a set of Header Parameters.
type Header = header.Parameters

// Signature is a parsed or freshly-built JWS object: a header, a
// payload, and the signature bytes over the two. The encoded header and
// payload are cached at Sign/Parse time so re-serialization never
// perturbs the exact bytes that were signed.
type Signature struct {
	Header *Header

	Payload []byte

	Signature []byte

	encodedHeader  string
	encodedPayload string
}

// New builds and signs a Signature: h must carry an "alg" header
// parameter naming a registered signature algorithm; key must be the
// private (or symmetric) key that algorithm requires.
func New(h *Header, payload []byte, key any) (*Signature, error) {
	sig := &Signature{Header: h, Payload: payload}
	if _, err := sig.Sign(key); err != nil {
		return nil, err
	}
	return sig, nil
}

// signingInput returns ASCII(encoded-header) || '.' || ASCII(encoded-payload).
func signingInput(encodedHeader, encodedPayload string) []byte {
	b := make([]byte, 0, len(encodedHeader)+1+len(encodedPayload))
	b = append(b, encodedHeader...)
	b = append(b, '.')
	b = append(b, encodedPayload...)
	return b
}

func algorithmOf(h *Header) (jwa.Algorithm, error) {
	alg, err := h.Algorithm()
	if err != nil {
		return "", joseerr.Wrap(joseerr.MalformedEncoding, "jws: missing or invalid algorithm", err)
	}
	return jwa.Algorithm(alg), nil
}

// Sign (re)computes s.Signature over s.Header/s.Payload using key, and
// caches the encoded header/payload so String/Verify reuse the exact
// same bytes. It returns the signature bytes for convenience.
func (s *Signature) Sign(key any) ([]byte, error) {
	alg, err := algorithmOf(s.Header)
	if err != nil {
		return nil, err
	}

	impl, err := signer.ByName(alg)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jws: unsupported algorithm %q", alg)
	}

	headerBytes, err := s.Header.EncodedBytes()
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jws: failed to encode header", err)
	}
	s.encodedHeader = base64.Encode(headerBytes)
	s.encodedPayload = base64.Encode(s.Payload)

	sig, err := impl.Sign(signingInput(s.encodedHeader, s.encodedPayload), key)
	if err != nil {
		return nil, joseerr.Wrapf(joseerr.Unknown, err, "jws: signing failed")
	}

	s.Signature = sig
	return sig, nil
}

// Verify checks s.Signature against s.Header/s.Payload using key. It
// imposes no AlgorithmConstraints of its own; callers verifying
// untrusted input should use VerifyWithConstraints with
// jwa.DefaultJWSConstraints() to keep "none" and similarly risky
// algorithms blocked unless explicitly permitted.
func (s *Signature) Verify(key any) error {
	return s.VerifyWithConstraints(key, nil)
}

// VerifyWithConstraints is Verify, additionally rejecting algorithms
// not permitted by constraints (nil permits everything, mirroring
// jwa.NoConstraints' semantics).
//
// Verification follows the order RFC 7515 section 5.2 and spec section
// 4.9 require: resolve the algorithm, check it against constraints,
// enforce "crit", and only then invoke the signature primitive — a
// "none" algorithm must never reach the primitive unless explicitly
// permitted by the caller's constraints.
func (s *Signature) VerifyWithConstraints(key any, constraints *jwa.Constraints) error {
	return s.VerifyWithKnownCritical(key, constraints, nil)
}

// VerifyWithKnownCritical is VerifyWithConstraints, additionally
// recognizing every name in knownCritical as a safe "crit" header
// value on top of the algorithm's own built-in supported-critical set.
// Callers driving this from a higher-level protocol (pkg/jwt's
// consumer, for instance) use this to extend what a "crit" header may
// legally name without pkg/jws knowing anything about that protocol.
func (s *Signature) VerifyWithKnownCritical(key any, constraints *jwa.Constraints, knownCritical []string) error {
	alg, err := algorithmOf(s.Header)
	if err != nil {
		return err
	}

	if !constraints.Permits(alg) {
		return joseerr.Newf(joseerr.AlgorithmConstraintViolated, "jws: algorithm %q is not permitted", alg)
	}

	impl, err := signer.ByName(alg)
	if err != nil {
		return joseerr.Wrapf(joseerr.UnsupportedAlgorithm, err, "jws: unsupported algorithm %q", alg)
	}

	if err := enforceCritical(s.Header, knownCritical); err != nil {
		return err
	}

	encodedHeader := s.encodedHeader
	encodedPayload := s.encodedPayload
	if encodedHeader == "" {
		headerBytes, err := s.Header.EncodedBytes()
		if err != nil {
			return joseerr.Wrap(joseerr.MalformedEncoding, "jws: failed to encode header", err)
		}
		encodedHeader = base64.Encode(headerBytes)
		encodedPayload = base64.Encode(s.Payload)
	}

	if err := impl.Verify(signingInput(encodedHeader, encodedPayload), s.Signature, key); err != nil {
		return joseerr.Wrap(joseerr.SignatureInvalid, "jws: signature verification failed", err)
	}
	return nil
}

// enforceCritical rejects a "crit" header naming anything outside the
// algorithm's own supported-critical set plus the caller-supplied
// knownCritical names.
func enforceCritical(h *Header, knownCritical []string) error {
	names, err := h.Critical()
	if err != nil || len(names) == 0 {
		return nil
	}

	alg, _ := h.Algorithm()
	desc, known := jwa.LookupSignature(jwa.Algorithm(alg))

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
			return joseerr.Newf(joseerr.UnrecognizedCritical, "jws: unrecognized critical header %q", n)
		}
	}
	return nil
}

// String returns the Compact Serialization of s.
func (s *Signature) String() string {
	encodedHeader := s.encodedHeader
	encodedPayload := s.encodedPayload
	if encodedHeader == "" {
		if headerBytes, err := s.Header.EncodedBytes(); err == nil {
			encodedHeader = base64.Encode(headerBytes)
		}
		encodedPayload = base64.Encode(s.Payload)
	}
	return compact.Join(encodedHeader, encodedPayload, base64.Encode(s.Signature))
}

// Parse parses a JWS Compact Serialization string.
func Parse(input string) (*Signature, error) {
	if input == "" {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jws: empty JWS string")
	}

	parts, err := compact.RequireParts(input, 3)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jws: malformed compact serialization", err)
	}

	h, err := header.Parse(parts[0])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jws: failed to parse header", err)
	}

	payload, err := base64.Decode(parts[1])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jws: failed to decode payload", err)
	}

	sigBytes, err := base64.Decode(parts[2])
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "jws: failed to decode signature", err)
	}

	return &Signature{
		Header:         h,
		Payload:        payload,
		Signature:      sigBytes,
		encodedHeader:  parts[0],
		encodedPayload: parts[1],
	}, nil
}

// Package joseerr defines the typed error taxonomy shared by every
// package in this module. Errors are values: callers switch on Kind
// rather than matching error strings, and every Error wraps its cause
// with %w so errors.Is/errors.As keep working through the stack.
package joseerr

import "fmt"

// Kind identifies a category of failure. The numeric value is part of
// the contract (it is the "numeric code" spec documents require) and
// must never be reordered once assigned.
type Kind int

const (
	Unknown Kind = iota

	// MalformedEncoding covers base64url and compact-form parse failures.
	MalformedEncoding
	// UnsupportedAlgorithm covers an unknown or unavailable alg/enc/zip.
	UnsupportedAlgorithm
	// AlgorithmConstraintViolated covers a known algorithm forbidden by
	// the active AlgorithmConstraints.
	AlgorithmConstraintViolated
	// InvalidKey covers a key family/size mismatch with an algorithm.
	InvalidKey
	// UnresolvableKey covers a key resolver that returned nothing.
	UnresolvableKey
	// SignatureInvalid covers a JWS whose signature failed verification.
	SignatureInvalid
	// SignatureMissing covers a JWT that lacked a signature where one
	// was required.
	SignatureMissing
	// IntegrityMissing covers a JWT with neither a signature nor
	// integrity-providing encryption, where one was required.
	IntegrityMissing
	// IntegrityFailure covers a JWE whose authentication tag failed to
	// verify. It deliberately does not distinguish tag failure from
	// padding failure from key-unwrap failure.
	IntegrityFailure
	// UnrecognizedCritical covers a "crit" header naming a parameter the
	// consumer does not understand.
	UnrecognizedCritical
	// MalformedClaim covers a claim whose value has the wrong shape or
	// is out of the representable range.
	MalformedClaim
	// Expired covers an "exp" claim in the past.
	Expired
	// NotYetValid covers an "nbf" claim in the future.
	NotYetValid
	// IssuerInvalid covers an "iss" claim not in the allowed set.
	IssuerInvalid
	// IssuerMissing covers a required "iss" claim that was absent.
	IssuerMissing
	// AudienceInvalid covers an "aud" claim with no member in the
	// allowed set.
	AudienceInvalid
	// AudienceMissing covers a required "aud" claim that was absent.
	AudienceMissing
	// IssuedAtInvalidPast covers an "iat" claim further in the past than
	// permitted.
	IssuedAtInvalidPast
	// IssuedAtInvalidFuture covers an "iat" claim further in the future
	// than permitted.
	IssuedAtInvalidFuture
	// ExpirationTooFarInFuture covers an "exp" claim further in the
	// future than a configured ceiling permits.
	ExpirationTooFarInFuture
	// DecompressionTooLarge covers a "zip=DEF" payload whose decompressed
	// size exceeds the configured ceiling.
	DecompressionTooLarge
)

var names = map[Kind]string{
	Unknown:                     "Unknown",
	MalformedEncoding:           "MalformedEncoding",
	UnsupportedAlgorithm:        "UnsupportedAlgorithm",
	AlgorithmConstraintViolated: "AlgorithmConstraintViolated",
	InvalidKey:                  "InvalidKey",
	UnresolvableKey:             "UnresolvableKey",
	SignatureInvalid:            "SignatureInvalid",
	SignatureMissing:            "SignatureMissing",
	IntegrityMissing:            "IntegrityMissing",
	IntegrityFailure:            "IntegrityFailure",
	UnrecognizedCritical:        "UnrecognizedCritical",
	MalformedClaim:              "MalformedClaim",
	Expired:                     "Expired",
	NotYetValid:                 "NotYetValid",
	IssuerInvalid:               "IssuerInvalid",
	IssuerMissing:               "IssuerMissing",
	AudienceInvalid:             "AudienceInvalid",
	AudienceMissing:             "AudienceMissing",
	IssuedAtInvalidPast:         "IssuedAtInvalidPast",
	IssuedAtInvalidFuture:       "IssuedAtInvalidFuture",
	ExpirationTooFarInFuture:    "ExpirationTooFarInFuture",
	DecompressionTooLarge:       "DecompressionTooLarge",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is a typed JOSE error. Construct one with New or Wrap; inspect
// one with KindOf.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, joseerr.New(SomeKind, "")) to match purely on
// Kind, ignoring Msg/Err, which is the common case callers want.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// As extracts an *Error from err, unwrapping as needed.
func As(err error) (*Error, bool) {
	var target *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return target, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, or
// Unknown otherwise.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Unknown
}

// Multi collects independent validation failures so that, per spec,
// claim validators never short-circuit each other — every failure
// reason is reported together.
type Multi struct {
	Errors []*Error
}

func (m *Multi) Add(err *Error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *Multi) HasErrors() bool {
	return len(m.Errors) > 0
}

func (m *Multi) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return fmt.Sprintf("invalid JWT: %v", m.Errors[0])
	}
	s := fmt.Sprintf("invalid JWT: %d validation failures:", len(m.Errors))
	for _, e := range m.Errors {
		s += fmt.Sprintf("\n  - %v", e)
	}
	return s
}

// ErrIfAny returns m as an error if it has any collected failures, or
// nil otherwise — the usual way a builder finalizes a Multi.
func (m *Multi) ErrIfAny() error {
	if m.HasErrors() {
		return m
	}
	return nil
}

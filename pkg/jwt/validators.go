package jwt

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/josecore/jose/pkg/joseerr"
)

// Validator inspects a fully parsed claims set and reports a validation
// failure, or nil if it has none. Validators never have side effects on
// claims; they only observe.
type Validator func(claims ClaimsSet) *joseerr.Error

// validationSettings holds the configuration a ConsumerBuilder accumulates
// for the registered claim validators. It is copied into the immutable
// Consumer at Build time.
type validationSettings struct {
	clock func() time.Time
	skew  time.Duration

	requireExpiration        bool
	maxFutureExpiration      time.Duration // 0 disables the ceiling check
	requireNotBefore         bool
	requireIssuedAt          bool
	maxIssuedAtPast          time.Duration // 0 disables the check
	maxIssuedAtFuture        time.Duration // 0 disables the check

	expectedIssuers  []string
	requireIssuer    bool
	expectedAudience []string
	requireAudience  bool
	expectedSubject  string
	requireSubject   bool
	requireJTI       bool
	expectedType     string
	requireType      bool

	extra []Validator
}

// runValidators executes the registered claim validators, in the order
// spec section 4.12 documents, collecting every failure rather than
// stopping at the first: exp, nbf, iat, iss, aud, sub, jti, typ, then any
// caller-registered validators.
func (s *validationSettings) runValidators(claims ClaimsSet, typHeader string) error {
	var multi joseerr.Multi

	now := s.clock()

	multi.Add(s.validateExpiration(claims, now))
	multi.Add(s.validateNotBefore(claims, now))
	multi.Add(s.validateIssuedAt(claims, now))
	multi.Add(s.validateIssuer(claims))
	multi.Add(s.validateAudience(claims))
	multi.Add(s.validateSubject(claims))
	multi.Add(s.validateJTI(claims))
	multi.Add(s.validateType(typHeader))

	for _, v := range s.extra {
		multi.Add(v(claims))
	}

	return multi.ErrIfAny()
}

func (s *validationSettings) validateExpiration(claims ClaimsSet, now time.Time) *joseerr.Error {
	exp, present, err := claims.ExpirationTimeValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireExpiration {
			return joseerr.New(joseerr.MalformedClaim, "jwt: \"exp\" claim is required but absent")
		}
		return nil
	}
	if exp.Before(now.Add(-s.skew)) {
		return joseerr.Newf(joseerr.Expired, "jwt: token expired at %s", exp)
	}
	if s.maxFutureExpiration > 0 && exp.After(now.Add(s.maxFutureExpiration)) {
		return joseerr.Newf(joseerr.ExpirationTooFarInFuture, "jwt: \"exp\" claim %s is further than %s in the future", exp, s.maxFutureExpiration)
	}
	return nil
}

func (s *validationSettings) validateNotBefore(claims ClaimsSet, now time.Time) *joseerr.Error {
	nbf, present, err := claims.NotBeforeValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireNotBefore {
			return joseerr.New(joseerr.MalformedClaim, "jwt: \"nbf\" claim is required but absent")
		}
		return nil
	}
	if nbf.After(now.Add(s.skew)) {
		return joseerr.Newf(joseerr.NotYetValid, "jwt: token not valid until %s", nbf)
	}
	return nil
}

func (s *validationSettings) validateIssuedAt(claims ClaimsSet, now time.Time) *joseerr.Error {
	iat, present, err := claims.IssuedAtValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireIssuedAt {
			return joseerr.New(joseerr.MalformedClaim, "jwt: \"iat\" claim is required but absent")
		}
		return nil
	}
	if s.maxIssuedAtPast > 0 && iat.Before(now.Add(-s.maxIssuedAtPast)) {
		return joseerr.Newf(joseerr.IssuedAtInvalidPast, "jwt: \"iat\" claim %s is further than %s in the past", iat, s.maxIssuedAtPast)
	}
	if s.maxIssuedAtFuture > 0 && iat.After(now.Add(s.maxIssuedAtFuture)) {
		return joseerr.Newf(joseerr.IssuedAtInvalidFuture, "jwt: \"iat\" claim %s is further than %s in the future", iat, s.maxIssuedAtFuture)
	}
	return nil
}

func (s *validationSettings) validateIssuer(claims ClaimsSet) *joseerr.Error {
	iss, present, err := claims.IssuerValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireIssuer {
			return joseerr.New(joseerr.IssuerMissing, "jwt: \"iss\" claim is required but absent")
		}
		return nil
	}
	if len(s.expectedIssuers) == 0 {
		return nil
	}
	if slices.Contains(s.expectedIssuers, iss) {
		return nil
	}
	return joseerr.Newf(joseerr.IssuerInvalid, "jwt: issuer %q is not in the allowed set", iss)
}

func (s *validationSettings) validateAudience(claims ClaimsSet) *joseerr.Error {
	aud, present, err := claims.AudienceValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireAudience {
			return joseerr.New(joseerr.AudienceMissing, "jwt: \"aud\" claim is required but absent")
		}
		return nil
	}
	if len(s.expectedAudience) == 0 {
		return nil
	}
	for _, got := range aud {
		if slices.Contains(s.expectedAudience, got) {
			return nil
		}
	}
	return joseerr.Newf(joseerr.AudienceInvalid, "jwt: audience %v has no member in the allowed set", aud)
}

func (s *validationSettings) validateSubject(claims ClaimsSet) *joseerr.Error {
	sub, present, err := claims.SubjectValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present {
		if s.requireSubject {
			return joseerr.New(joseerr.MalformedClaim, "jwt: \"sub\" claim is required but absent")
		}
		return nil
	}
	if s.expectedSubject != "" && sub != s.expectedSubject {
		return joseerr.Newf(joseerr.MalformedClaim, "jwt: subject %q does not match expected %q", sub, s.expectedSubject)
	}
	return nil
}

func (s *validationSettings) validateJTI(claims ClaimsSet) *joseerr.Error {
	_, present, err := claims.JWTIDValue()
	if err != nil {
		return err.(*joseerr.Error)
	}
	if !present && s.requireJTI {
		return joseerr.New(joseerr.MalformedClaim, "jwt: \"jti\" claim is required but absent")
	}
	return nil
}

func (s *validationSettings) validateType(typHeader string) *joseerr.Error {
	if !s.requireType {
		return nil
	}
	if normalizeContentType(typHeader) != normalizeContentType(s.expectedType) {
		return joseerr.Newf(joseerr.MalformedClaim, "jwt: \"typ\" header %q does not match expected %q", typHeader, s.expectedType)
	}
	return nil
}

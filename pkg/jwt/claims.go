package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/joseerr"
)

// There are three classes of JWT Claim Names:
// 1. Registered Claim Names
// 2. Public Claim Names
// 3. Private Claim Names
type (
	ClaimName string

	Registered = ClaimName
	Public     = ClaimName
	Private    = ClaimName
)

// ClaimValue is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a ClaimName and a ClaimValue.
type ClaimValue interface{}

// Registered Claim Names
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-4.1
const (
	Issuer         Registered = "iss"
	Subject        Registered = "sub"
	Audience       Registered = "aud"
	ExpirationTime Registered = "exp"
	NotBefore      Registered = "nbf"
	IssuedAt       Registered = "iat"
	JWTID          Registered = "jti"
)

// ClaimsSet is a JSON object that contains the claims conveyed by the JWT.
//
// A claim is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a Claim Name and a Claim Value.
type ClaimsSet map[ClaimName]ClaimValue

func (claims ClaimsSet) String() string {
	buff := bytes.NewBuffer(nil)

	err := json.NewEncoder(buff).Encode(claims)
	if err != nil {
		return fmt.Sprintf("<invalid-claims-set %q: %#v>", err, claims)
	}

	return base64.Encode(buff.Bytes())
}

func (claims ClaimsSet) Get(name ClaimName) (ClaimValue, error) {
	value, ok := claims[name]
	if !ok {
		return nil, fmt.Errorf("claim %q not found in claims set", name)
	}
	return value, nil
}

func (claims ClaimsSet) Set(name ClaimName, value ClaimValue) {
	claims[name] = value
}

func (claims ClaimsSet) Names() []ClaimName {
	var names []ClaimName

	for name := range claims {
		names = append(names, name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return names[i] > names[j]
	})

	return names
}

// numericDateToTime converts a JSON NumericDate value (RFC 7519 section 2)
// to a time.Time. JSON numbers decode to float64, but a value that has
// already round-tripped through Go code may also arrive as an int64/int, or
// as a json.Number from a streaming decoder configured with UseNumber.
//
// A negative value, or one that cannot be represented as seconds-since-epoch
// without overflowing, is MalformedClaim rather than silently wrapping.
func numericDateToTime(v ClaimValue) (time.Time, error) {
	var sec float64

	switch n := v.(type) {
	case float64:
		sec = n
	case int64:
		sec = float64(n)
	case int:
		sec = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, joseerr.Wrap(joseerr.MalformedClaim, "jwt: claim is not a numeric date", err)
		}
		sec = f
	default:
		return time.Time{}, joseerr.Newf(joseerr.MalformedClaim, "jwt: claim value %T is not a numeric date", v)
	}

	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}, joseerr.New(joseerr.MalformedClaim, "jwt: numeric date is NaN or infinite")
	}
	if sec < 0 {
		return time.Time{}, joseerr.New(joseerr.MalformedClaim, "jwt: numeric date is negative")
	}
	if sec > float64(math.MaxInt64) {
		return time.Time{}, joseerr.New(joseerr.MalformedClaim, "jwt: numeric date overflows the representable range")
	}

	wholeSec := int64(sec)
	nsec := int64((sec - float64(wholeSec)) * float64(time.Second))

	return time.Unix(wholeSec, nsec).UTC(), nil
}

func timeToNumericDate(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ExpirationTimeValue returns the "exp" claim as a time.Time. ok is false
// if the claim is absent; err is non-nil if it is present but malformed.
func (claims ClaimsSet) ExpirationTimeValue() (t time.Time, ok bool, err error) {
	return claims.numericDateClaim(ExpirationTime)
}

// NotBeforeValue returns the "nbf" claim as a time.Time.
func (claims ClaimsSet) NotBeforeValue() (t time.Time, ok bool, err error) {
	return claims.numericDateClaim(NotBefore)
}

// IssuedAtValue returns the "iat" claim as a time.Time.
func (claims ClaimsSet) IssuedAtValue() (t time.Time, ok bool, err error) {
	return claims.numericDateClaim(IssuedAt)
}

func (claims ClaimsSet) numericDateClaim(name ClaimName) (time.Time, bool, error) {
	v, present := claims[name]
	if !present {
		return time.Time{}, false, nil
	}
	t, err := numericDateToTime(v)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// IssuerValue returns the "iss" claim.
func (claims ClaimsSet) IssuerValue() (string, bool, error) {
	return claims.stringClaim(Issuer)
}

// SubjectValue returns the "sub" claim.
func (claims ClaimsSet) SubjectValue() (string, bool, error) {
	return claims.stringClaim(Subject)
}

// JWTIDValue returns the "jti" claim.
func (claims ClaimsSet) JWTIDValue() (string, bool, error) {
	return claims.stringClaim(JWTID)
}

func (claims ClaimsSet) stringClaim(name ClaimName) (string, bool, error) {
	v, present := claims[name]
	if !present {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, joseerr.Newf(joseerr.MalformedClaim, "jwt: claim %q is %T, not a string", name, v)
	}
	return s, true, nil
}

// AudienceValue returns the "aud" claim. Per RFC 7519 section 4.1.3, "aud"
// may be a single string or an array of strings; either shape is accepted
// and normalized to a slice. Any other shape is MalformedClaim.
func (claims ClaimsSet) AudienceValue() ([]string, bool, error) {
	v, present := claims[Audience]
	if !present {
		return nil, false, nil
	}

	switch aud := v.(type) {
	case string:
		return []string{aud}, true, nil
	case []string:
		return aud, true, nil
	case []any:
		out := make([]string, 0, len(aud))
		for _, item := range aud {
			s, ok := item.(string)
			if !ok {
				return nil, true, joseerr.Newf(joseerr.MalformedClaim, "jwt: \"aud\" contains non-string element %T", item)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, joseerr.Newf(joseerr.MalformedClaim, "jwt: \"aud\" is %T, not a string or array of strings", v)
	}
}

// SetExpirationTime sets the "exp" claim to t.
func (claims ClaimsSet) SetExpirationTime(t time.Time) {
	claims[ExpirationTime] = timeToNumericDate(t)
}

// SetExpirationIn sets the "exp" claim to d relative to now; a negative d
// sets an already-expired token.
func (claims ClaimsSet) SetExpirationIn(now time.Time, d time.Duration) {
	claims.SetExpirationTime(now.Add(d))
}

// SetNotBefore sets the "nbf" claim to t.
func (claims ClaimsSet) SetNotBefore(t time.Time) {
	claims[NotBefore] = timeToNumericDate(t)
}

// SetNotBeforeIn sets the "nbf" claim to d relative to now.
func (claims ClaimsSet) SetNotBeforeIn(now time.Time, d time.Duration) {
	claims.SetNotBefore(now.Add(d))
}

// SetIssuedAt sets the "iat" claim to t.
func (claims ClaimsSet) SetIssuedAt(t time.Time) {
	claims[IssuedAt] = timeToNumericDate(t)
}

// SetIssuer sets the "iss" claim.
func (claims ClaimsSet) SetIssuer(issuer string) {
	claims[Issuer] = issuer
}

// SetSubject sets the "sub" claim.
func (claims ClaimsSet) SetSubject(subject string) {
	claims[Subject] = subject
}

// SetAudience sets the "aud" claim. A single audience is stored as a bare
// string (matching the common-case wire form); more than one is stored as
// an array.
func (claims ClaimsSet) SetAudience(audience ...string) {
	if len(audience) == 1 {
		claims[Audience] = audience[0]
		return
	}
	claims[Audience] = audience
}

// SetJWTID sets the "jti" claim.
func (claims ClaimsSet) SetJWTID(id string) {
	claims[JWTID] = id
}

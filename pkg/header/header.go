// Package header implements the JOSE header container: an
// order-preserving mapping from parameter name to value, shared by JWS
// and JWE objects.
//
// Two invariants matter more than anything else here (see RFC 7515
// section 4 and RFC 7516 section 4):
//
//  1. When a header is parsed from wire input, the Additional
//     Authenticated Data (AAD) and signing input derived from it MUST be
//     the exact bytes that were received — never a re-serialization of
//     the parsed value. Parameters retains those original encoded bytes
//     separately from the parsed map.
//  2. When a header is constructed fresh by a caller, its encoded form
//     is derived exactly once, in insertion order, and cached.
package header

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/josecore/jose/pkg/base64"
)

// Name is a JOSE header parameter name. RFC 7515 section 4 distinguishes
// Registered, Public, and Private header parameter names; this package
// does not enforce that distinction, it only names the registered ones.
type Name = string

// Registered Header Parameter Names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
// https://datatracker.ietf.org/doc/html/rfc7516#section-4.1
const (
	Type                     Name = "typ"
	Algorithm                Name = "alg"
	JWKSetURL                Name = "jku"
	JSONWebKey               Name = "jwk"
	X509URL                  Name = "x5u"
	X509CertificateChain     Name = "x5c"
	X509SHA1Thumbprint       Name = "x5t"
	X509SHA256Thumbprint     Name = "x5t#S256"
	ContentType              Name = "cty"
	Critical                 Name = "crit"
	KeyID                    Name = "kid"
	Encryption               Name = "enc"
	Compression              Name = "zip"
	EphemeralPublicKey       Name = "epk"
	AgreementPartyUInfo      Name = "apu"
	AgreementPartyVInfo      Name = "apv"
	InitializationVector     Name = "iv"
	AuthenticationTag        Name = "tag"
	PBES2SaltInput           Name = "p2s"
	PBES2Count               Name = "p2c"
)

// TypeJWT is the "typ" value used for JSON Web Tokens.
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-5.1
const TypeJWT = "JWT"

// Parameters is an ordered JOSE header. The zero value is not usable;
// construct one with New or Parse.
type Parameters struct {
	om *orderedmap.OrderedMap[string, any]

	// raw holds the exact bytes this header was parsed from, if parsed,
	// or the cached freshly-derived encoding once EncodedBytes has been
	// called once on a fresh header (invariant 2).
	raw []byte

	// parsed is true only for headers constructed via Parse/ParseBytes.
	// It is distinct from raw != nil, since a fresh header also
	// populates raw once its encoding is derived.
	parsed bool
}

// New returns an empty, freshly built Parameters container.
func New() *Parameters {
	return &Parameters{om: orderedmap.New[string, any]()}
}

// Parse decodes a base64url-encoded JOSE header (the first segment of a
// compact-serialized JWS or JWE) and returns a Parameters container that
// remembers the exact bytes it was built from.
func Parse(encoded string) (*Parameters, error) {
	decoded, err := base64.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("header: failed to decode base64url: %w", err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("header: header segment is empty")
	}
	return ParseBytes(decoded)
}

// ParseBytes parses a raw JSON header object, remembering the exact
// bytes it was built from for later AAD/signing-input use.
func ParseBytes(raw []byte) (*Parameters, error) {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(raw, om); err != nil {
		return nil, fmt.Errorf("header: failed to decode JSON: %w", err)
	}
	return &Parameters{om: om, raw: append([]byte(nil), raw...), parsed: true}, nil
}

// IsParsed reports whether this header was produced by Parse/ParseBytes
// (and therefore has original bytes to preserve) as opposed to being
// built fresh by a caller.
func (p *Parameters) IsParsed() bool {
	return p.parsed
}

// Set stores value under name, overwriting any existing value. It must
// only be called on a freshly built header, before EncodedBytes has been
// derived; a parsed header's original bytes are immutable.
func (p *Parameters) Set(name Name, value any) *Parameters {
	p.om.Set(name, value)
	return p
}

// Get returns the raw value stored under name.
func (p *Parameters) Get(name Name) (any, bool) {
	return p.om.Get(name)
}

// Has reports whether name is present.
func (p *Parameters) Has(name Name) bool {
	_, ok := p.om.Get(name)
	return ok
}

// Delete removes name, if present.
func (p *Parameters) Delete(name Name) {
	p.om.Delete(name)
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	return p.om.Len()
}

// Names returns the parameter names in insertion order.
func (p *Parameters) Names() []string {
	names := make([]string, 0, p.om.Len())
	for pair := p.om.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// GetString returns the string value stored under name.
func (p *Parameters) GetString(name Name) (string, error) {
	v, ok := p.om.Get(name)
	if !ok {
		return "", fmt.Errorf("header: parameter %q not present", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("header: parameter %q is %T, not a string", name, v)
	}
	return s, nil
}

// GetBool returns the boolean value stored under name.
func (p *Parameters) GetBool(name Name) (bool, error) {
	v, ok := p.om.Get(name)
	if !ok {
		return false, fmt.Errorf("header: parameter %q not present", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("header: parameter %q is %T, not a bool", name, v)
	}
	return b, nil
}

// GetInt64 returns the integer value stored under name. JSON numbers
// decode to float64, so this accepts that and requires it round-trips
// losslessly to an int64.
func (p *Parameters) GetInt64(name Name) (int64, error) {
	v, ok := p.om.Get(name)
	if !ok {
		return 0, fmt.Errorf("header: parameter %q not present", name)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		i := int64(n)
		if float64(i) != n {
			return 0, fmt.Errorf("header: parameter %q is not an integer", name)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("header: parameter %q is %T, not a number", name, v)
	}
}

// GetStringSlice returns a []string value stored under name, accepting
// either a single string (promoted to a one-element slice, as "aud"-like
// flexibility sometimes requires) or a JSON array of strings.
func (p *Parameters) GetStringSlice(name Name) ([]string, error) {
	v, ok := p.om.Get(name)
	if !ok {
		return nil, fmt.Errorf("header: parameter %q not present", name)
	}
	switch vv := v.(type) {
	case string:
		return []string{vv}, nil
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("header: parameter %q contains non-string element %T", name, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("header: parameter %q is %T, not a string or array", name, v)
	}
}

// Algorithm returns the "alg" header parameter.
func (p *Parameters) Algorithm() (string, error) {
	return p.GetString(Algorithm)
}

// Critical returns the "crit" header parameter names, or nil if absent.
func (p *Parameters) Critical() ([]string, error) {
	if !p.Has(Critical) {
		return nil, nil
	}
	return p.GetStringSlice(Critical)
}

// EncodedBytes returns the canonical JSON bytes for this header: the
// original parsed bytes if this header was parsed, or a freshly
// marshaled (and cached) encoding in insertion order otherwise.
func (p *Parameters) EncodedBytes() ([]byte, error) {
	if p.raw != nil {
		return p.raw, nil
	}

	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p.om); err != nil {
		return nil, fmt.Errorf("header: failed to encode JSON: %w", err)
	}

	// json.Encoder.Encode always appends a trailing newline; the wire
	// form must not include it.
	encoded := bytes.TrimRight(buf.Bytes(), "\n")

	// Cache it: per invariant 2, a freshly built header's encoded form
	// is derived exactly once.
	p.raw = encoded

	return encoded, nil
}

// Base64URLString returns the base64url encoding of EncodedBytes.
func (p *Parameters) Base64URLString() (string, error) {
	b, err := p.EncodedBytes()
	if err != nil {
		return "", err
	}
	return base64.Encode(b), nil
}

// MarshalJSON implements json.Marshaler by delegating to the underlying
// ordered map, preserving insertion order.
func (p *Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.om)
}

// UnmarshalJSON implements json.Unmarshaler. Note that Parse/ParseBytes
// should usually be preferred, since they also retain the original
// bytes for AAD purposes; this method exists so Parameters can be
// embedded in other JSON structures.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return err
	}
	p.om = om
	p.raw = append([]byte(nil), data...)
	p.parsed = true
	return nil
}

// Clone returns a deep-enough copy of p suitable for building a new
// header from an existing one (e.g. nested JOSE layers). The clone is
// treated as freshly built: its own EncodedBytes will be re-derived, not
// inherited from p's original bytes.
func (p *Parameters) Clone() *Parameters {
	clone := New()
	for pair := p.om.Oldest(); pair != nil; pair = pair.Next() {
		clone.Set(pair.Key, pair.Value)
	}
	return clone
}

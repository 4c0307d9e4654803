package jwt

import (
	"encoding/json"
	"strings"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/joseerr"
	"github.com/josecore/jose/pkg/jwe"
	"github.com/josecore/jose/pkg/jws"
)

func marshalClaims(claims ClaimsSet) ([]byte, error) {
	if len(claims) == 0 {
		return nil, joseerr.New(joseerr.MalformedClaim, "jwt: cannot produce a token with an empty claims set")
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedClaim, "jwt: failed to encode claims set", err)
	}
	return payload, nil
}

// ensureJWTType sets h's "typ" header to "JWT" if absent, and rejects any
// other value already present there.
func ensureJWTType(h *header.Parameters) error {
	if !h.Has(header.Type) {
		h.Set(header.Type, header.TypeJWT)
		return nil
	}
	typ, err := h.GetString(header.Type)
	if err != nil {
		return joseerr.Wrap(joseerr.MalformedEncoding, "jwt: \"typ\" header is not a string", err)
	}
	if normalizeContentType(typ) != "jwt" {
		return joseerr.Newf(joseerr.MalformedEncoding, "jwt: header type %q is not supported", typ)
	}
	return nil
}

// Sign produces a JWS-protected JWT: h must carry an "alg" header naming a
// registered signature algorithm, and key is the matching signing key. The
// "typ" header defaults to "JWT" if absent.
func Sign(h *header.Parameters, claims ClaimsSet, key any) (string, error) {
	if err := ensureJWTType(h); err != nil {
		return "", err
	}

	payload, err := marshalClaims(claims)
	if err != nil {
		return "", err
	}

	sig, err := jws.New(h, payload, key)
	if err != nil {
		return "", joseerr.Wrap(joseerr.Unknown, "jwt: failed to sign token", err)
	}
	return sig.String(), nil
}

// Encrypt produces a JWE-protected JWT: h must carry "alg" and "enc"
// headers, and key is the recipient's key material. The "typ" header
// defaults to "JWT" if absent. opts is passed through to jwe.Encrypt,
// and so governs the default algorithm constraints (RSA1_5 and PBES2-*
// remain blocked unless the caller opts in).
func Encrypt(h *header.Parameters, claims ClaimsSet, key any, opts *jwe.EncryptOptions) (string, error) {
	if err := ensureJWTType(h); err != nil {
		return "", err
	}

	payload, err := marshalClaims(claims)
	if err != nil {
		return "", err
	}

	msg, err := jwe.Encrypt(h, payload, key, opts)
	if err != nil {
		return "", err
	}
	return msg.String(), nil
}

// SignThenEncrypt produces a nested JWT: the claims are signed into a JWS
// using signHeader/signKey, then that JWS compact string is encrypted as
// the payload of an outer JWE using encHeader/encKey, per RFC 7519 section
// 5.2. encHeader's "cty" is set to "JWT" (if absent) so a consumer knows to
// recurse into the decrypted payload rather than parsing it directly as a
// claims set.
func SignThenEncrypt(signHeader, encHeader *header.Parameters, claims ClaimsSet, signKey, encKey any, opts *jwe.EncryptOptions) (string, error) {
	if err := ensureJWTType(signHeader); err != nil {
		return "", err
	}

	payload, err := marshalClaims(claims)
	if err != nil {
		return "", err
	}

	inner, err := jws.New(signHeader, payload, signKey)
	if err != nil {
		return "", joseerr.Wrap(joseerr.Unknown, "jwt: failed to sign inner token", err)
	}

	if !encHeader.Has(header.ContentType) {
		encHeader.Set(header.ContentType, header.TypeJWT)
	}

	outer, err := jwe.Encrypt(encHeader, []byte(inner.String()), encKey, opts)
	if err != nil {
		return "", err
	}
	return outer.String(), nil
}

// normalizeContentType lower-cases a "typ"/"cty" value and strips an
// optional "application/" prefix, per RFC 7515 section 4.1.9's guidance
// that consumers should treat "application/JWT" and "JWT" as equivalent.
func normalizeContentType(s string) string {
	s = strings.ToLower(s)
	return strings.TrimPrefix(s, "application/")
}

// Package thumbprint computes JWK Thumbprints per RFC 7638: a hash
// over the required public members of a key, serialized with no
// whitespace and members ordered lexicographically by name.
package thumbprint

import (
	"crypto"
	"fmt"
	"strings"

	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
	"github.com/josecore/jose/pkg/jwk"
)

// requiredMembers lists, per key kind, the JWK members that go into the
// thumbprint hash input, in the lexicographic order RFC 7638 requires.
var requiredMembers = map[jwa.KeyKind][]string{
	jwa.KindRSA: {"e", "kty", "n"},
	jwa.KindEC:  {"crv", "kty", "x", "y"},
	jwa.KindOKP: {"crv", "kty", "x"},
	jwa.KindOct: {"k", "kty"},
}

// Generate returns the JWK Thumbprint for k using hash function h. If h
// is zero, SHA-256 is used, matching the RFC 7638 example and the
// default most deployments expect.
func Generate(k *jwk.Key, h crypto.Hash) ([]byte, error) {
	om, err := k.ToOrderedMap()
	if err != nil {
		return nil, err
	}

	members, ok := requiredMembers[k.Kind]
	if !ok {
		return nil, joseerr.Newf(joseerr.InvalidKey, "thumbprint: unsupported key kind %q", k.Kind)
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range members {
		v, ok := om.Get(name)
		if !ok {
			return nil, joseerr.Newf(joseerr.InvalidKey, "thumbprint: key is missing required member %q", name)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", name, v)
	}
	b.WriteByte('}')

	if h == 0 {
		h = crypto.SHA256
	}

	hash := h.New()
	hash.Write([]byte(b.String()))
	return hash.Sum(nil), nil
}

// GenerateString returns the JWK Thumbprint for k as a base64url string.
func GenerateString(k *jwk.Key, h crypto.Hash) (string, error) {
	sum, err := Generate(k, h)
	if err != nil {
		return "", err
	}
	return base64.Encode(sum), nil
}

// hashURNNames maps a crypto.Hash to the name segment of the
// "urn:ietf:params:oauth:jwk-thumbprint:" URI scheme (RFC 9278).
var hashURNNames = map[crypto.Hash]string{
	crypto.SHA256: "sha-256",
	crypto.SHA384: "sha-384",
	crypto.SHA512: "sha-512",
}

// GenerateURI returns the JWK Thumbprint URI for k, per RFC 9278:
// "urn:ietf:params:oauth:jwk-thumbprint:<hash-name>:<thumbprint>".
func GenerateURI(k *jwk.Key, h crypto.Hash) (string, error) {
	if h == 0 {
		h = crypto.SHA256
	}
	name, ok := hashURNNames[h]
	if !ok {
		return "", joseerr.Newf(joseerr.UnsupportedAlgorithm, "thumbprint: no URN name registered for hash %v", h)
	}
	s, err := GenerateString(k, h)
	if err != nil {
		return "", err
	}
	return "urn:ietf:params:oauth:jwk-thumbprint:" + name + ":" + s, nil
}

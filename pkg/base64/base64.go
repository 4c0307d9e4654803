package base64

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode returns the base64url encoding of input without padding, as
// required by the JOSE Compact Serialization.
//
// Encoding is total: the empty octet string encodes to the empty string.
//
// https://datatracker.ietf.org/doc/html/rfc7515#appendix-C
func Encode(input []byte) string {
	if len(input) == 0 {
		return ""
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(input), "=")
}

// Decode returns the bytes represented by the base64url encoded string s.
//
// Decoding is lenient about padding: it accepts both the padded and the
// unpadded form, since both appear in the wild despite the Compact
// Serialization only ever producing unpadded output. It rejects any
// character outside the base64url alphabet.
//
// The empty string decodes to the empty byte slice, not an error; callers
// that require non-empty content (e.g. a JWS payload, a JWE ciphertext)
// must check for that themselves.
func Decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return []byte{}, nil
	}

	if padLen := len(s) % 4; padLen > 0 {
		var b strings.Builder
		b.Grow(len(s) + (4 - padLen))
		b.WriteString(s)
		for i := padLen; i < 4; i++ {
			b.WriteByte('=')
		}
		s = b.String()
	}

	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64: malformed base64url input: %w", err)
	}

	return decoded, nil
}

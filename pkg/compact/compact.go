// Package compact implements the JOSE Compact Serialization: a small
// number of base64url-encoded segments joined by ASCII periods.
//
// This package only deals with delimiting. It does not decode, validate,
// or interpret segment contents — that is the job of pkg/jws and
// pkg/jwe, which know how many parts each form requires and what each
// part means.
package compact

import (
	"fmt"
	"strings"
)

// Split returns the dot-delimited parts of a compact serialization
// string, in order. It performs no validation beyond splitting; an
// empty part (e.g. a detached JWS payload, or a JWE direct-mode
// encrypted key) is returned as an empty string, not an error.
func Split(s string) []string {
	return strings.Split(s, ".")
}

// Join concatenates parts with the ASCII period delimiter.
func Join(parts ...string) string {
	return strings.Join(parts, ".")
}

// RequireParts splits s and verifies it has exactly n parts, returning a
// descriptive error otherwise. This is the check pkg/jws (n=3) and
// pkg/jwe (n=5) perform before interpreting a compact string.
func RequireParts(s string, n int) ([]string, error) {
	parts := Split(s)
	if len(parts) != n {
		return nil, fmt.Errorf("compact: expected %d parts, got %d", n, len(parts))
	}
	return parts, nil
}

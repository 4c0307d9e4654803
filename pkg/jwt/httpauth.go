package jwt

import (
	"net/http"
	"strings"

	"github.com/josecore/jose/pkg/joseerr"
)

// FromHTTPAuthorizationHeader extracts the bearer token from r's
// "Authorization" header, expecting the "Bearer <token>" scheme.
func FromHTTPAuthorizationHeader(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", joseerr.New(joseerr.MalformedEncoding, "jwt: no Authorization header present")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", joseerr.New(joseerr.MalformedEncoding, "jwt: Authorization header does not use the Bearer scheme")
	}

	return strings.TrimPrefix(auth, prefix), nil
}

// SetHTTPAuthorizationHeader sets r's "Authorization" header to the
// "Bearer <token>" scheme carrying token.
func SetHTTPAuthorizationHeader(r *http.Request, token string) {
	r.Header.Set("Authorization", "Bearer "+token)
}

package keywrap

import (
	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/joseerr"
)

func base64urlString(b []byte) string {
	return base64.Encode(b)
}

func base64urlDecode(s string) ([]byte, error) {
	b, err := base64.Decode(s)
	if err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedEncoding, "keywrap: failed to decode base64url value", err)
	}
	return b, nil
}

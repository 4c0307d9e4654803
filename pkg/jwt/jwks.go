package jwt

import (
	"context"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwk"
	"github.com/josecore/jose/pkg/joseerr"
)

// JWKSKeyResolver returns a KeyResolver that resolves the key for the
// layer currently being processed from a remote JWK set: it reads the
// layer's "jku" and "kid" header parameters, fetches (or reuses) the
// set cached by cache, and returns the matching key's verification
// key. A layer missing either parameter, or naming a key the set
// doesn't contain, fails with UnresolvableKey.
//
// Callers control which "jku" URLs are trusted by the http.Client they
// hand to jwk.NewURLSetCache; ctx governs each underlying fetch.
func JWKSKeyResolver(ctx context.Context, cache *jwk.URLSetCache) KeyResolver {
	return func(layers []*Layer) (any, error) {
		h := layers[len(layers)-1].Header

		jkuURL, err := h.GetString(header.JWKSetURL)
		if err != nil {
			return nil, joseerr.Wrap(joseerr.UnresolvableKey, "jwt: layer has no \"jku\" header parameter", err)
		}
		keyID, err := h.GetString(header.KeyID)
		if err != nil {
			return nil, joseerr.Wrap(joseerr.UnresolvableKey, "jwt: layer has no \"kid\" header parameter", err)
		}

		key, err := cache.ResolveVerificationKey(ctx, jkuURL, keyID)
		if err != nil {
			return nil, joseerr.Wrapf(joseerr.UnresolvableKey, err, "jwt: failed to resolve key %q from %q", keyID, jkuURL)
		}
		return key, nil
	}
}

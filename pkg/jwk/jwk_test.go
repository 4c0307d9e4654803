package jwk_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/jwk"
)

func TestRSARoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	k := jwk.FromRSAPrivateKey(priv)
	k.KeyID = "rsa-1"

	raw, err := k.ToJSON()
	require.NoError(t, err)

	got, err := jwk.FromJSON(raw)
	require.NoError(t, err)

	require.Equal(t, priv.N, got.RSAPrivateKey.N)
	require.Equal(t, priv.D, got.RSAPrivateKey.D)
	require.Equal(t, "rsa-1", got.KeyID)
}

func TestECRoundTripPreservesCoordinates(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	k := jwk.FromECPrivateKey(priv)
	raw, err := k.ToJSON()
	require.NoError(t, err)

	got, err := jwk.FromJSON(raw)
	require.NoError(t, err)

	require.Equal(t, priv.X, got.ECPublicKey.X)
	require.Equal(t, priv.Y, got.ECPublicKey.Y)
	require.Equal(t, priv.D, got.ECPrivateKey.D)
}

func TestECFixedWidthEncodingPreservesLeadingZero(t *testing.T) {
	// Generate keys until one has an X coordinate with a short
	// big.Int.Bytes() representation (a leading zero byte in the
	// fixed-width field) and confirm the encode/decode round trip still
	// recovers the original value rather than silently shifting it.
	var priv *ecdsa.PrivateKey
	var err error
	for priv == nil || len(priv.X.Bytes()) == 32 {
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
	}

	k := jwk.FromECPrivateKey(priv)
	raw, err := k.ToJSON()
	require.NoError(t, err)

	got, err := jwk.FromJSON(raw)
	require.NoError(t, err)
	require.Equal(t, priv.X, got.ECPublicKey.X)
}

func TestECValidateRejectsOffCurvePoint(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	k := jwk.FromECPublicKey(&priv.PublicKey)
	k.ECPublicKey.X.Add(k.ECPublicKey.X, big.NewInt(1))

	require.Error(t, k.Validate())
}

func TestOKPEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	k := jwk.FromEd25519PrivateKey(priv)
	raw, err := k.ToJSON()
	require.NoError(t, err)

	got, err := jwk.FromJSON(raw)
	require.NoError(t, err)

	require.Equal(t, []byte(pub), got.OKPPublicKey)
	require.True(t, got.IsPrivate())
}

func TestSymmetricRoundTrip(t *testing.T) {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	k := jwk.FromSymmetricKey(secret)
	raw, err := k.ToJSON()
	require.NoError(t, err)

	got, err := jwk.FromJSON(raw)
	require.NoError(t, err)
	require.Equal(t, secret, got.Symmetric)
}

func TestValidateRejectsUseKeyOpsContradiction(t *testing.T) {
	secret := make([]byte, 16)
	_, _ = rand.Read(secret)

	k := jwk.FromSymmetricKey(secret)
	k.Use = jwk.UseSignature
	k.KeyOps = []string{jwk.OpEncrypt}

	require.Error(t, k.Validate())
}

func TestFromJSONRejectsUnknownKeyType(t *testing.T) {
	_, err := jwk.FromJSON([]byte(`{"kty":"bogus"}`))
	require.Error(t, err)
}

func TestFromJSONRejectsMissingRequiredMember(t *testing.T) {
	_, err := jwk.FromJSON([]byte(`{"kty":"RSA","e":"AQAB"}`))
	require.Error(t, err)
}

func TestSetGetByKeyID(t *testing.T) {
	secret := make([]byte, 16)
	_, _ = rand.Read(secret)
	k := jwk.FromSymmetricKey(secret)
	k.KeyID = "k1"

	set := &jwk.Set{Keys: []*jwk.Key{k}}
	require.NoError(t, set.Validate())

	got, err := set.Get("k1")
	require.NoError(t, err)
	require.Equal(t, secret, got.Symmetric)

	_, err = set.Get("missing")
	require.Error(t, err)
}

func TestPublicDropsPrivateMaterial(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	k := jwk.FromRSAPrivateKey(priv)
	pub := k.Public()

	require.False(t, pub.IsPrivate())
	require.True(t, k.IsPrivate())
}

func TestSetUnmarshalFromWireJSON(t *testing.T) {
	input := `
	{
		"keys":[
			{"kty":"oct","alg":"A128KW","k":"GawgguFyGrWKav7AX4VKUg"},
			{
				"kty":"EC","crv":"P-256",
				"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
				"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM",
				"use":"enc","kid":"1"
			}
		]
	}`

	var set jwk.Set
	require.NoError(t, json.Unmarshal([]byte(input), &set))
	require.Len(t, set.Keys, 2)
	require.Equal(t, "1", set.Keys[1].KeyID)
	require.NoError(t, set.Validate())
}

func TestVerificationKeyByKind(t *testing.T) {
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	rsaKey, err := jwk.FromRSAPrivateKey(rsaPriv).VerificationKey()
	require.NoError(t, err)
	require.Equal(t, &rsaPriv.PublicKey, rsaKey)

	ecKey, err := jwk.FromECPrivateKey(ecPriv).VerificationKey()
	require.NoError(t, err)
	require.Equal(t, &ecPriv.PublicKey, ecKey)

	edKey, err := jwk.FromEd25519PublicKey(edPub).VerificationKey()
	require.NoError(t, err)
	require.Equal(t, edPub, edKey)

	octKey, err := jwk.FromSymmetricKey([]byte("shared-secret")).VerificationKey()
	require.NoError(t, err)
	require.Equal(t, []byte("shared-secret"), octKey)
}

func serveJWKSet(t *testing.T, set *jwk.Set) *httptest.Server {
	t.Helper()
	raw, err := json.Marshal(set)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchSet(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k := jwk.FromRSAPrivateKey(priv).Public()
	k.KeyID = "key-1"
	server := serveJWKSet(t, &jwk.Set{Keys: []*jwk.Key{k}})

	set, err := jwk.FetchSet(context.Background(), server.URL, server.Client())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)

	got, err := set.Get("key-1")
	require.NoError(t, err)
	require.Equal(t, priv.N, got.RSAPublicKey.N)
}

func TestURLSetCacheCachesAndResolvesKeys(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k := jwk.FromRSAPrivateKey(priv).Public()
	k.KeyID = "key-1"

	var fetches int
	raw, err := json.Marshal(&jwk.Set{Keys: []*jwk.Key{k}})
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}))
	t.Cleanup(server.Close)

	cache := jwk.NewURLSetCache(server.Client(), time.Hour, time.Hour)

	key, err := cache.ResolveVerificationKey(context.Background(), server.URL, "key-1")
	require.NoError(t, err)
	require.Equal(t, priv.N, key.(*rsa.PublicKey).N)

	_, err = cache.ResolveVerificationKey(context.Background(), server.URL, "key-1")
	require.NoError(t, err)
	require.Equal(t, 1, fetches, "second resolve should be served from cache")

	require.NoError(t, cache.RefreshAll(context.Background()))
	require.Equal(t, 2, fetches)

	_, err = cache.ResolveVerificationKey(context.Background(), server.URL, "missing-key")
	require.Error(t, err)
}

package thumbprint_test

import (
	"crypto"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jwk"
	"github.com/josecore/jose/pkg/jwk/thumbprint"
)

func TestGenerateEC(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{
		"kty":"EC",
		"crv":"P-256",
		"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
		"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM"
	}`))
	require.NoError(t, err)

	// {"crv":"P-256","kty":"EC","x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4","y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM"}
	got, err := thumbprint.GenerateString(k, crypto.SHA256)
	require.NoError(t, err)
	require.Equal(t, "cn-I_WNMClehiVp51i_0VpOENW1upEerA8sEam5hn-s", got)
}

func TestGenerateRSA(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{
		"kty":"RSA",
		"n":"0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		"e":"AQAB",
		"alg":"RS256",
		"kid":"2011-04-29"
	}`))
	require.NoError(t, err)

	// {"e":"AQAB","kty":"RSA","n":"0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw"}
	got, err := thumbprint.GenerateString(k, crypto.SHA256)
	require.NoError(t, err)
	require.Equal(t, "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs", got)
}

func TestGenerateDefaultsToSHA256(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{
		"kty":"EC",
		"crv":"P-256",
		"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
		"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM"
	}`))
	require.NoError(t, err)

	withDefault, err := thumbprint.GenerateString(k, 0)
	require.NoError(t, err)
	withExplicit, err := thumbprint.GenerateString(k, crypto.SHA256)
	require.NoError(t, err)
	require.Equal(t, withExplicit, withDefault)
}

func TestGenerateOKP(t *testing.T) {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	k, err := jwk.FromJSON([]byte(`{
		"kty":"OKP",
		"crv":"Ed25519",
		"x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"
	}`))
	require.NoError(t, err)

	got, err := thumbprint.GenerateString(k, crypto.SHA256)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestGenerateOct(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{"kty":"oct","k":"GawgguFyGrWKav7AX4VKUg"}`))
	require.NoError(t, err)

	got, err := thumbprint.GenerateString(k, crypto.SHA256)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestGenerateURI(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{
		"kty":"EC",
		"crv":"P-256",
		"x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
		"y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM"
	}`))
	require.NoError(t, err)

	uri, err := thumbprint.GenerateURI(k, crypto.SHA256)
	require.NoError(t, err)
	require.Equal(t, "urn:ietf:params:oauth:jwk-thumbprint:sha-256:cn-I_WNMClehiVp51i_0VpOENW1upEerA8sEam5hn-s", uri)
}

func TestGenerateRejectsUnsupportedKind(t *testing.T) {
	k, err := jwk.FromJSON([]byte(`{"kty":"oct","k":"AAAA"}`))
	require.NoError(t, err)
	k.Kind = jwa.KeyKind("99")

	_, err = thumbprint.Generate(k, crypto.SHA256)
	require.Error(t, err)
}

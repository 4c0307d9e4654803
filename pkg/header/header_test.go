package header_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/base64"
	"github.com/josecore/jose/pkg/header"
)

func TestFreshHeaderPreservesInsertionOrder(t *testing.T) {
	h := header.New()
	h.Set(header.Type, "JWT")
	h.Set(header.Algorithm, "HS256")
	h.Set(header.KeyID, "kid-1")

	require.Equal(t, []string{"typ", "alg", "kid"}, h.Names())

	encoded, err := h.EncodedBytes()
	require.NoError(t, err)
	require.Equal(t, `{"typ":"JWT","alg":"HS256","kid":"kid-1"}`, string(encoded))
}

func TestParsePreservesOriginalBytes(t *testing.T) {
	// Deliberately out-of-alphabetical-order keys, with whitespace that a
	// round-trip re-serialization would normally strip.
	raw := []byte(`{"kid": "abc",  "alg":"RS256"}`)

	encoded := base64.Encode(raw)

	h, err := header.Parse(encoded)
	require.NoError(t, err)
	require.True(t, h.IsParsed())

	got, err := h.EncodedBytes()
	require.NoError(t, err)
	require.Equal(t, raw, got)

	alg, err := h.Algorithm()
	require.NoError(t, err)
	require.Equal(t, "RS256", alg)
}

func TestCriticalHeaderStringOrSlice(t *testing.T) {
	h := header.New()
	h.Set(header.Critical, []string{"exp", "b64"})
	crit, err := h.Critical()
	require.NoError(t, err)
	require.Equal(t, []string{"exp", "b64"}, crit)

	h.Set(header.Critical, "exp")
	crit, err = h.Critical()
	require.NoError(t, err)
	require.Equal(t, []string{"exp"}, crit)
}

func TestGetInt64FromFloat64(t *testing.T) {
	h := header.New()
	h.Set("p2c", float64(8192))
	v, err := h.GetInt64("p2c")
	require.NoError(t, err)
	require.Equal(t, int64(8192), v)
}

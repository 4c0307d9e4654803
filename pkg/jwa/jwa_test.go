package jwa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/jwa"
)

func TestLookupSignatureKnownAndUnknown(t *testing.T) {
	d, ok := jwa.LookupSignature(jwa.RS256)
	require.True(t, ok)
	require.Equal(t, jwa.KindRSA, d.KeyKind)
	require.True(t, d.ProvidesIntegrity)

	_, ok = jwa.LookupSignature("bogus")
	require.False(t, ok)
}

func TestLookupKeyMgmtCriticalParameters(t *testing.T) {
	d, ok := jwa.LookupKeyMgmt(jwa.ECDHESA128KW)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"epk", "apu", "apv"}, d.SupportedCritical)

	d, ok = jwa.LookupKeyMgmt(jwa.PBES2_HS256_A128KW)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"p2s", "p2c"}, d.SupportedCritical)
}

func TestLookupContentEncSizes(t *testing.T) {
	d, ok := jwa.LookupContentEnc(jwa.A256CBCHS512)
	require.True(t, ok)
	require.Equal(t, 64, d.CEKBytes)
	require.Equal(t, 16, d.IVBytes)

	d, ok = jwa.LookupContentEnc(jwa.A128GCM)
	require.True(t, ok)
	require.Equal(t, 16, d.CEKBytes)
	require.Equal(t, 12, d.IVBytes)
}

func TestDefaultJWSConstraintsBlocksNone(t *testing.T) {
	c := jwa.DefaultJWSConstraints()
	require.False(t, c.Permits(jwa.None))
	require.True(t, c.Permits(jwa.RS256))
	require.True(t, c.Permits(jwa.EdDSA))
}

func TestDefaultJWEKeyConstraintsBlocksRSA1_5AndPBES2(t *testing.T) {
	c := jwa.DefaultJWEKeyConstraints()
	require.False(t, c.Permits(jwa.RSA1_5))
	require.False(t, c.Permits(jwa.PBES2_HS256_A128KW))
	require.False(t, c.Permits(jwa.PBES2_HS384_A192KW))
	require.False(t, c.Permits(jwa.PBES2_HS512_A256KW))
	require.True(t, c.Permits(jwa.Direct))
	require.True(t, c.Permits(jwa.ECDHES))
}

func TestDefaultJWEEncConstraintsPermitsEverything(t *testing.T) {
	c := jwa.DefaultJWEEncConstraints()
	require.True(t, c.Permits(jwa.A128GCM))
	require.True(t, c.Permits("anything"))
}

func TestNoConstraintsPermitsEverything(t *testing.T) {
	c := jwa.NoConstraints()
	require.True(t, c.Permits(jwa.None))
	require.True(t, c.Permits("made-up"))
}

func TestSymmetricAndAsymmetricClassification(t *testing.T) {
	require.True(t, jwa.IsSymmetric(jwa.HS256))
	require.False(t, jwa.IsSymmetric(jwa.RS256))
	require.True(t, jwa.IsAsymmetric(jwa.ES256K))
	require.True(t, jwa.IsAsymmetric(jwa.EdDSA))
	require.False(t, jwa.IsAsymmetric(jwa.HS512))
}

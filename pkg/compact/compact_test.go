package compact_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/compact"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	s := "aaa.bbb.ccc"
	parts := compact.Split(s)
	require.Equal(t, []string{"aaa", "bbb", "ccc"}, parts)
	require.Equal(t, s, compact.Join(parts...))
}

func TestSplitEmptyMiddlePart(t *testing.T) {
	parts := compact.Split("header..sig")
	require.Equal(t, []string{"header", "", "sig"}, parts)
}

func TestRequirePartsMismatch(t *testing.T) {
	_, err := compact.RequireParts("a.b", 3)
	require.Error(t, err)

	parts, err := compact.RequireParts("a.b.c", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, parts)
}

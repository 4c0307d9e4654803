package base64_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/base64"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := [][]byte{
		[]byte(""),
		[]byte("f"),
		[]byte("fo"),
		[]byte("foo"),
		[]byte("foob"),
		[]byte("fooba"),
		[]byte("foobar"),
		{0x00, 0x01, 0xff, 0xfe},
	}

	for _, tt := range tests {
		encoded := base64.Encode(tt)
		require.NotContains(t, encoded, "=")

		decoded, err := base64.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, tt, decoded)
	}
}

func TestDecodeAcceptsPaddedAndUnpadded(t *testing.T) {
	unpadded := "Zm9vYmFy" // "foobar", happens to be 8 chars already
	decoded, err := base64.Decode(unpadded)
	require.NoError(t, err)
	require.Equal(t, []byte("foobar"), decoded)

	// "foo" -> "Zm9v" (already a multiple of 4, no padding needed)
	decoded, err = base64.Decode("Zm9v")
	require.NoError(t, err)
	require.Equal(t, []byte("foo"), decoded)

	// Exercise an input that needs padding added.
	decoded, err = base64.Decode("Zm8") // "fo" needs one '=' pad
	require.NoError(t, err)
	require.Equal(t, []byte("fo"), decoded)

	// The padded form of the same input is accepted too.
	decoded, err = base64.Decode("Zm8=")
	require.NoError(t, err)
	require.Equal(t, []byte("fo"), decoded)
}

func TestDecodeRejectsInvalidAlphabet(t *testing.T) {
	_, err := base64.Decode("not valid base64url!!")
	require.Error(t, err)
}

func TestDecodeEmptyIsEmptyNotError(t *testing.T) {
	decoded, err := base64.Decode("")
	require.NoError(t, err)
	require.Equal(t, []byte{}, decoded)
}

func TestEncodeEmptyIsEmpty(t *testing.T) {
	require.Equal(t, "", base64.Encode(nil))
	require.Equal(t, "", base64.Encode([]byte{}))
}

package jws_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jws"
)

func TestJWSBasicFlow(t *testing.T) {
	tests := []struct {
		name      string
		algorithm jwa.Algorithm
		keyGen    func() (signing any, verification any)
	}{
		{
			name:      "HMAC SHA-256",
			algorithm: jwa.HS256,
			keyGen: func() (any, any) {
				key := []byte("test-secret-key-that-is-long-enough-for-hmac-256")
				return key, key
			},
		},
		{
			name:      "RSA SHA-256",
			algorithm: jwa.RS256,
			keyGen: func() (any, any) {
				key, err := rsa.GenerateKey(rand.Reader, 2048)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "ECDSA P-256 SHA-256",
			algorithm: jwa.ES256,
			keyGen: func() (any, any) {
				key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "EdDSA",
			algorithm: jwa.EdDSA,
			keyGen: func() (any, any) {
				pub, priv, err := ed25519.GenerateKey(rand.Reader)
				require.NoError(t, err)
				return priv, pub
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signingKey, verificationKey := tt.keyGen()

			h := header.New().Set(header.Algorithm, tt.algorithm).Set(header.Type, "JWS")
			payload := []byte("Hello, JWS World!")

			signature, err := jws.New(h, payload, signingKey)
			require.NoError(t, err)
			require.NotNil(t, signature)
			require.Equal(t, payload, signature.Payload)
			require.NotEmpty(t, signature.Signature)

			signatureStr := signature.String()
			require.NotEmpty(t, signatureStr)

			periods := 0
			for _, char := range signatureStr {
				if char == '.' {
					periods++
				}
			}
			require.Equal(t, 2, periods, "JWS should have exactly 2 periods")

			parsedSignature, err := jws.Parse(signatureStr)
			require.NoError(t, err)
			require.NotNil(t, parsedSignature)

			require.Equal(t, signature.Payload, parsedSignature.Payload)
			require.Equal(t, signature.Signature, parsedSignature.Signature)

			require.NoError(t, parsedSignature.Verify(verificationKey))
			require.NoError(t, signature.Verify(verificationKey))
		})
	}
}

func TestJWSNoneAlgorithmRequiresExplicitPermission(t *testing.T) {
	h := header.New().Set(header.Algorithm, jwa.None)
	payload := []byte("This message has no signature")

	token, err := jws.New(h, payload, nil)
	require.NoError(t, err)
	require.Empty(t, token.Signature)

	// Verify with no constraints permits "none" — callers that care must
	// supply jwa.DefaultJWSConstraints() themselves.
	require.NoError(t, token.Verify(nil))

	err = token.VerifyWithConstraints(nil, jwa.DefaultJWSConstraints())
	require.Error(t, err)
}

func TestJWSParsing(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := jws.Parse("")
		require.Error(t, err)
	})

	t.Run("invalid format - too few parts", func(t *testing.T) {
		_, err := jws.Parse("header.payload")
		require.Error(t, err)
	})

	t.Run("invalid format - too many parts", func(t *testing.T) {
		_, err := jws.Parse("header.payload.signature.extra")
		require.Error(t, err)
	})

	t.Run("invalid base64 header", func(t *testing.T) {
		_, err := jws.Parse("invalid-base64!.payload.signature")
		require.Error(t, err)
	})

	t.Run("invalid JSON header", func(t *testing.T) {
		_, err := jws.Parse("eyJpbnZhbGlkIGpzb24=.payload.signature")
		require.Error(t, err)
	})
}

func TestJWSSignatureVerification(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	h := header.New().Set(header.Algorithm, jwa.RS256)
	payload := []byte("test payload")

	token, err := jws.New(h, payload, key)
	require.NoError(t, err)

	t.Run("valid signature", func(t *testing.T) {
		require.NoError(t, token.Verify(&key.PublicKey))
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := *token
		tampered.Signature = append([]byte{}, token.Signature...)
		tampered.Signature[0] ^= 0xFF

		require.Error(t, tampered.Verify(&key.PublicKey))
	})

	t.Run("wrong key", func(t *testing.T) {
		wrongKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		require.Error(t, token.Verify(&wrongKey.PublicKey))
	})
}

func TestJWSAlgorithmSupport(t *testing.T) {
	payload := []byte("test")

	h := header.New().Set(header.Algorithm, "UNSUPPORTED")
	token := &jws.Signature{Header: h, Payload: payload}

	_, err := token.Sign([]byte("key"))
	require.Error(t, err)

	err = token.Verify([]byte("key"))
	require.Error(t, err)
}

func TestJWSPayloadFlexibility(t *testing.T) {
	key := []byte("test-secret-key-that-is-long-enough")

	testCases := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", []byte{}},
		{"text payload", []byte("Hello, World!")},
		{"json payload", []byte(`{"message": "Hello, JWS!", "timestamp": 1234567890}`)},
		{"binary payload", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := header.New().Set(header.Algorithm, jwa.HS256)
			token, err := jws.New(h, tc.payload, key)
			require.NoError(t, err)

			tokenStr := token.String()
			parsedToken, err := jws.Parse(tokenStr)
			require.NoError(t, err)
			require.Equal(t, tc.payload, parsedToken.Payload)

			require.NoError(t, parsedToken.Verify(key))
		})
	}
}

func TestJWSUnrecognizedCriticalRejected(t *testing.T) {
	key := []byte("test-secret-key-that-is-long-enough")

	h := header.New().Set(header.Algorithm, jwa.HS256).Set(header.Critical, []string{"x-unknown"})
	token, err := jws.New(h, []byte("payload"), key)
	require.NoError(t, err)

	err = token.Verify(key)
	require.Error(t, err)
}

func TestJWSKnownCriticalHeaderAccepted(t *testing.T) {
	key := []byte("test-secret-key-that-is-long-enough")

	h := header.New().Set(header.Algorithm, jwa.HS256).Set(header.Critical, []string{"x-caller-known"})
	token, err := jws.New(h, []byte("payload"), key)
	require.NoError(t, err)

	require.Error(t, token.VerifyWithKnownCritical(key, nil, nil))
	require.NoError(t, token.VerifyWithKnownCritical(key, nil, []string{"x-caller-known"}))
}

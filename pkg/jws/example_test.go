package jws_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jws"
)

// Example demonstrates basic JWS usage for signing arbitrary payloads.
func Example() {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	h := header.New().
		Set(header.Algorithm, jwa.ES256).
		Set(header.Type, "JWS").
		Set(header.KeyID, "my-key-1")

	payload := []byte(`{"message": "Hello, JWS World!", "data": [1, 2, 3]}`)

	token, err := jws.New(h, payload, privateKey)
	if err != nil {
		log.Fatal(err)
	}

	jwsString := token.String()
	fmt.Printf("JWS Token: %s\n", jwsString[:50]+"...")

	parsedToken, err := jws.Parse(jwsString)
	if err != nil {
		log.Fatal(err)
	}

	if err := parsedToken.Verify(&privateKey.PublicKey); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Payload: %s\n", string(parsedToken.Payload))
	alg, _ := parsedToken.Header.Algorithm()
	fmt.Printf("Algorithm: %v\n", alg)
	fmt.Println("Signature verified successfully!")
}

// ExampleNew_textPayload demonstrates JWS with a simple text payload.
func ExampleNew_textPayload() {
	key := []byte("my-secret-key-that-is-32-bytes!!")

	h := header.New().Set(header.Algorithm, jwa.HS256)
	payload := []byte("This is a simple text message that will be signed.")

	token, err := jws.New(h, payload, key)
	if err != nil {
		log.Fatal(err)
	}

	if err := token.Verify(key); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Text message signature verified!")
	// Output:
	// Text message signature verified!
}

// ExampleNew_emptyPayload demonstrates JWS with an empty payload.
func ExampleNew_emptyPayload() {
	key := []byte("my-secret-key-that-is-32-bytes!!")

	h := header.New().Set(header.Algorithm, jwa.HS256)

	// Empty payload is valid in JWS (unlike JWT, which requires claims).
	token, err := jws.New(h, []byte{}, key)
	if err != nil {
		log.Fatal(err)
	}

	if err := token.Verify(key); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Empty payload signature verified!")
	// Output:
	// Empty payload signature verified!
}

// ExampleNew_unsecured demonstrates unsecured JWS (algorithm "none").
func ExampleNew_unsecured() {
	h := header.New().Set(header.Algorithm, jwa.None)
	payload := []byte("This message has no signature")

	token, err := jws.New(h, payload, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Unsecured JWS: %s\n", token.String())

	if err := token.Verify(nil); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Unsecured JWS verified!")

	// Output:
	// Unsecured JWS: eyJhbGciOiJub25lIn0.VGhpcyBtZXNzYWdlIGhhcyBubyBzaWduYXR1cmU.
	// Unsecured JWS verified!
}

package jwt_test

import (
	"fmt"
	"log"
	"time"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jwt"
)

// Example demonstrates signing a claims set and consuming it back with a
// Consumer configured with the expected issuer and audience.
func Example() {
	key := []byte("a-shared-secret-that-is-long-enough-for-hs256")

	claims := jwt.ClaimsSet{}
	claims.SetIssuer("https://issuer.example.com")
	claims.SetAudience("my-api")
	claims.SetSubject("user-42")
	claims.SetExpirationIn(time.Now(), time.Hour)

	h := header.New().Set(header.Algorithm, jwa.HS256)

	token, err := jwt.Sign(h, claims, key)
	if err != nil {
		log.Fatal(err)
	}

	consumer := jwt.NewConsumerBuilder().
		WithKey(key).
		WithExpectedIssuers("https://issuer.example.com").
		WithExpectedAudience("my-api").
		Build()

	result, err := consumer.Process(token)
	if err != nil {
		log.Fatal(err)
	}

	sub, _, _ := result.Claims.SubjectValue()
	fmt.Println(sub)
	// Output:
	// user-42
}

package jose_test

import (
	"fmt"
	"time"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jwt"
)

func ExampleSign() {
	claims := jwt.ClaimsSet{}
	claims.SetSubject("1234567890")
	claims.Set("name", "josecore")
	claims.SetIssuedAt(time.Now())

	h := header.New().Set(header.Algorithm, jwa.HS256)

	token, err := jwt.Sign(h, claims, []byte("supersecret-that-is-long-enough-for-hs256"))
	if err != nil {
		panic(fmt.Sprintf("failed to sign JWT: %v", err))
	}

	consumer := jwt.NewConsumerBuilder().
		WithKey([]byte("supersecret-that-is-long-enough-for-hs256")).
		WithJWSConstraints(jwa.NewConstraints(jwa.HS256)).
		Build()

	result, err := consumer.Process(token)
	if err != nil {
		panic(fmt.Sprintf("failed to verify JWT: %v", err))
	}

	sub, _, err := result.Claims.SubjectValue()
	if err != nil {
		panic(fmt.Sprintf("failed to get JWT subject: %v", err))
	}

	fmt.Println(sub)
	// Output: 1234567890
}

package jwt

import "errors"

// ErrNoClaimSet is returned when an operation that requires a parsed claims
// set is attempted before one is available (e.g. calling Verify on a
// pending two-pass result that holds no layers).
var ErrNoClaimSet = errors.New("jwt: no claim set")

// Package jwt implements JSON Web Tokens (RFC 7519): a claims set carried
// inside a JWS, a JWE, or a JWS nested inside a JWE, plus a configurable
// consumer pipeline for parsing and validating one.
package jwt

// Package jwt reads access-token claims on the client side and mints tokens for
// local test backends.
//
// A client usually cannot verify the backend's signature, so [Inspector] parses
// tokens unverified by default and is used only to learn the expiry time. When a
// verification key is configured it validates the signature as well.
package jwt

// Package common defines sentinel errors shared across the server layers
// of the Will Counter API. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository / backing-store errors.
	ErrorNotFound          = errors.New("not found")
	ErrorConflict          = errors.New("conflict")
	ErrorRemoteUnavailable = errors.New("remote store unavailable")
	ErrorMalformedResponse = errors.New("malformed remote response")

	// Token verification errors. Each maps to a fixed unauthorized reason;
	// claim contents are never echoed back to the caller.
	ErrMissingCredential  = errors.New("authentication required")
	ErrMalformedToken     = errors.New("invalid token header")
	ErrUnknownSigningKey  = errors.New("unable to resolve signing key")
	ErrInvalidKeyMaterial = errors.New("invalid signing key")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidSubject     = errors.New("invalid token subject")
)

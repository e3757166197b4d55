// Package common defines sentinel errors shared by the client core, the
// remote API adapters and the development backend. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Local source errors.
	ErrInvalidSource   = errors.New("invalid source")
	ErrInvalidMetadata = errors.New("invalid metadata")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStale    = errors.New("stale record")

	// Remote failure classes.
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
	ErrValidation   = errors.New("validation error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

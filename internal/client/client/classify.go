package client

import (
	"errors"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// Class is the failure class of a remote call as seen by the queues.
type Class int

const (
	// Transient failures are retried with backoff.
	Transient Class = iota
	// Auth failures need the user to sign in again.
	Auth
	// ConflictAlready means the remote already is in the desired state.
	ConflictAlready
	// Permanent failures will not succeed on retry.
	Permanent
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Auth:
		return "auth"
	case ConflictAlready:
		return "conflict_already"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Retryable reports whether the entry should go back to Pending.
func (c Class) Retryable() bool {
	return c == Transient
}

// Classify maps err onto a Class. Errors it does not recognise, including
// context deadlines, are Transient.
func Classify(err error) Class {
	switch {
	case errors.Is(err, common.ErrConflict), errors.Is(err, common.ErrNotFound):
		return ConflictAlready
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return Auth
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidMetadata),
		errors.Is(err, common.ErrInvalidSource):
		return Permanent
	default:
		return Transient
	}
}

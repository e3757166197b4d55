// Package models defines the records kept by the offline queues: uploads,
// interactions, the generic persisted Record and their status machine.
package models

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity names the queue a record belongs to.
type Entity string

const (
	EntityUpload      Entity = "upload"
	EntityInteraction Entity = "interaction"
)

// Status is the lifecycle state of a queued record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusFailed    Status = "failed"
	StatusDone      Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusFailed, StatusDone:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is allowed.
//
//	Pending   -> Uploading
//	Uploading -> Pending | Failed | Done
//	Failed    -> Pending (manual retry)
//	Done is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusUploading
	case StatusUploading:
		return next == StatusPending || next == StatusFailed || next == StatusDone
	case StatusFailed:
		return next == StatusPending
	case StatusDone:
		return false
	default:
		return false
	}
}

// CheckTransition returns an error describing an illegal transition.
func (s Status) CheckTransition(next Status) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s", s, next)
	}
	return nil
}

// NewID returns a new time-ordered identifier for a queue entry.
func NewID() string {
	return ulid.Make().String()
}

// Now is the clock used for created_at and retry scheduling. Tests may replace it.
var Now = func() time.Time { return time.Now().UTC() }

// Package queue provides the durable store behind the offline queues.
//
// Records of every entity (uploads, interactions) live in one SQLite table
// keyed by id, with an optional per-entity dedup key. Entity-specific fields
// are kept in an opaque JSON payload so the store stays agnostic of them.
//
// Every mutation runs in its own transaction and is committed before the
// call returns, so a record observed by a caller survives a process crash.
// Updates are atomic per record and can be guarded by status and revision
// preconditions; a failed precondition returns common.ErrStale.
//
// Ordering: List and ListEligible return records by created_at and then by
// insertion sequence, which gives FIFO processing.
package queue

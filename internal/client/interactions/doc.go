// Package interactions is the queue of like and follow toggles.
//
// At most one unsynced entry exists per (owner, target, target kind). A new
// toggle collapses into it: the entry's action is overwritten with the new
// desired state, and when that state equals the server state the entry was
// created against (its base state) the entry is deleted, leaving nothing to
// sync. An entry that is in flight is never deleted; its action is updated
// and the entry is re-based against the applied state once the remote call
// finishes.
//
// An in-memory index keyed by the dedup key mirrors the stored entries so
// GetPendingState answers without I/O.
package interactions

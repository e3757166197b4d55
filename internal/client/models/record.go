package models

import "time"

// Record is the persisted, entity-agnostic form of a queue entry.
// Entity-specific fields live in Payload as JSON.
type Record struct {
	ID       string
	Entity   Entity
	OwnerID  string
	DedupKey string // empty when the entity does not deduplicate

	Status        Status
	Attempts      uint32
	LastError     string
	NextAttemptAt time.Time

	Payload []byte

	// Revision is bumped by every update and lets callers detect concurrent changes.
	Revision int64
	// Seq is the insertion sequence, used to break created_at ties.
	Seq int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch describes a partial update of a Record. Nil fields are left
// unchanged. IfStatus/IfRevision are preconditions checked atomically with
// the update.
type Patch struct {
	Status        *Status
	Attempts      *uint32
	LastError     *string
	NextAttemptAt *time.Time
	Payload       []byte

	IfStatus   *Status
	IfRevision *int64
}

func (p Patch) SetStatus(s Status) Patch {
	p.Status = &s
	return p
}

func (p Patch) SetAttempts(n uint32) Patch {
	p.Attempts = &n
	return p
}

func (p Patch) SetLastError(msg string) Patch {
	p.LastError = &msg
	return p
}

func (p Patch) SetNextAttemptAt(t time.Time) Patch {
	p.NextAttemptAt = &t
	return p
}

func (p Patch) SetPayload(b []byte) Patch {
	p.Payload = b
	return p
}

// When adds a status precondition.
func (p Patch) When(s Status) Patch {
	p.IfStatus = &s
	return p
}

// AtRevision adds a revision precondition.
func (p Patch) AtRevision(rev int64) Patch {
	p.IfRevision = &rev
	return p
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Attempts == nil && p.LastError == nil && p.NextAttemptAt == nil && p.Payload == nil
}

package queue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
)

// Store is the durable key-value store of queue records.
type Store interface {
	// Append persists a new record. It fails with common.ErrConflict when the
	// id or the (entity, dedup key) pair is already present.
	Append(ctx context.Context, rec *models.Record) error

	// Get returns the record with id or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Record, error)

	// List returns all records of entity in FIFO order.
	List(ctx context.Context, entity models.Entity) ([]*models.Record, error)

	// ListEligible returns Pending records of entity whose retry time has
	// passed, in FIFO order. A limit <= 0 means no limit.
	ListEligible(ctx context.Context, entity models.Entity, now time.Time, limit int) ([]*models.Record, error)

	// FindByDedupKey returns the record of entity holding key or common.ErrNotFound.
	FindByDedupKey(ctx context.Context, entity models.Entity, key string) (*models.Record, error)

	// Update applies patch atomically and returns the updated record.
	Update(ctx context.Context, id string, patch models.Patch) (*models.Record, error)

	// Remove deletes the record. Removing a missing record is not an error.
	Remove(ctx context.Context, id string) error

	// RemoveAt deletes the record only if it is still at revision.
	RemoveAt(ctx context.Context, id string, revision int64) error

	// RecoverStale moves records left Uploading by a crash back to Pending.
	RecoverStale(ctx context.Context) (int, error)

	// Stats counts records per entity and status.
	Stats(ctx context.Context) (Stats, error)
}

// Stats counts records per entity and status.
type Stats map[models.Entity]map[models.Status]int

// Count returns the number of records of entity in status.
func (s Stats) Count(entity models.Entity, status models.Status) int {
	return s[entity][status]
}

// Total returns the number of records of entity in any status.
func (s Stats) Total(entity models.Entity) int {
	n := 0
	for _, c := range s[entity] {
		n += c
	}
	return n
}

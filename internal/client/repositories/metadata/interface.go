package metadata

import (
	"context"
)

// Repository is a small key-value store for client bookkeeping: the session
// token and the outcome of the last sync run. Keys are grouped by dotted
// prefix ("session.", "sync.") so a group can be replaced or dropped as one.
type Repository interface {
	// Get returns (nil, nil) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all values in one transaction.
	SetMany(ctx context.Context, values map[string][]byte) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix and reports how
	// many were removed. An empty prefix removes everything.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	// List returns the keys starting with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

const (
	PrefixSession = "session."
	PrefixSync    = "sync."
)

// Well-known keys.
const (
	KeyAccessToken  = PrefixSession + "access_token"
	KeyUserID       = PrefixSession + "user_id"
	KeyLastSyncAt   = PrefixSync + "last_at"
	KeyLastSyncInfo = PrefixSync + "last_report"
)

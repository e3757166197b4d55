// Package notify is the callback surface the offline core uses to keep
// optimistic UI indicators current.
package notify

import (
	"context"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/logging"
)

// Notifier receives queue lifecycle events. Implementations must not block.
type Notifier interface {
	OnQueued(entity models.Entity, id string)
	OnSynced(entity models.Entity, id string)
	// OnSyncFailed is called once per entry, when it becomes Failed.
	OnSyncFailed(entity models.Entity, id string, reason string)
}

// Nop ignores every event.
type Nop struct{}

func (Nop) OnQueued(models.Entity, string)             {}
func (Nop) OnSynced(models.Entity, string)             {}
func (Nop) OnSyncFailed(models.Entity, string, string) {}

// Log writes events to a Logger.
type Log struct {
	Logger logging.Logger
}

func (l Log) OnQueued(entity models.Entity, id string) {
	l.Logger.Info(context.Background(), "queued", "entity", entity, "id", id)
}

func (l Log) OnSynced(entity models.Entity, id string) {
	l.Logger.Info(context.Background(), "synced", "entity", entity, "id", id)
}

func (l Log) OnSyncFailed(entity models.Entity, id string, reason string) {
	l.Logger.Warn(context.Background(), "needs attention", "entity", entity, "id", id, "reason", reason)
}

// Multi fans events out to several notifiers in order.
type Multi []Notifier

func (m Multi) OnQueued(entity models.Entity, id string) {
	for _, n := range m {
		n.OnQueued(entity, id)
	}
}

func (m Multi) OnSynced(entity models.Entity, id string) {
	for _, n := range m {
		n.OnSynced(entity, id)
	}
}

func (m Multi) OnSyncFailed(entity models.Entity, id string, reason string) {
	for _, n := range m {
		n.OnSyncFailed(entity, id, reason)
	}
}

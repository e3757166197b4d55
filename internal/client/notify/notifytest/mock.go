// Package notifytest provides a testify mock of notify.Notifier.
package notifytest

import (
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/stretchr/testify/mock"
)

// Mock is a testify mock of notify.Notifier.
type Mock struct {
	mock.Mock
}

func (m *Mock) OnQueued(entity models.Entity, id string) {
	m.Called(entity, id)
}

func (m *Mock) OnSynced(entity models.Entity, id string) {
	m.Called(entity, id)
}

func (m *Mock) OnSyncFailed(entity models.Entity, id string, reason string) {
	m.Called(entity, id, reason)
}

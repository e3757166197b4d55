package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpenDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "clipsync.db")

	repos, err := OpenDatabase(ctx, path)
	require.NoError(t, err)
	defer repos.Close()

	assert.True(t, tableExists(t, repos.DB, "goose_db_version"))
	assert.True(t, tableExists(t, repos.DB, "queue_records"))
	assert.True(t, tableExists(t, repos.DB, "metadata"))

	var mode string
	require.NoError(t, repos.DB.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos, err := OpenDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, RunMigrations(ctx, repos.DB))
}

func TestOpenDatabase_RecoversInFlightRecordsAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	repos, err := OpenDatabase(ctx, path)
	require.NoError(t, err)

	rec := &models.Record{ID: models.NewID(), Entity: models.EntityUpload, OwnerID: "u1",
		Status: models.StatusPending, Payload: []byte(`{}`)}
	require.NoError(t, repos.Queue.Append(ctx, rec))
	_, err = repos.Queue.Update(ctx, rec.ID, models.Patch{}.SetStatus(models.StatusUploading))
	require.NoError(t, err)
	require.NoError(t, repos.Close())

	repos, err = OpenDatabase(ctx, path)
	require.NoError(t, err)
	defer repos.Close()

	got, err := repos.Queue.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

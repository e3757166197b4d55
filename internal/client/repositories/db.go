// Package repositories opens the local client database and groups the
// repositories built on it.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/clipsync/internal/client/migrations"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/clipsync/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the stores backed by one local database.
type Repositories struct {
	DB       *sql.DB
	Queue    *queue.SQLiteStore
	Metadata metadata.Repository
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// DSN builds a modernc sqlite DSN with the durability pragmas the queue relies on:
// WAL journaling with full fsync on commit.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(ON)")
	return "file:" + path + "?" + q.Encode()
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenDatabase opens (creating if needed) the database at path, migrates it
// and resets records a previous crash left in flight.
func OpenDatabase(ctx context.Context, path string) (*Repositories, error) {
	if path != ":memory:" {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, err
	}
	// One connection: writes are serialized and an in-memory database is shared.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	store := queue.NewSQLiteStore(db)
	if _, err := store.RecoverStale(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Queue:    store,
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}

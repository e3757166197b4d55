package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const selectColumns = `seq, id, entity, owner_id, dedup_key, status, attempts, last_error,
	next_attempt_at, payload, revision, created_at, updated_at`

// SQLiteStore implements Store on top of a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	// mu serializes writers so read-check-write sequences do not interleave.
	mu sync.Mutex
}

// NewSQLiteStore returns a store bound to db. The queue_records table must exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("record %s: invalid status %q", rec.ID, rec.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := models.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Revision == 0 {
		rec.Revision = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_records (id, entity, owner_id, dedup_key, status, attempts, last_error,
			next_attempt_at, payload, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Entity, rec.OwnerID, nullString(rec.DedupKey), rec.Status, rec.Attempts, rec.LastError,
		toNanos(rec.NextAttemptAt), rec.Payload, rec.Revision, toNanos(rec.CreatedAt), toNanos(rec.UpdatedAt))
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("append record %s: %w", rec.ID, common.ErrConflict)
		}
		return fmt.Errorf("failed to append record %s: %w", rec.ID, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record sequence: %w", err)
	}
	rec.Seq = seq
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Record, error) {
	return getRecord(ctx, s.db, id)
}

func (s *SQLiteStore) List(ctx context.Context, entity models.Entity) ([]*models.Record, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM queue_records
		WHERE entity = ? ORDER BY created_at, seq`, entity)
}

func (s *SQLiteStore) ListEligible(ctx context.Context, entity models.Entity, now time.Time, limit int) ([]*models.Record, error) {
	q := `SELECT ` + selectColumns + ` FROM queue_records
		WHERE entity = ? AND status = ? AND next_attempt_at <= ? ORDER BY created_at, seq`
	args := []any{entity, models.StatusPending, toNanos(now)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

func (s *SQLiteStore) FindByDedupKey(ctx context.Context, entity models.Entity, key string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM queue_records
		WHERE entity = ? AND dedup_key = ?`, entity, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record by dedup key: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch models.Patch) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Record, error) {
		rec, err := getRecord(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		if patch.IfStatus != nil && rec.Status != *patch.IfStatus {
			return nil, fmt.Errorf("record %s is %s, want %s: %w", id, rec.Status, *patch.IfStatus, common.ErrStale)
		}
		if patch.IfRevision != nil && rec.Revision != *patch.IfRevision {
			return nil, fmt.Errorf("record %s is at revision %d, want %d: %w", id, rec.Revision, *patch.IfRevision, common.ErrStale)
		}

		if patch.Status != nil && *patch.Status != rec.Status {
			if err := rec.Status.CheckTransition(*patch.Status); err != nil {
				return nil, fmt.Errorf("record %s: %w", id, err)
			}
			rec.Status = *patch.Status
		}
		if patch.Attempts != nil {
			rec.Attempts = *patch.Attempts
		}
		if patch.LastError != nil {
			rec.LastError = *patch.LastError
		}
		if patch.NextAttemptAt != nil {
			rec.NextAttemptAt = *patch.NextAttemptAt
		}
		if patch.Payload != nil {
			rec.Payload = patch.Payload
		}
		rec.Revision++
		rec.UpdatedAt = models.Now()

		_, err = tx.ExecContext(ctx, `
			UPDATE queue_records SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?,
				payload = ?, revision = ?, updated_at = ?
			WHERE id = ?`,
			rec.Status, rec.Attempts, rec.LastError, toNanos(rec.NextAttemptAt),
			rec.Payload, rec.Revision, toNanos(rec.UpdatedAt), id)
		if err != nil {
			return nil, fmt.Errorf("failed to update record %s: %w", id, err)
		}
		return rec, nil
	})
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveAt(ctx context.Context, id string, revision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := getRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec.Revision != revision {
			return fmt.Errorf("record %s is at revision %d, want %d: %w", id, rec.Revision, revision, common.ErrStale)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove record %s: %w", id, err)
		}
		return nil
	})
}

func (s *SQLiteStore) RecoverStale(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_records SET status = ?, revision = revision + 1, updated_at = ?
		WHERE status = ?`,
		models.StatusPending, toNanos(models.Now()), models.StatusUploading)
	if err != nil {
		return 0, fmt.Errorf("failed to recover stale records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity, status, COUNT(*) FROM queue_records GROUP BY entity, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	stats := Stats{}
	for rows.Next() {
		var (
			entity models.Entity
			status models.Status
			n      int
		)
		if err := rows.Scan(&entity, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan record count: %w", err)
		}
		if stats[entity] == nil {
			stats[entity] = map[models.Status]int{}
		}
		stats[entity][status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record counts: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

func getRecord(ctx context.Context, db dbx.DBTX, id string) (*models.Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM queue_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var (
		rec                           models.Record
		dedup                         sql.NullString
		nextAttempt, created, updated int64
	)
	err := sc.Scan(&rec.Seq, &rec.ID, &rec.Entity, &rec.OwnerID, &dedup, &rec.Status, &rec.Attempts,
		&rec.LastError, &nextAttempt, &rec.Payload, &rec.Revision, &created, &updated)
	if err != nil {
		return nil, err
	}
	rec.DedupKey = dedup.String
	rec.NextAttemptAt = fromNanos(nextAttempt)
	rec.CreatedAt = fromNanos(created)
	rec.UpdatedAt = fromNanos(updated)
	return &rec, nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

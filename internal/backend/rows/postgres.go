package rows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore writes rows over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert adds row to table. A duplicate key yields common.ErrConflict.
func (s *PostgresStore) Insert(ctx context.Context, table string, row map[string]any) error {
	t, err := Lookup(table, row)
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return fmt.Errorf("%w: empty row", common.ErrValidation)
	}

	cols := sortedKeys(row)
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(quoted, ", "), strings.Join(params, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(fmt.Errorf("insert into %s: %w", t.Name, err))
	}
	return nil
}

// Delete removes the rows of table matching every filter column. It returns
// common.ErrNotFound when nothing matched.
func (s *PostgresStore) Delete(ctx context.Context, table string, filter map[string]any) (int64, error) {
	t, err := Lookup(table, filter)
	if err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: delete without filter", common.ErrValidation)
	}

	cols := sortedKeys(filter)
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", quoteIdent(c), i+1)
		args[i] = filter[c]
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(t.Name), strings.Join(conds, " AND "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(fmt.Errorf("delete from %s: %w", t.Name, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no rows in %s match", common.ErrNotFound, t.Name)
	}
	return n, nil
}

// mapError translates PostgreSQL error codes into common sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %v", common.ErrConflict, err)
	case "23502", "23503", "23514", "22P02", "22007", "22008": // not null, fk, check, bad input
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	default:
		return err
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

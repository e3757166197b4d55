package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet_InsertThenGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	v, err := r.Get(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, v) // absent keys read as (nil, nil)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new"))) // upsert

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestList_ReturnsAllPairs(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}))

	m, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte{0xAA}, m["a"])
	assert.Equal(t, []byte{0xBB, 0xCC}, m["b"])
}

func TestDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", []byte{0x01}))
	require.NoError(t, r.Delete(ctx, "x"))

	// deleted keys read as (nil, nil)
	v, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, v)

	// deleting again is a no-op
	require.NoError(t, r.Delete(ctx, "x"))
}

func TestDeletePrefix_RemovesOnlyThatGroup(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("tok")))
	require.NoError(t, r.Set(ctx, KeyUserID, []byte("u1")))
	require.NoError(t, r.Set(ctx, KeyLastSyncAt, []byte("t")))
	require.NoError(t, r.Set(ctx, "sessionx", []byte("not in group")))

	n, err := r.DeletePrefix(ctx, PrefixSession)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{KeyLastSyncAt: []byte("t"), "sessionx": []byte("not in group")}, m)

	n, err = r.DeletePrefix(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestList_PrefixIsLiteral(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a_b.x", []byte{1}))
	require.NoError(t, r.Set(ctx, "azb.y", []byte{2}))

	m, err := r.List(ctx, "a_b.")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a_b.x": {1}}, m)
}

func TestSetMany_WritesAllOrNothing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{KeyAccessToken: []byte("tok"), KeyUserID: []byte("u1")}))
	m, err := r.List(ctx, PrefixSession)
	require.NoError(t, err)
	assert.Len(t, m, 2)

	_, err = db.Exec(`CREATE TRIGGER reject_b BEFORE INSERT ON metadata WHEN NEW.key = 'b'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	// keys are written in order, so "b" fails after "a" and both roll back
	err = r.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	require.ErrorContains(t, err, "failed to set metadata[b]")
	v, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, r.SetMany(ctx, map[string][]byte{"": []byte("x")}))
}

func TestDelete_ManyKeys(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{"a": {1}, "b": {2}, "c": {3}}))
	require.NoError(t, r.Delete(ctx, "a", "c", "missing"))

	m, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"b": {2}}, m)
}

// nullable schema so a NULL value can be inserted
func setupDBNullable(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB);`)
	require.NoError(t, err)
	return db
}

func TestGet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	// a closed DB makes the driver fail
	require.NoError(t, db.Close())

	v, err := r.Get(ctx, "k")
	require.Error(t, err)
	require.Nil(t, v)
	require.Contains(t, err.Error(), "failed to get metadata[k]")
}

func TestSet_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	err := r.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to set metadata[k]")
}

func TestDelete_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	err := r.Delete(ctx, "k")
	require.Error(t, err)
	require.Contains(t, err.Error(), "begin tx")
}

func TestDeletePrefix_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := r.DeletePrefix(ctx, PrefixSync)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to delete metadata[sync.*]")
}

func TestList_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := r.List(ctx, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to list metadata")
}

func TestList_NullValueIsReturnedAsNil(t *testing.T) {
	db := setupDBNullable(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES ('bad', NULL);`)
	require.NoError(t, err)

	m, err := r.List(ctx, "")
	require.NoError(t, err)

	v, ok := m["bad"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestJSONHelpers_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	type info struct {
		Synced int    `json:"synced"`
		Error  string `json:"error"`
	}

	var got info
	ok, err := GetJSON(ctx, r, KeyLastSyncInfo, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, r, KeyLastSyncInfo, info{Synced: 3, Error: "offline"}))

	ok, err = GetJSON(ctx, r, KeyLastSyncInfo, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, info{Synced: 3, Error: "offline"}, got)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("{not json")))

	var v map[string]any
	_, err := GetJSON(ctx, r, "k", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode metadata[k]")
}

package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_RunAppliesPendingInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	files := fstest.MapFS{
		"migrations/001_create_a.sql": {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
		"migrations/002_create_b.sql": {Data: []byte("CREATE TABLE b (id TEXT PRIMARY KEY, a_id TEXT REFERENCES a(id));\nCREATE INDEX idx_b_a ON b(a_id);")},
	}

	manager := NewManager(NewScanner(files, "migrations"), NewSQLiteExecutor(db), nil)
	require.NoError(t, manager.Run(ctx))

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Empty(t, status.Pending)
	require.Len(t, status.Applied, 2)
	assert.Equal(t, "001", status.Applied[0].Version)

	_, err = db.ExecContext(ctx, "INSERT INTO b (id) VALUES ('x')")
	require.NoError(t, err)

	// A second run is a no-op.
	require.NoError(t, manager.Run(ctx))
}

func TestManager_RunPicksUpNewFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLiteExecutor(db)

	files := fstest.MapFS{
		"m/001_create_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
	}
	require.NoError(t, NewManager(NewScanner(files, "m"), executor, nil).Run(ctx))

	files["m/002_create_b.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE b (id TEXT);")}
	manager := NewManager(NewScanner(files, "m"), executor, nil)

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "002", status.Pending[0].Version)

	require.NoError(t, manager.Run(ctx))
}

func TestManager_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	files := fstest.MapFS{
		"m/001_ok.sql":     {Data: []byte("CREATE TABLE a (id TEXT);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE b (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
	}

	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), nil)
	err := manager.Run(ctx)
	require.ErrorIs(t, err, ErrMigrationFailed)

	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.Equal(t, "002", migrationErr.Version)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'b'").Scan(&count))
	assert.Zero(t, count, "partial migration must roll back")

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "001", status.CurrentVersion)
}

func TestManager_DetectsGapsAndEditedFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("gap", func(t *testing.T) {
		t.Parallel()
		files := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"m/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		err := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(openTestDB(t)), nil).Run(ctx)
		require.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("checksum", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		files := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		}
		require.NoError(t, NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), nil).Run(ctx))

		files["m/001_a.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}
		err := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), nil).Run(ctx)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

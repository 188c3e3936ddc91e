package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations exposes the embedded schema files.
func Migrations() fs.FS {
	return migrationFiles
}

// Migrate applies the embedded migrations to db.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(db),
		logger,
	)
	return manager.Run(ctx)
}

// repositories binds every repository to the same querier.
type repositories struct {
	meetings *MeetingRepository
	blocks   *AvailabilityBlockRepository
	entries  *ScheduleEntryRepository
	logs     *AvailabilityLogRepository
}

func newRepositories(q querier) repositories {
	return repositories{
		meetings: NewMeetingRepository(q),
		blocks:   NewAvailabilityBlockRepository(q),
		entries:  NewScheduleEntryRepository(q),
		logs:     NewAvailabilityLogRepository(q),
	}
}

func (r repositories) Meetings() persistence.MeetingRepository          { return r.meetings }
func (r repositories) Blocks() persistence.AvailabilityBlockRepository { return r.blocks }
func (r repositories) Entries() persistence.ScheduleEntryRepository    { return r.entries }
func (r repositories) Logs() persistence.AvailabilityLogRepository     { return r.logs }

// Store implements persistence.Store on top of a ConnectionPool.
type Store struct {
	repositories
	pool *ConnectionPool
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Store. Repositories used outside WithinTransaction run
// each multi-statement write in its own transaction.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		repositories: newRepositories(pool.DB()),
		pool:         pool,
	}
}

// WithinTransaction runs fn inside one BEGIN IMMEDIATE transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

// WithinReadTransaction runs fn against a committed snapshot on the read pool.
// Writes inside fn fail because the connection is query_only.
func (s *Store) WithinReadTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return s.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	t.Parallel()

	dsn := DefaultConfig("/var/lib/scheduler/db.sqlite").DSN()

	assert.True(t, strings.HasPrefix(dsn, "file:/var/lib/scheduler/db.sqlite?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "busy_timeout%285000%29")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")

	read := DefaultConfig("/var/lib/scheduler/db.sqlite").ReadDSN()
	assert.NotContains(t, read, "_txlock")
	assert.Contains(t, read, "query_only%281%29")
	assert.Contains(t, read, "busy_timeout%285000%29")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig("x.db").Validate())

	cfg := DefaultConfig("")
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig("x.db")
	cfg.JournalMode = "fancy"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig("x.db")
	cfg.BusyTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestErrorMapper_MapError(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()

	tests := []struct {
		msg    string
		expect error
	}{
		{"UNIQUE constraint failed: meetings.id", persistence.ErrDuplicate},
		{"FOREIGN KEY constraint failed", persistence.ErrForeignKeyViolation},
		{"CHECK constraint failed: start_time < end_time", persistence.ErrConstraintViolation},
		{"NOT NULL constraint failed: meetings.title", persistence.ErrConstraintViolation},
		{"database is locked (5) (SQLITE_BUSY)", persistence.ErrBusy},
	}

	for _, tt := range tests {
		mapped := mapper.MapError(errors.New(tt.msg))
		assert.ErrorIs(t, mapped, tt.expect, tt.msg)
		assert.Contains(t, mapped.Error(), tt.msg)
	}

	assert.NoError(t, mapper.MapError(nil))

	plain := errors.New("disk I/O error")
	assert.Same(t, plain, mapper.MapError(plain))

	wrapped := fmt.Errorf("%w: entry e-1", persistence.ErrOverlap)
	assert.Equal(t, wrapped, mapper.MapError(wrapped))
}

func TestRetryHelper_WithRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	helper := NewRetryHelper(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})

	t.Run("retries busy until success", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := helper.WithRetry(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := helper.WithRetry(ctx, func() error {
			attempts++
			return errors.New("UNIQUE constraint failed: x")
		})
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := helper.WithRetry(ctx, func() error {
			attempts++
			return errors.New("database is locked")
		})
		assert.ErrorIs(t, err, persistence.ErrBusy)
		assert.Equal(t, 4, attempts)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		t.Parallel()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := helper.WithRetry(cancelled, func() error {
			return errors.New("database is locked")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

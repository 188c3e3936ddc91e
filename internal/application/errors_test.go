package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	assert.Equal(t, "", nilErr.Error())
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "title is required", "participant_ids": "at least one participant is required"}}
	assert.Equal(t, "validation failed: participant_ids: at least one participant is required; title: title is required", withFields.Error())
}

func TestValidationError_AddKeepsFirstMessageAndMerges(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	assert.False(t, base.HasErrors())

	base.add("title", "first")
	base.add("title", "second")
	assert.Equal(t, "first", base.FieldErrors["title"])

	base.merge(&ValidationError{FieldErrors: map[string]string{"time_slots": "bad"}})
	base.merge(nil)
	assert.Len(t, base.FieldErrors, 2)
	assert.True(t, base.HasErrors())
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapStoreError(nil))
	assert.Same(t, ErrNotFound, mapStoreError(fmt.Errorf("wrapped: %w", persistence.ErrNotFound)))

	busy := mapStoreError(fmt.Errorf("begin: %w", persistence.ErrBusy))
	require.ErrorIs(t, busy, ErrRetryable)
	assert.ErrorIs(t, busy, persistence.ErrBusy)

	contended := mapStoreError(fmt.Errorf("%w: lock:employee:a", lock.ErrNotAcquired))
	assert.ErrorIs(t, contended, ErrRetryable)

	unreachable := mapStoreError(fmt.Errorf("%w: set lock:employee:a: %w", lock.ErrNotAcquired, errors.New("dial tcp: connection refused")))
	assert.ErrorIs(t, unreachable, ErrRetryable)

	vErr := newValidationError("title", "required")
	var got *ValidationError
	require.ErrorAs(t, mapStoreError(vErr), &got)
	assert.Same(t, vErr, got)

	opaque := errors.New("disk on fire")
	assert.Same(t, opaque, mapStoreError(opaque))
}

package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityLogRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Meetings().CreateMeeting(ctx, sampleMeeting("m-1", []string{"p", "q"}, slotAt(9, 0, 10, 0))))

	// Ids sort in the opposite order of insertion to prove rowid ordering.
	var logs []scheduler.AvailabilityLog
	for i := 0; i < 4; i++ {
		log := scheduler.AvailabilityLog{
			ID:         fmt.Sprintf("log-%d", 9-i),
			MeetingID:  "m-1",
			EmployeeID: []string{"p", "q"}[i%2],
			Slot:       scheduler.Interval{Start: at(9, 0), End: at(10, 0)},
			Status:     scheduler.StatusAvailable,
			CheckedAt:  baseDay,
		}
		if i == 1 {
			log.Status = scheduler.StatusHasMeeting
			log.Reason = mo.Some("Standup")
			log.ConflictingMeetingID = mo.Some("m-0")
		}
		logs = append(logs, log)
	}
	require.NoError(t, store.Logs().InsertLogs(ctx, logs))

	got, err := store.Logs().ListLogs(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "log-9", got[0].ID)
	assert.Equal(t, "log-6", got[3].ID)

	assert.True(t, got[0].Reason.IsAbsent())
	assert.Equal(t, "Standup", got[1].Reason.OrEmpty())
	assert.Equal(t, "m-0", got[1].ConflictingMeetingID.OrEmpty())
	assert.True(t, got[1].Slot.Start.Equal(at(9, 0)))

	deleted, err := store.Logs().DeleteLogs(ctx, "m-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	got, err = store.Logs().ListLogs(ctx, "m-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

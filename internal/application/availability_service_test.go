package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/example/meeting-scheduler/internal/testfixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailability_BlockBoundary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.block(t, "pat", testfixtures.Window(14, 0, 15, 0), scheduler.BlockUnavailable, "dentist")

	report, err := env.services.Availability.CheckAvailability(context.Background(), application.CheckAvailabilityParams{
		ParticipantIDs: []string{"pat"},
		TimeSlots: []application.TimeSlotInput{
			testfixtures.Slot(14, 30, 15, 0),
			testfixtures.Slot(15, 0, 15, 30),
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Matrix, 2)

	busy := report.Matrix[0].Results[0]
	assert.Equal(t, scheduler.StatusUnavailable, busy.Status)
	assert.Equal(t, "dentist", busy.Reason.OrEmpty())

	assert.True(t, report.Matrix[1].Results[0].Available(), "touching endpoints do not overlap")
	assert.Equal(t, []int{1}, report.SatisfiableSlots)
}

func TestCheckAvailability_IsIdempotentAndReadOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("alice"),
		testfixtures.WithSlots(testfixtures.Slot(9, 0, 10, 0)),
	), false)
	env.entry(t, "bob", testfixtures.Window(9, 30, 11, 0), scheduler.EntryEmergencyOut, "flat tyre")
	env.entry(t, "bob", testfixtures.Window(8, 0, 18, 0), scheduler.EntryLeave, "sick leave")

	params := application.CheckAvailabilityParams{
		ParticipantIDs: []string{"alice", "bob", "carol"},
		TimeSlots: []application.TimeSlotInput{
			testfixtures.Slot(9, 30, 10, 30),
			testfixtures.Slot(12, 0, 13, 0),
		},
	}

	first, err := env.services.Availability.CheckAvailability(ctx, params)
	require.NoError(t, err)
	second, err := env.services.Availability.CheckAvailability(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	statuses := make([]scheduler.AvailabilityStatus, 0, 3)
	for _, r := range first.Matrix[0].Results {
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []scheduler.AvailabilityStatus{
		scheduler.StatusHasMeeting,
		scheduler.StatusUnavailable,
		scheduler.StatusAvailable,
	}, statuses)
	assert.Equal(t, "has EMERGENCY_OUT: flat tyre", first.Matrix[0].Results[1].Reason.OrEmpty())
	assert.Equal(t, []int{1}, first.SatisfiableSlots, "leave never blocks")

	assert.Len(t, env.entries(t, "bob"), 2)
	meetings, err := env.services.Meetings.ListMeetings(ctx, application.ListMeetingsParams{})
	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestCheckAvailability_ExcludesMeetingUnderRevision(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	created := env.create(t, testfixtures.NewDraft(testfixtures.WithParticipants("alice")), true)

	params := application.CheckAvailabilityParams{
		ParticipantIDs: []string{"alice"},
		TimeSlots:      []application.TimeSlotInput{testfixtures.Slot(10, 30, 11, 30)},
	}
	report, err := env.services.Availability.CheckAvailability(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusHasMeeting, report.Matrix[0].Results[0].Status)

	params.ExcludeMeetingID = created.Meeting.ID
	report, err = env.services.Availability.CheckAvailability(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, report.Matrix[0].Results[0].Available())
}

func TestCheckAvailability_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.services.Availability.CheckAvailability(context.Background(), application.CheckAvailabilityParams{})

	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "participant_ids")
	assert.Contains(t, vErr.FieldErrors, "time_slots")
}

func TestCheckAvailability_DoesNotWaitForOpenWriter(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	window := testfixtures.Window(14, 0, 15, 0)
	params := application.CheckAvailabilityParams{
		ParticipantIDs: []string{"pat"},
		TimeSlots:      []application.TimeSlotInput{testfixtures.Slot(14, 0, 15, 0)},
	}

	err := env.store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		require.NoError(t, repos.Blocks().CreateBlock(ctx, scheduler.AvailabilityBlock{
			ID: "b-pending", EmployeeID: "pat", Start: window.Start, End: window.End,
			Status: scheduler.BlockUnavailable, Reason: "pending", CreatedBy: "pat",
		}))

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		started := time.Now()
		report, err := env.services.Availability.CheckAvailability(checkCtx, params)
		require.NoError(t, err)
		assert.Less(t, time.Since(started), time.Second)
		assert.Equal(t, []int{0}, report.SatisfiableSlots, "the open writer's block is not visible yet")
		return nil
	})
	require.NoError(t, err)

	report, err := env.services.Availability.CheckAvailability(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, report.SatisfiableSlots)
	assert.Equal(t, "pending", report.Matrix[0].Results[0].Reason.OrEmpty())
}

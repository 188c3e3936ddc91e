package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
	"github.com/example/meeting-scheduler/internal/testfixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    persistence.Store
	factory  *testfixtures.ServiceFactory
	services testfixtures.Services
}

func newTestEnv(t *testing.T, opts ...testfixtures.ServiceFactoryOption) *testEnv {
	t.Helper()
	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory(opts...)
	return &testEnv{
		store:    harness.Store,
		factory:  factory,
		services: factory.NewServices(harness.Store),
	}
}

func (e *testEnv) block(t *testing.T, employeeID string, window scheduler.Interval, status scheduler.BlockStatus, reason string) scheduler.AvailabilityBlock {
	t.Helper()
	block, err := e.services.Calendar.CreateBlock(context.Background(), application.CreateBlockParams{
		Principal: testfixtures.Admin(),
		Input:     testfixtures.BlockInput(employeeID, window, status, reason),
	})
	require.NoError(t, err)
	return block
}

func (e *testEnv) entry(t *testing.T, employeeID string, window scheduler.Interval, entryType scheduler.EntryType, remarks string) scheduler.ScheduleEntry {
	t.Helper()
	entry, err := e.services.Calendar.CreateEntry(context.Background(), application.CreateEntryParams{
		Principal: testfixtures.Admin(),
		Input:     testfixtures.EntryInput(employeeID, window, entryType, remarks),
	})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) create(t *testing.T, draft application.MeetingDraft, force bool) application.ScheduleResult {
	t.Helper()
	result, err := e.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Principal: testfixtures.Organizer(),
		Draft:     draft,
		Force:     force,
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) entries(t *testing.T, employeeID string) []scheduler.ScheduleEntry {
	t.Helper()
	entries, err := e.store.Entries().ListEntries(context.Background(), employeeID, persistence.Window{})
	require.NoError(t, err)
	return entries
}

func (e *testEnv) blocks(t *testing.T, employeeID string) []scheduler.AvailabilityBlock {
	t.Helper()
	blocks, err := e.store.Blocks().ListBlocks(context.Background(), employeeID, persistence.Window{})
	require.NoError(t, err)
	return blocks
}

func TestCreateMeeting_LogsEverySlotAndParticipant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.block(t, "alice", testfixtures.Window(10, 0, 11, 0), scheduler.BlockUnavailable, "workshop")

	result := env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("alice", "bob"),
		testfixtures.WithSlots(testfixtures.Slot(10, 0, 11, 0), testfixtures.Slot(14, 0, 15, 0)),
	), false)

	require.Equal(t, application.OutcomeScheduled, result.Outcome)
	assert.Equal(t, []int{1}, result.Availability.SatisfiableSlots())
	assert.Equal(t, scheduler.MeetingScheduled, result.Meeting.Status)
	assert.Equal(t, "2024-05-06", result.Meeting.TimeSlots[0].Date)

	logs, err := env.services.Meetings.GetMeetingAvailabilityLogs(context.Background(), result.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, logs, 4)

	type row struct {
		employee string
		start    int
		status   scheduler.AvailabilityStatus
	}
	got := make([]row, 0, len(logs))
	for _, l := range logs {
		got = append(got, row{l.EmployeeID, l.Slot.Start.Hour(), l.Status})
		assert.Equal(t, result.Meeting.ID, l.MeetingID)
	}
	assert.Equal(t, []row{
		{"alice", 10, scheduler.StatusUnavailable},
		{"bob", 10, scheduler.StatusAvailable},
		{"alice", 14, scheduler.StatusAvailable},
		{"bob", 14, scheduler.StatusAvailable},
	}, got)
	assert.Equal(t, "workshop", logs[0].Reason.OrEmpty())
	assert.True(t, logs[1].Reason.IsAbsent())

	assert.Len(t, env.blocks(t, "alice"), 1, "an unforced schedule must not touch calendars")
	assert.Empty(t, env.entries(t, "alice"))
}

func TestCreateMeeting_ConflictPersistsNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.block(t, "alice", testfixtures.Window(9, 0, 12, 0), scheduler.BlockOutOfOffice, "client visit")
	env.entry(t, "bob", testfixtures.Window(13, 0, 16, 0), scheduler.EntryOffsiteWork, "warehouse audit")

	result := env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("alice", "bob"),
		testfixtures.WithSlots(testfixtures.Slot(10, 0, 11, 0), testfixtures.Slot(14, 0, 15, 0)),
	), false)

	require.True(t, result.Conflict())
	assert.Empty(t, result.Logs)
	require.Len(t, result.Availability, 2)

	first := result.Availability[0].Results
	assert.Equal(t, scheduler.StatusOutOfOffice, first[0].Status)
	assert.Equal(t, "client visit", first[0].Reason.OrEmpty())
	assert.Equal(t, scheduler.StatusAvailable, first[1].Status)

	second := result.Availability[1].Results
	assert.Equal(t, scheduler.StatusAvailable, second[0].Status)
	assert.Equal(t, scheduler.StatusUnavailable, second[1].Status)
	assert.Equal(t, "has OFFSITE_WORK: warehouse audit", second[1].Reason.OrEmpty())

	assert.Empty(t, result.Meeting.ID, "a rolled back meeting has no id")
	assert.Equal(t, []string{"alice", "bob"}, result.Meeting.ParticipantIDs)
	for _, id := range env.factory.IDGenerator.Issued() {
		_, err := env.services.Meetings.GetMeeting(context.Background(), id)
		assert.ErrorIs(t, err, application.ErrNotFound, id)
	}

	meetings, err := env.services.Meetings.ListMeetings(context.Background(), application.ListMeetingsParams{})
	require.NoError(t, err)
	assert.Empty(t, meetings)
	assert.Len(t, env.blocks(t, "alice"), 1)
	assert.Len(t, env.entries(t, "bob"), 1)
}

func TestCreateMeeting_ForceOverridesEverythingButLeave(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.block(t, "alice", testfixtures.Window(9, 30, 10, 30), scheduler.BlockUnavailable, "dentist")
	env.block(t, "alice", testfixtures.Window(16, 0, 17, 0), scheduler.BlockUnavailable, "gym")
	env.entry(t, "bob", testfixtures.Window(14, 30, 15, 30), scheduler.EntryHalfDay, "afternoon off")
	leave := env.entry(t, "bob", testfixtures.Window(8, 0, 18, 0), scheduler.EntryLeave, "annual leave")

	result := env.create(t, testfixtures.NewDraft(
		testfixtures.WithTitle("Quarterly review"),
		testfixtures.WithParticipants("alice", "bob"),
		testfixtures.WithSlots(testfixtures.Slot(10, 0, 11, 0), testfixtures.Slot(14, 0, 15, 0)),
	), true)

	require.Equal(t, application.OutcomeScheduled, result.Outcome)
	assert.False(t, result.Availability.AnySatisfiable())
	assert.Len(t, result.Logs, 4)

	aliceBlocks := env.blocks(t, "alice")
	require.Len(t, aliceBlocks, 1, "only the overlapping block is removed")
	assert.Equal(t, "gym", aliceBlocks[0].Reason)

	for _, employee := range []string{"alice", "bob"} {
		var claims []scheduler.ScheduleEntry
		for _, e := range env.entries(t, employee) {
			if e.Source == scheduler.SourceSystem {
				claims = append(claims, e)
			}
		}
		require.Len(t, claims, 2, employee)
		for _, claim := range claims {
			assert.Equal(t, scheduler.EntryMeeting, claim.Type)
			assert.Equal(t, "Meeting: Quarterly review", claim.Remarks)
			assert.True(t, claim.IsConfirmed)
			assert.Equal(t, result.Meeting.ID, claim.MeetingID)
		}
		assert.Equal(t, testfixtures.At(10, 0), claims[0].Start)
		assert.Equal(t, testfixtures.At(15, 0), claims[1].End)
	}

	bobEntries := env.entries(t, "bob")
	var sawLeave bool
	for _, e := range bobEntries {
		assert.NotEqual(t, scheduler.EntryHalfDay, e.Type, "blocking entry must be overridden")
		if e.ID == leave.ID {
			sawLeave = true
			assert.Equal(t, leave, e)
		}
	}
	assert.True(t, sawLeave, "leave is never overridden")
}

func TestCreateMeeting_ForceRollsBackOnStorageFailure(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	failing := &failingClaimStore{Store: harness.Store, err: errors.New("disk full")}
	factory := testfixtures.NewServiceFactory()
	services := factory.NewServices(failing)
	seed := factory.NewServices(harness.Store)

	_, err := seed.Calendar.CreateBlock(context.Background(), application.CreateBlockParams{
		Principal: testfixtures.Admin(),
		Input:     testfixtures.BlockInput("alice", testfixtures.Window(10, 0, 11, 0), scheduler.BlockUnavailable, "training"),
	})
	require.NoError(t, err)

	_, err = services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Principal: testfixtures.Organizer(),
		Draft:     testfixtures.NewDraft(testfixtures.WithParticipants("alice")),
		Force:     true,
	})
	require.ErrorContains(t, err, "disk full")

	meetings, err := harness.Store.Meetings().ListMeetings(context.Background(), persistence.MeetingFilter{})
	require.NoError(t, err)
	assert.Empty(t, meetings)

	blocks, err := harness.Store.Blocks().ListBlocks(context.Background(), "alice", persistence.Window{})
	require.NoError(t, err)
	assert.Len(t, blocks, 1, "deleted block must be restored by rollback")
}

func TestCreateMeeting_ExistingMeetingConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	m1 := env.create(t, testfixtures.NewDraft(
		testfixtures.WithTitle("M1"),
		testfixtures.WithParticipants("pat"),
		testfixtures.WithSlots(testfixtures.Slot(10, 0, 10, 30)),
	), false)

	result := env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("pat"),
		testfixtures.WithSlots(testfixtures.Slot(10, 15, 10, 45)),
	), false)

	require.True(t, result.Conflict())
	got := result.Availability[0].Results[0]
	assert.Equal(t, scheduler.StatusHasMeeting, got.Status)
	assert.Equal(t, m1.Meeting.ID, got.ConflictingMeetingID.OrEmpty())
	assert.Equal(t, "M1", got.Reason.OrEmpty())
}

func TestCreateMeeting_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	cases := map[string]struct {
		draft application.MeetingDraft
		field string
	}{
		"title": {
			draft: testfixtures.NewDraft(testfixtures.WithTitle("  ")),
			field: "title",
		},
		"participants": {
			draft: testfixtures.NewDraft(testfixtures.WithParticipants(" ", "")),
			field: "participant_ids",
		},
		"slots": {
			draft: testfixtures.NewDraft(testfixtures.WithSlots()),
			field: "time_slots",
		},
		"inverted slot": {
			draft: testfixtures.NewDraft(testfixtures.WithSlots(testfixtures.Slot(11, 0, 10, 0))),
			field: "time_slots[0]",
		},
		"overlapping slots": {
			draft: testfixtures.NewDraft(testfixtures.WithSlots(testfixtures.Slot(10, 0, 11, 0), testfixtures.Slot(10, 30, 11, 30))),
			field: "time_slots[1]",
		},
		"date mismatch": {
			draft: testfixtures.NewDraft(testfixtures.WithSlots(application.TimeSlotInput{
				Date:  "2024-05-07",
				Start: testfixtures.At(10, 0),
				End:   testfixtures.At(11, 0),
			})),
			field: "time_slots[0].date",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
				Principal: testfixtures.Organizer(),
				Draft:     tc.draft,
			})
			var vErr *application.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldErrors, tc.field)
		})
	}

	meetings, err := env.services.Meetings.ListMeetings(context.Background(), application.ListMeetingsParams{})
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestCreateMeeting_DeduplicatesParticipants(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	result := env.create(t, testfixtures.NewDraft(testfixtures.WithParticipants("bob", " alice", "bob", "alice ")), false)

	assert.Equal(t, []string{"bob", "alice"}, result.Meeting.ParticipantIDs)
	assert.Equal(t, "organizer", result.Meeting.HostID)
	assert.Len(t, result.Logs, 2)
}

func TestCreateMeeting_RejectsForeignOrganizer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Principal: testfixtures.Employee("mallory"),
		Draft:     testfixtures.NewDraft(),
	})
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	result, err := env.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Principal: testfixtures.Admin(),
		Draft:     testfixtures.NewDraft(),
	})
	require.NoError(t, err)
	assert.Equal(t, "organizer", result.Meeting.OrganizerID)
}

func TestCreateMeeting_LockContentionIsRetryable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testfixtures.WithLocker(contendedLocker{}))
	_, err := env.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Principal: testfixtures.Organizer(),
		Draft:     testfixtures.NewDraft(),
	})
	assert.ErrorIs(t, err, application.ErrRetryable)
	assert.Equal(t, "retryable", application.ErrorKind(err))
}

func TestCreateMeeting_ConcurrentForcedClaimsNeverOverlap(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	const callers = 4

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.services.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
				Principal: testfixtures.Organizer(),
				Draft:     testfixtures.NewDraft(testfixtures.WithParticipants("pat")),
				Force:     true,
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	entries := env.entries(t, "pat")
	require.Len(t, entries, 1, "each forced claim replaces the previous one")
	assert.Equal(t, scheduler.SourceSystem, entries[0].Source)
}

func TestUpdateMeetingTimeSlots_ReplacesLogsAndClaims(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	created := env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("alice", "bob"),
		testfixtures.WithSlots(testfixtures.Slot(10, 0, 11, 0), testfixtures.Slot(14, 0, 15, 0)),
	), true)
	require.Len(t, env.entries(t, "alice"), 2)

	result, err := env.services.Meetings.UpdateMeetingTimeSlots(context.Background(), application.UpdateTimeSlotsParams{
		Principal: testfixtures.Organizer(),
		MeetingID: created.Meeting.ID,
		TimeSlots: []application.TimeSlotInput{testfixtures.Slot(10, 30, 11, 30)},
		Force:     true,
	})
	require.NoError(t, err)
	require.Equal(t, application.OutcomeScheduled, result.Outcome)

	got := result.Availability[0].Results
	for _, r := range got {
		assert.True(t, r.Available(), "a meeting never conflicts with itself or its own claims: %+v", r)
	}

	logs, err := env.services.Meetings.GetMeetingAvailabilityLogs(context.Background(), created.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2, "exactly one generation of logs remains")
	for _, l := range logs {
		assert.Equal(t, testfixtures.At(10, 30), l.Slot.Start)
	}

	for _, employee := range []string{"alice", "bob"} {
		entries := env.entries(t, employee)
		require.Len(t, entries, 1, "claims of the previous slots are released")
		assert.Equal(t, testfixtures.At(10, 30), entries[0].Start)
	}

	stored, err := env.services.Meetings.GetMeeting(context.Background(), created.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, stored.TimeSlots, 1)
	assert.Equal(t, testfixtures.At(11, 30), stored.TimeSlots[0].End)
}

func TestUpdateMeetingTimeSlots_ConflictKeepsPreviousState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	created := env.create(t, testfixtures.NewDraft(testfixtures.WithParticipants("alice")), false)
	env.block(t, "alice", testfixtures.Window(15, 0, 16, 0), scheduler.BlockEmergency, "family emergency")

	result, err := env.services.Meetings.UpdateMeetingTimeSlots(context.Background(), application.UpdateTimeSlotsParams{
		Principal: testfixtures.Organizer(),
		MeetingID: created.Meeting.ID,
		TimeSlots: []application.TimeSlotInput{testfixtures.Slot(15, 0, 16, 0)},
	})
	require.NoError(t, err)
	require.True(t, result.Conflict())
	assert.Equal(t, created.Meeting.ID, result.Meeting.ID, "a revised meeting keeps its id")
	assert.Equal(t, scheduler.StatusUnavailable, result.Availability[0].Results[0].Status)

	stored, err := env.services.Meetings.GetMeeting(context.Background(), created.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, testfixtures.At(10, 0), stored.TimeSlots[0].Start)

	logs, err := env.services.Meetings.GetMeetingAvailabilityLogs(context.Background(), created.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, testfixtures.At(10, 0), logs[0].Slot.Start)
}

func TestUpdateMeetingTimeSlots_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.services.Meetings.UpdateMeetingTimeSlots(ctx, application.UpdateTimeSlotsParams{
		Principal: testfixtures.Organizer(),
		MeetingID: "missing",
		TimeSlots: []application.TimeSlotInput{testfixtures.Slot(9, 0, 10, 0)},
	})
	assert.ErrorIs(t, err, application.ErrNotFound)

	created := env.create(t, testfixtures.NewDraft(), false)

	_, err = env.services.Meetings.UpdateMeetingTimeSlots(ctx, application.UpdateTimeSlotsParams{
		Principal: testfixtures.Employee("alice"),
		MeetingID: created.Meeting.ID,
		TimeSlots: []application.TimeSlotInput{testfixtures.Slot(9, 0, 10, 0)},
	})
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	_, err = env.services.Meetings.CancelMeeting(ctx, testfixtures.Organizer(), created.Meeting.ID)
	require.NoError(t, err)

	_, err = env.services.Meetings.UpdateMeetingTimeSlots(ctx, application.UpdateTimeSlotsParams{
		Principal: testfixtures.Organizer(),
		MeetingID: created.Meeting.ID,
		TimeSlots: []application.TimeSlotInput{testfixtures.Slot(9, 0, 10, 0)},
	})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "status")
}

func TestCancelMeeting_ReleasesClaimsAndFreesParticipants(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	created := env.create(t, testfixtures.NewDraft(testfixtures.WithParticipants("alice")), true)
	require.Len(t, env.entries(t, "alice"), 1)

	cancelled, err := env.services.Meetings.CancelMeeting(ctx, testfixtures.Organizer(), created.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.MeetingCancelled, cancelled.Status)
	assert.Empty(t, env.entries(t, "alice"))

	again, err := env.services.Meetings.CancelMeeting(ctx, testfixtures.Organizer(), created.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.MeetingCancelled, again.Status)

	report, err := env.services.Availability.CheckAvailability(ctx, application.CheckAvailabilityParams{
		ParticipantIDs: []string{"alice"},
		TimeSlots:      []application.TimeSlotInput{testfixtures.Slot(10, 0, 11, 0)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, report.SatisfiableSlots)

	stored, err := env.services.Meetings.GetMeeting(ctx, created.Meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.MeetingCancelled, stored.Status)
}

func TestUpdateMeetingStatus_Transitions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	created := env.create(t, testfixtures.NewDraft(), false)
	update := func(status scheduler.MeetingStatus) (scheduler.Meeting, error) {
		return env.services.Meetings.UpdateMeetingStatus(ctx, application.UpdateStatusParams{
			Principal: testfixtures.Organizer(),
			MeetingID: created.Meeting.ID,
			Status:    status,
		})
	}

	meeting, err := update(scheduler.MeetingOngoing)
	require.NoError(t, err)
	assert.Equal(t, scheduler.MeetingOngoing, meeting.Status)

	_, err = update(scheduler.MeetingScheduled)
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)

	meeting, err = update(scheduler.MeetingCompleted)
	require.NoError(t, err)
	assert.Equal(t, scheduler.MeetingCompleted, meeting.Status)

	_, err = update(scheduler.MeetingCancelled)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "completed meeting cannot be cancelled")

	_, err = update("archived")
	require.ErrorAs(t, err, &vErr)
}

func TestListMeetings_Filters(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	first := env.create(t, testfixtures.NewDraft(testfixtures.WithParticipants("alice")), false)
	env.factory.Clock.Advance(time.Minute)
	second := env.create(t, testfixtures.NewDraft(
		testfixtures.WithParticipants("bob"),
		testfixtures.WithSlots(testfixtures.Slot(15, 0, 16, 0)),
	), false)
	_, err := env.services.Meetings.CancelMeeting(ctx, testfixtures.Organizer(), second.Meeting.ID)
	require.NoError(t, err)

	byParticipant, err := env.services.Meetings.ListMeetings(ctx, application.ListMeetingsParams{ParticipantID: "alice"})
	require.NoError(t, err)
	require.Len(t, byParticipant, 1)
	assert.Equal(t, first.Meeting.ID, byParticipant[0].ID)

	active, err := env.services.Meetings.ListMeetings(ctx, application.ListMeetingsParams{Statuses: scheduler.ActiveMeetingStatuses()})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.Meeting.ID, active[0].ID)

	_, err = env.services.Meetings.ListMeetings(ctx, application.ListMeetingsParams{Statuses: []scheduler.MeetingStatus{"bogus"}})
	var vErr *application.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGetMeetingAvailabilityLogs_UnknownMeeting(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.services.Meetings.GetMeetingAvailabilityLogs(context.Background(), "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

type contendedLocker struct{}

func (contendedLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	return nil, lock.ErrNotAcquired
}

// failingClaimStore fails every claim insert made inside a transaction.
type failingClaimStore struct {
	persistence.Store
	err error
}

func (s *failingClaimStore) WithinTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return s.Store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		return fn(ctx, failingClaimRepos{Repositories: repos, err: s.err})
	})
}

type failingClaimRepos struct {
	persistence.Repositories
	err error
}

func (r failingClaimRepos) Entries() persistence.ScheduleEntryRepository {
	return failingEntries{ScheduleEntryRepository: r.Repositories.Entries(), err: r.err}
}

type failingEntries struct {
	persistence.ScheduleEntryRepository
	err error
}

func (e failingEntries) CreateEntry(ctx context.Context, entry scheduler.ScheduleEntry) error {
	if entry.Source == scheduler.SourceSystem {
		return e.err
	}
	return e.ScheduleEntryRepository.CreateEntry(ctx, entry)
}

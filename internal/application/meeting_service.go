package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/metrics"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// errNoSatisfiableSlot aborts the unit of work when scheduling is rejected.
// It never leaves the service.
var errNoSatisfiableSlot = errors.New("application: no satisfiable slot")

// MeetingService orchestrates meeting creation, revision and cancellation.
// Every write runs as one store transaction guarded by per-participant locks.
type MeetingService struct {
	store       persistence.Store
	locker      lock.Locker
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(store persistence.Store, locker lock.Locker, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &MeetingService{
		store:       store,
		locker:      locker,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) ready() error {
	if s == nil {
		return fmt.Errorf("MeetingService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	return nil
}

// CreateMeeting validates the draft, then persists the meeting, one
// availability log per slot and participant, and when forced the claims on
// every slot, all in one transaction. When no slot works for every
// participant and Force is false nothing is persisted, the result carries the
// full availability matrix and Meeting.ID is empty.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (result ScheduleResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting",
		"principal_id", params.Principal.UserID,
		"force", params.Force,
	)
	defer func() {
		metrics.IncScheduleAttempt("create", outcomeLabel(result, err))
		if err != nil {
			logger.ErrorContext(ctx, "meeting creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"meeting_id", result.Meeting.ID,
			"outcome", result.Outcome,
			"logs", len(result.Logs),
		).InfoContext(ctx, "meeting creation evaluated")
	}()

	meeting, vErr := validateDraft(params.Principal, params.Draft, s.location)
	if vErr != nil {
		err = vErr
		return
	}
	if meeting.OrganizerID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	now := normalizeInstant(s.now())
	meeting.ID = s.idGenerator()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	release, err := lockEmployees(ctx, s.locker, meeting.ParticipantIDs...)
	if err != nil {
		return
	}
	defer release()

	var stats claimStats
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		if err := repos.Meetings().CreateMeeting(ctx, meeting); err != nil {
			return fmt.Errorf("create meeting: %w", err)
		}
		var scheduleErr error
		result, stats, scheduleErr = s.evaluateAndRecord(ctx, repos, meeting, params.Principal.UserID, params.Force, now)
		return scheduleErr
	})
	result, err = s.finish(result, stats, err)
	if result.Conflict() {
		// The insert was rolled back; the draft has no identity.
		result.Meeting.ID = ""
	}
	return
}

// UpdateMeetingTimeSlots replaces the slots of an active meeting and
// re-evaluates every participant against them. The claims and logs of the
// previous slots are discarded in the same transaction.
func (s *MeetingService) UpdateMeetingTimeSlots(ctx context.Context, params UpdateTimeSlotsParams) (result ScheduleResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateMeetingTimeSlots",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
		"force", params.Force,
	)
	defer func() {
		metrics.IncScheduleAttempt("revise", outcomeLabel(result, err))
		if err != nil {
			logger.ErrorContext(ctx, "time slot revision failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"outcome", result.Outcome,
			"logs", len(result.Logs),
		).InfoContext(ctx, "time slot revision evaluated")
	}()

	vErr := &ValidationError{}
	slots := validateTimeSlots(params.TimeSlots, s.location, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing, err := s.authorizedMeeting(ctx, params.Principal, params.MeetingID)
	if err != nil {
		return
	}

	release, err := lockEmployees(ctx, s.locker, existing.ParticipantIDs...)
	if err != nil {
		return
	}
	defer release()

	now := normalizeInstant(s.now())
	var stats claimStats
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		meeting, err := repos.Meetings().GetMeeting(ctx, params.MeetingID)
		if err != nil {
			return err
		}
		if !meeting.Status.Active() {
			return newValidationError("status", fmt.Sprintf("a %s meeting cannot be rescheduled", meeting.Status))
		}

		released, err := releaseClaims(ctx, repos, meeting.ID)
		if err != nil {
			return err
		}
		if err := repos.Meetings().ReplaceTimeSlots(ctx, meeting.ID, slots, now); err != nil {
			return fmt.Errorf("replace time slots: %w", err)
		}
		if _, err := repos.Logs().DeleteLogs(ctx, meeting.ID); err != nil {
			return fmt.Errorf("delete availability logs: %w", err)
		}

		meeting.TimeSlots = slots
		meeting.UpdatedAt = now

		var scheduleErr error
		result, stats, scheduleErr = s.evaluateAndRecord(ctx, repos, meeting, params.Principal.UserID, params.Force, now)
		stats.claimsReleased = released
		return scheduleErr
	})
	return s.finish(result, stats, err)
}

// evaluateAndRecord runs the availability checker for meeting and, unless the
// result is a rejection, writes the logs and applies the override.
func (s *MeetingService) evaluateAndRecord(ctx context.Context, repos persistence.Repositories, meeting scheduler.Meeting, actorID string, force bool, now time.Time) (ScheduleResult, claimStats, error) {
	commitments, err := loadCommitments(ctx, repos, meeting.ParticipantIDs, meeting.TimeSlots)
	if err != nil {
		return ScheduleResult{}, claimStats{}, err
	}

	matrix := scheduler.BuildMatrix(meeting.ParticipantIDs, meeting.TimeSlots, commitments, meeting.ID)
	recordEvaluations(matrix)

	result := ScheduleResult{
		Outcome:      OutcomeScheduled,
		Meeting:      meeting,
		Availability: matrix,
	}
	if !force && !matrix.AnySatisfiable() {
		result.Outcome = OutcomeConflict
		return result, claimStats{}, errNoSatisfiableSlot
	}

	logs := availabilityLogs(meeting.ID, matrix, now, s.idGenerator)
	if err := repos.Logs().InsertLogs(ctx, logs); err != nil {
		return ScheduleResult{}, claimStats{}, fmt.Errorf("insert availability logs: %w", err)
	}
	result.Logs = logs

	if !force {
		return result, claimStats{}, nil
	}
	stats, err := forceClaim(ctx, repos, meeting, actorID, s.idGenerator, now)
	if err != nil {
		return ScheduleResult{}, claimStats{}, err
	}
	return result, stats, nil
}

// finish turns the transaction outcome into the service result. A rejected
// schedule rolled back on purpose and is reported without an error; its
// Meeting then holds the proposal, not stored state.
func (s *MeetingService) finish(result ScheduleResult, stats claimStats, txErr error) (ScheduleResult, error) {
	switch {
	case txErr == nil:
		stats.record()
		return result, nil
	case errors.Is(txErr, errNoSatisfiableSlot):
		result.Logs = nil
		return result, nil
	default:
		return ScheduleResult{}, mapStoreError(txErr)
	}
}

func availabilityLogs(meetingID string, matrix scheduler.Matrix, checkedAt time.Time, newID func() string) []scheduler.AvailabilityLog {
	var logs []scheduler.AvailabilityLog
	for _, slot := range matrix {
		for _, r := range slot.Results {
			logs = append(logs, scheduler.AvailabilityLog{
				ID:                   newID(),
				MeetingID:            meetingID,
				EmployeeID:           r.EmployeeID,
				Slot:                 slot.Slot.Interval(),
				Status:               r.Status,
				Reason:               r.Reason,
				ConflictingMeetingID: r.ConflictingMeetingID,
				CheckedAt:            checkedAt,
			})
		}
	}
	return logs
}

// CancelMeeting flips an active meeting to cancelled and releases its claims.
// Cancelling an already cancelled meeting returns it unchanged.
func (s *MeetingService) CancelMeeting(ctx context.Context, principal Principal, meetingID string) (meeting scheduler.Meeting, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelMeeting",
		"principal_id", principal.UserID,
		"meeting_id", meetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "meeting cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	existing, err := s.authorizedMeeting(ctx, principal, meetingID)
	if err != nil {
		return
	}

	release, err := lockEmployees(ctx, s.locker, existing.ParticipantIDs...)
	if err != nil {
		return
	}
	defer release()

	now := normalizeInstant(s.now())
	var released int64
	var changed bool
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		current, err := repos.Meetings().GetMeeting(ctx, meetingID)
		if err != nil {
			return err
		}
		switch current.Status {
		case scheduler.MeetingCancelled:
			meeting = current
			return nil
		case scheduler.MeetingCompleted:
			return newValidationError("status", "a completed meeting cannot be cancelled")
		case scheduler.MeetingScheduled, scheduler.MeetingOngoing:
		}

		if err := repos.Meetings().UpdateStatus(ctx, meetingID, scheduler.MeetingCancelled, now); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		released, err = releaseClaims(ctx, repos, meetingID)
		if err != nil {
			return err
		}
		current.Status = scheduler.MeetingCancelled
		current.UpdatedAt = now
		meeting = current
		changed = true
		return nil
	})
	if err != nil {
		meeting = scheduler.Meeting{}
		err = mapStoreError(err)
		return
	}
	if changed {
		metrics.IncMeetingCancelled()
		metrics.AddOverrideReleased("meeting_claim", released)
	}
	return
}

// UpdateMeetingStatus applies an external lifecycle transition. Moving to
// cancelled behaves like CancelMeeting.
func (s *MeetingService) UpdateMeetingStatus(ctx context.Context, params UpdateStatusParams) (meeting scheduler.Meeting, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !params.Status.Valid() {
		err = newValidationError("status", fmt.Sprintf("unknown status %q", params.Status))
		return
	}
	if params.Status == scheduler.MeetingCancelled {
		return s.CancelMeeting(ctx, params.Principal, params.MeetingID)
	}

	logger := s.loggerWith(ctx, "UpdateMeetingStatus",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
		"status", params.Status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "status update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "status updated")
	}()

	if _, err = s.authorizedMeeting(ctx, params.Principal, params.MeetingID); err != nil {
		return
	}

	now := normalizeInstant(s.now())
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		current, err := repos.Meetings().GetMeeting(ctx, params.MeetingID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(params.Status) {
			return newValidationError("status", fmt.Sprintf("cannot move a %s meeting to %s", current.Status, params.Status))
		}
		if err := repos.Meetings().UpdateStatus(ctx, params.MeetingID, params.Status, now); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		current.Status = params.Status
		current.UpdatedAt = now
		meeting = current
		return nil
	})
	if err != nil {
		meeting = scheduler.Meeting{}
		err = mapStoreError(err)
	}
	return
}

// GetMeeting returns one meeting.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string) (scheduler.Meeting, error) {
	if err := s.ready(); err != nil {
		return scheduler.Meeting{}, err
	}
	meeting, err := s.store.Meetings().GetMeeting(ctx, meetingID)
	if err != nil {
		return scheduler.Meeting{}, mapStoreError(err)
	}
	return meeting, nil
}

// ListMeetings enumerates meetings matching params, oldest first.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) ([]scheduler.Meeting, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	vErr := &ValidationError{}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr.add("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		vErr.add("to", "to must be after from")
	}
	if params.Limit < 0 {
		vErr.add("limit", "limit must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	meetings, err := s.store.Meetings().ListMeetings(ctx, persistence.MeetingFilter{
		ParticipantID: params.ParticipantID,
		Statuses:      params.Statuses,
		From:          params.From,
		To:            params.To,
		Limit:         params.Limit,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return meetings, nil
}

// GetMeetingAvailabilityLogs returns the current generation of availability
// logs of a meeting in evaluation order.
func (s *MeetingService) GetMeetingAvailabilityLogs(ctx context.Context, meetingID string) ([]scheduler.AvailabilityLog, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var logs []scheduler.AvailabilityLog
	err := s.store.WithinReadTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		if _, err := repos.Meetings().GetMeeting(ctx, meetingID); err != nil {
			return err
		}
		var err error
		logs, err = repos.Logs().ListLogs(ctx, meetingID)
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return logs, nil
}

// authorizedMeeting loads meetingID and checks that principal organizes or
// hosts it.
func (s *MeetingService) authorizedMeeting(ctx context.Context, principal Principal, meetingID string) (scheduler.Meeting, error) {
	if meetingID == "" {
		return scheduler.Meeting{}, newValidationError("meeting_id", "meeting id is required")
	}
	meeting, err := s.store.Meetings().GetMeeting(ctx, meetingID)
	if err != nil {
		return scheduler.Meeting{}, mapStoreError(err)
	}
	if principal.IsAdmin || principal.UserID == meeting.OrganizerID || principal.UserID == meeting.HostID {
		return meeting, nil
	}
	return scheduler.Meeting{}, ErrUnauthorized
}

func outcomeLabel(result ScheduleResult, err error) string {
	if err != nil {
		return ErrorKind(err)
	}
	return string(result.Outcome)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/metrics"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// Retrier re-runs an operation that failed on transient storage contention.
type Retrier interface {
	WithRetry(ctx context.Context, fn func() error) error
}

// AvailabilityService answers speculative availability questions. It never
// writes to the store.
type AvailabilityService struct {
	store    persistence.Store
	retry    Retrier
	location *time.Location
	logger   *slog.Logger
}

// NewAvailabilityService wires dependencies for availability checks. A nil
// retrier runs each check once; a nil location means UTC.
func NewAvailabilityService(store persistence.Store, retry Retrier, location *time.Location, logger *slog.Logger) *AvailabilityService {
	if location == nil {
		location = time.UTC
	}
	return &AvailabilityService{
		store:    store,
		retry:    retry,
		location: location,
		logger:   defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// CheckAvailability classifies every participant for every candidate slot
// against the current state of the store.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, params CheckAvailabilityParams) (report AvailabilityReport, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"participants", len(params.ParticipantIDs),
		"time_slots", len(params.TimeSlots),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("satisfiable_slots", report.SatisfiableSlots).DebugContext(ctx, "availability checked")
	}()

	vErr := &ValidationError{}
	participants := participantSet(params.ParticipantIDs)
	if len(participants) == 0 {
		vErr.add("participant_ids", "at least one participant is required")
	}
	slots := validateTimeSlots(params.TimeSlots, s.location, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var commitments map[string]scheduler.Commitments
	err = s.withRetry(ctx, func() error {
		return s.store.WithinReadTransaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
			var loadErr error
			commitments, loadErr = loadCommitments(ctx, repos, participants, slots)
			return loadErr
		})
	})
	if err != nil {
		err = mapStoreError(err)
		return
	}

	matrix := scheduler.BuildMatrix(participants, slots, commitments, params.ExcludeMeetingID)
	recordEvaluations(matrix)

	report = AvailabilityReport{
		ParticipantIDs:   participants,
		Matrix:           matrix,
		SatisfiableSlots: matrix.SatisfiableSlots(),
	}
	return
}

func (s *AvailabilityService) withRetry(ctx context.Context, fn func() error) error {
	if s.retry == nil {
		return fn()
	}
	return s.retry.WithRetry(ctx, fn)
}

// loadCommitments reads everything that may conflict with slots for each
// participant. One query per participant and kind covers the envelope of all
// slots; Evaluate narrows the results per slot.
func loadCommitments(ctx context.Context, repos persistence.Repositories, participants []string, slots []scheduler.TimeSlot) (map[string]scheduler.Commitments, error) {
	intervals := make([]scheduler.Interval, 0, len(slots))
	for _, slot := range slots {
		intervals = append(intervals, slot.Interval())
	}
	window, ok := scheduler.Envelope(intervals...)
	commitments := make(map[string]scheduler.Commitments, len(participants))
	if !ok {
		return commitments, nil
	}

	for _, participant := range participants {
		meetings, err := repos.Meetings().ListCommitments(ctx, participant, window)
		if err != nil {
			return nil, fmt.Errorf("list meeting commitments for %s: %w", participant, err)
		}
		blocks, err := repos.Blocks().ListOverlappingBlocks(ctx, participant, window)
		if err != nil {
			return nil, fmt.Errorf("list availability blocks for %s: %w", participant, err)
		}
		entries, err := repos.Entries().ListOverlappingEntries(ctx, participant, window)
		if err != nil {
			return nil, fmt.Errorf("list schedule entries for %s: %w", participant, err)
		}
		commitments[participant] = scheduler.Commitments{
			Meetings: meetings,
			Blocks:   blocks,
			Entries:  entries,
		}
	}
	return commitments, nil
}

func recordEvaluations(matrix scheduler.Matrix) {
	counts := make(map[scheduler.AvailabilityStatus]int)
	for _, slot := range matrix {
		for _, result := range slot.Results {
			counts[result.Status]++
		}
	}
	for status, n := range counts {
		metrics.AddEvaluations(string(status), n)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// CalendarService manages the availability blocks and schedule entries that
// the availability checker reads. Employees manage their own calendar;
// administrators manage anyone's.
type CalendarService struct {
	store       persistence.Store
	locker      lock.Locker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCalendarService wires dependencies for calendar operations.
func NewCalendarService(store persistence.Store, locker lock.Locker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CalendarService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		store:       store,
		locker:      locker,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

func (s *CalendarService) ready() error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	return nil
}

// CreateBlock records that an employee is unavailable within a window.
func (s *CalendarService) CreateBlock(ctx context.Context, params CreateBlockParams) (block scheduler.AvailabilityBlock, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateBlock", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability block creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("block_id", block.ID, "employee_id", block.EmployeeID).InfoContext(ctx, "availability block created")
	}()

	input := params.Input
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	if input.EmployeeID == "" {
		input.EmployeeID = params.Principal.UserID
	}
	if err = authorizeCalendar(params.Principal, input.EmployeeID); err != nil {
		return
	}

	window, vErr := validateBlock(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := normalizeInstant(s.now())
	candidate := scheduler.AvailabilityBlock{
		ID:         s.idGenerator(),
		EmployeeID: input.EmployeeID,
		Start:      window.Start,
		End:        window.End,
		Status:     input.Status,
		Reason:     strings.TrimSpace(input.Reason),
		CreatedBy:  params.Principal.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.withEmployeeLock(ctx, candidate.EmployeeID, func(ctx context.Context, repos persistence.Repositories) error {
		return repos.Blocks().CreateBlock(ctx, candidate)
	})
	if err != nil {
		return
	}
	block = candidate
	return
}

// UpdateBlock changes the window, status or reason of a block. The employee
// cannot be changed.
func (s *CalendarService) UpdateBlock(ctx context.Context, params UpdateBlockParams) (block scheduler.AvailabilityBlock, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateBlock", "principal_id", params.Principal.UserID, "block_id", params.BlockID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability block update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability block updated")
	}()

	existing, err := s.store.Blocks().GetBlock(ctx, params.BlockID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = authorizeCalendar(params.Principal, existing.EmployeeID); err != nil {
		return
	}

	input := params.Input
	window, vErr := validateBlock(input)
	if employee := strings.TrimSpace(input.EmployeeID); employee != "" && employee != existing.EmployeeID {
		vErr.add("employee_id", "employee cannot be changed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Start = window.Start
	updated.End = window.End
	updated.Status = input.Status
	updated.Reason = strings.TrimSpace(input.Reason)
	updated.UpdatedAt = normalizeInstant(s.now())

	err = s.withEmployeeLock(ctx, existing.EmployeeID, func(ctx context.Context, repos persistence.Repositories) error {
		return repos.Blocks().UpdateBlock(ctx, updated)
	})
	if err != nil {
		return
	}
	block = updated
	return
}

// DeleteBlock removes a block, making its window available again.
func (s *CalendarService) DeleteBlock(ctx context.Context, principal Principal, blockID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteBlock", "principal_id", principal.UserID, "block_id", blockID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability block deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability block deleted")
	}()

	existing, err := s.store.Blocks().GetBlock(ctx, blockID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = authorizeCalendar(principal, existing.EmployeeID); err != nil {
		return
	}
	err = s.withEmployeeLock(ctx, existing.EmployeeID, func(ctx context.Context, repos persistence.Repositories) error {
		return repos.Blocks().DeleteBlock(ctx, blockID)
	})
	return
}

// ListBlocks returns an employee's blocks ordered by start.
func (s *CalendarService) ListBlocks(ctx context.Context, query CalendarQuery) ([]scheduler.AvailabilityBlock, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	employeeID, window, err := calendarWindow(query)
	if err != nil {
		return nil, err
	}
	blocks, err := s.store.Blocks().ListBlocks(ctx, employeeID, window)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return blocks, nil
}

// CreateEntry records a committed block of time. SYSTEM sourced and MEETING
// typed entries are reserved for forced meetings. A blocking entry may not
// overlap another blocking entry of the same employee.
func (s *CalendarService) CreateEntry(ctx context.Context, params CreateEntryParams) (entry scheduler.ScheduleEntry, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateEntry", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule entry creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", entry.ID, "employee_id", entry.EmployeeID, "type", entry.Type).InfoContext(ctx, "schedule entry created")
	}()

	input := params.Input
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	if input.EmployeeID == "" {
		input.EmployeeID = params.Principal.UserID
	}
	if err = authorizeCalendar(params.Principal, input.EmployeeID); err != nil {
		return
	}
	if input.Source == "" {
		input.Source = scheduler.SourceSelf
		if input.EmployeeID != params.Principal.UserID {
			input.Source = scheduler.SourceAdmin
		}
	}

	vErr := &ValidationError{}
	switch {
	case !input.Source.Valid():
		vErr.add("source", fmt.Sprintf("unknown source %q", input.Source))
	case input.Source == scheduler.SourceSystem:
		vErr.add("source", "SYSTEM entries are created by forced meetings only")
	case input.Source != scheduler.SourceSelf && !params.Principal.IsAdmin:
		vErr.add("source", "only administrators may record ADMIN or HOD entries")
	}
	switch {
	case input.Type == "":
		vErr.add("type", "type is required")
	case !input.Type.Valid():
		vErr.add("type", fmt.Sprintf("unknown type %q", input.Type))
	case input.Type == scheduler.EntryMeeting:
		vErr.add("type", "MEETING entries are created by forced meetings only")
	}
	window := validateInterval(input.Start, input.End, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := normalizeInstant(s.now())
	candidate := scheduler.ScheduleEntry{
		ID:          s.idGenerator(),
		EmployeeID:  input.EmployeeID,
		CreatedBy:   params.Principal.UserID,
		Source:      input.Source,
		Type:        input.Type,
		Start:       window.Start,
		End:         window.End,
		Remarks:     strings.TrimSpace(input.Remarks),
		IsConfirmed: input.IsConfirmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.withEmployeeLock(ctx, candidate.EmployeeID, func(ctx context.Context, repos persistence.Repositories) error {
		if err := repos.Entries().CreateEntry(ctx, candidate); err != nil {
			if errors.Is(err, persistence.ErrOverlap) {
				return newValidationError("start", "overlaps another schedule entry of this employee")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return
	}
	entry = candidate
	return
}

// DeleteEntry removes a schedule entry. Claims of a meeting are released by
// revising or cancelling the meeting instead.
func (s *CalendarService) DeleteEntry(ctx context.Context, principal Principal, entryID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteEntry", "principal_id", principal.UserID, "entry_id", entryID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule entry deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule entry deleted")
	}()

	existing, err := s.store.Entries().GetEntry(ctx, entryID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = authorizeCalendar(principal, existing.EmployeeID); err != nil {
		return
	}
	if existing.Source == scheduler.SourceSystem {
		err = newValidationError("source", "meeting claims are released through the meeting")
		return
	}
	err = s.withEmployeeLock(ctx, existing.EmployeeID, func(ctx context.Context, repos persistence.Repositories) error {
		return repos.Entries().DeleteEntry(ctx, entryID)
	})
	return
}

// ListEntries returns an employee's schedule entries ordered by start.
func (s *CalendarService) ListEntries(ctx context.Context, query CalendarQuery) ([]scheduler.ScheduleEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	employeeID, window, err := calendarWindow(query)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Entries().ListEntries(ctx, employeeID, window)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return entries, nil
}

func (s *CalendarService) withEmployeeLock(ctx context.Context, employeeID string, fn persistence.TxFunc) error {
	release, err := lockEmployees(ctx, s.locker, employeeID)
	if err != nil {
		return err
	}
	defer release()
	return mapStoreError(s.store.WithinTransaction(ctx, fn))
}

func authorizeCalendar(principal Principal, employeeID string) error {
	if employeeID == "" {
		return newValidationError("employee_id", "employee is required")
	}
	if principal.IsAdmin || principal.UserID == employeeID {
		return nil
	}
	return ErrUnauthorized
}

func validateBlock(input BlockInput) (scheduler.Interval, *ValidationError) {
	vErr := &ValidationError{}
	if !input.Status.Valid() {
		vErr.add("status", fmt.Sprintf("unknown status %q", input.Status))
	}
	if strings.TrimSpace(input.Reason) == "" {
		vErr.add("reason", "reason is required")
	}
	window := validateInterval(input.Start, input.End, vErr)
	return window, vErr
}

func calendarWindow(query CalendarQuery) (string, persistence.Window, error) {
	employeeID := strings.TrimSpace(query.EmployeeID)
	if employeeID == "" {
		employeeID = query.Principal.UserID
	}
	if employeeID == "" {
		return "", persistence.Window{}, newValidationError("employee_id", "employee is required")
	}
	if query.From != nil && query.To != nil && !query.From.Before(*query.To) {
		return "", persistence.Window{}, newValidationError("to", "to must be after from")
	}
	return employeeID, persistence.Window{From: query.From, To: query.To}, nil
}

package persistence

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

// MeetingRepository stores meetings with their participants and slots.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting scheduler.Meeting) error
	GetMeeting(ctx context.Context, id string) (scheduler.Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]scheduler.Meeting, error)
	ReplaceTimeSlots(ctx context.Context, id string, slots []scheduler.TimeSlot, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status scheduler.MeetingStatus, updatedAt time.Time) error
	// ListCommitments returns the slots of active meetings attended by
	// employeeID that overlap window.
	ListCommitments(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.MeetingCommitment, error)
}

// AvailabilityBlockRepository stores explicit unavailability windows.
type AvailabilityBlockRepository interface {
	CreateBlock(ctx context.Context, block scheduler.AvailabilityBlock) error
	UpdateBlock(ctx context.Context, block scheduler.AvailabilityBlock) error
	GetBlock(ctx context.Context, id string) (scheduler.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id string) error
	ListBlocks(ctx context.Context, employeeID string, window Window) ([]scheduler.AvailabilityBlock, error)
	ListOverlappingBlocks(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.AvailabilityBlock, error)
	DeleteOverlappingBlocks(ctx context.Context, employeeID string, window scheduler.Interval) (int64, error)
}

// ScheduleEntryRepository stores committed calendar entries.
type ScheduleEntryRepository interface {
	// CreateEntry inserts entry. A blocking entry that overlaps another
	// blocking entry of the same employee fails with ErrOverlap.
	CreateEntry(ctx context.Context, entry scheduler.ScheduleEntry) error
	GetEntry(ctx context.Context, id string) (scheduler.ScheduleEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, employeeID string, window Window) ([]scheduler.ScheduleEntry, error)
	ListOverlappingEntries(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.ScheduleEntry, error)
	// DeleteOverlappingBlockingEntries removes every non-LEAVE entry of
	// employeeID overlapping window.
	DeleteOverlappingBlockingEntries(ctx context.Context, employeeID string, window scheduler.Interval) (int64, error)
	// DeleteMeetingClaims removes the SYSTEM entries inserted for meetingID.
	DeleteMeetingClaims(ctx context.Context, meetingID string) (int64, error)
}

// AvailabilityLogRepository stores the evidence of availability checks.
type AvailabilityLogRepository interface {
	InsertLogs(ctx context.Context, logs []scheduler.AvailabilityLog) error
	// ListLogs returns the logs of meetingID in insertion order.
	ListLogs(ctx context.Context, meetingID string) ([]scheduler.AvailabilityLog, error)
	DeleteLogs(ctx context.Context, meetingID string) (int64, error)
}

// Repositories groups the stores that take part in one unit of work.
type Repositories interface {
	Meetings() MeetingRepository
	Blocks() AvailabilityBlockRepository
	Entries() ScheduleEntryRepository
	Logs() AvailabilityLogRepository
}

// TxFunc is executed inside a transaction. Returning an error rolls back.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store exposes the repositories outside of a transaction and runs units of
// work atomically.
type Store interface {
	Repositories
	// WithinTransaction runs fn in a write transaction. The repositories
	// passed to fn see only that transaction.
	WithinTransaction(ctx context.Context, fn TxFunc) error
	// WithinReadTransaction runs fn against a consistent snapshot.
	WithinReadTransaction(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
}

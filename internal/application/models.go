package application

import (
	"time"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

// Principal represents the authenticated caller invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// TimeSlotInput is a caller supplied candidate slot. Date is optional and,
// when present, must name the calendar day of Start in the service location.
type TimeSlotInput struct {
	Date  string
	Start time.Time
	End   time.Time
}

// MeetingDraft captures the caller provided fields of a new meeting.
type MeetingDraft struct {
	OrganizerID    string
	HostID         string
	ParticipantIDs []string
	DepartmentIDs  []string
	Title          string
	Agenda         string
	Location       string
	Remarks        string
	IsVirtual      bool
	TimeSlots      []TimeSlotInput
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Draft     MeetingDraft
	Force     bool
}

// UpdateTimeSlotsParams wraps the data required to revise a meeting's slots.
type UpdateTimeSlotsParams struct {
	Principal Principal
	MeetingID string
	TimeSlots []TimeSlotInput
	Force     bool
}

// ScheduleOutcome distinguishes a committed schedule from a rejected one.
type ScheduleOutcome string

const (
	// OutcomeScheduled means the meeting and its logs were committed.
	OutcomeScheduled ScheduleOutcome = "scheduled"
	// OutcomeConflict means no slot worked for every participant and nothing
	// was persisted.
	OutcomeConflict ScheduleOutcome = "conflict"
)

// ScheduleResult is returned by create and revise operations. On conflict
// only Availability is populated; Meeting describes the rejected draft.
type ScheduleResult struct {
	Outcome      ScheduleOutcome
	Meeting      scheduler.Meeting
	Availability scheduler.Matrix
	Logs         []scheduler.AvailabilityLog
}

// Conflict reports whether the operation was rejected for lack of a
// satisfiable slot.
func (r ScheduleResult) Conflict() bool {
	return r.Outcome == OutcomeConflict
}

// CheckAvailabilityParams describes a speculative availability check.
type CheckAvailabilityParams struct {
	ParticipantIDs []string
	TimeSlots      []TimeSlotInput
	// ExcludeMeetingID ignores one meeting, typically the one being revised.
	ExcludeMeetingID string
}

// AvailabilityReport is the result of a speculative check.
type AvailabilityReport struct {
	ParticipantIDs   []string
	Matrix           scheduler.Matrix
	SatisfiableSlots []int
}

// ListMeetingsParams narrows meeting listings.
type ListMeetingsParams struct {
	ParticipantID string
	Statuses      []scheduler.MeetingStatus
	From          *time.Time
	To            *time.Time
	Limit         int
}

// UpdateStatusParams requests an external lifecycle transition.
type UpdateStatusParams struct {
	Principal Principal
	MeetingID string
	Status    scheduler.MeetingStatus
}

// BlockInput captures caller provided availability block fields.
type BlockInput struct {
	EmployeeID string
	Start      time.Time
	End        time.Time
	Status     scheduler.BlockStatus
	Reason     string
}

// CreateBlockParams wraps the data required to create a block.
type CreateBlockParams struct {
	Principal Principal
	Input     BlockInput
}

// UpdateBlockParams wraps the data required to update a block.
type UpdateBlockParams struct {
	Principal Principal
	BlockID   string
	Input     BlockInput
}

// EntryInput captures caller provided schedule entry fields.
type EntryInput struct {
	EmployeeID  string
	Source      scheduler.EntrySource
	Type        scheduler.EntryType
	Start       time.Time
	End         time.Time
	Remarks     string
	IsConfirmed bool
}

// CreateEntryParams wraps the data required to create a schedule entry.
type CreateEntryParams struct {
	Principal Principal
	Input     EntryInput
}

// CalendarQuery selects one employee's calendar within an optional window.
type CalendarQuery struct {
	Principal  Principal
	EmployeeID string
	From       *time.Time
	To         *time.Time
}

package scheduler

import (
	"time"

	"github.com/samber/mo"
)

// DateLayout is the calendar-day format used by TimeSlot.Date.
const DateLayout = "2006-01-02"

// TimeSlot is one candidate or committed time window of a meeting.
type TimeSlot struct {
	Date  string
	Start time.Time
	End   time.Time
}

// Interval returns the slot bounds as an Interval.
func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Meeting is a scheduled gathering of employees across one or more slots.
type Meeting struct {
	ID             string
	OrganizerID    string
	HostID         string
	ParticipantIDs []string
	DepartmentIDs  []string
	Title          string
	Agenda         string
	Location       string
	Remarks        string
	IsVirtual      bool
	TimeSlots      []TimeSlot
	Status         MeetingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasParticipant reports whether employeeID attends the meeting.
func (m Meeting) HasParticipant(employeeID string) bool {
	for _, id := range m.ParticipantIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// AvailabilityBlock is an explicit statement that an employee cannot attend
// anything within the window.
type AvailabilityBlock struct {
	ID         string
	EmployeeID string
	Start      time.Time
	End        time.Time
	Status     BlockStatus
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ScheduleEntry is a committed block of an employee's time.
type ScheduleEntry struct {
	ID          string
	EmployeeID  string
	CreatedBy   string
	Source      EntrySource
	Type        EntryType
	Start       time.Time
	End         time.Time
	Remarks     string
	IsConfirmed bool
	// MeetingID is set on SYSTEM claims inserted for a forced meeting.
	MeetingID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityLog is the immutable record of one checker evaluation.
type AvailabilityLog struct {
	ID                   string
	MeetingID            string
	EmployeeID           string
	Slot                 Interval
	Status               AvailabilityStatus
	Reason               mo.Option[string]
	ConflictingMeetingID mo.Option[string]
	CheckedAt            time.Time
}

package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

var draftCounter uint64

// referenceTime is a Monday morning; the calendar helpers below schedule
// relative to its day.
var referenceTime = time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hour:minute on the reference day.
func At(hour, minute int) time.Time {
	day := time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Slot returns a candidate slot on the reference day.
func Slot(startHour, startMinute, endHour, endMinute int) application.TimeSlotInput {
	return application.TimeSlotInput{
		Start: At(startHour, startMinute),
		End:   At(endHour, endMinute),
	}
}

// Window returns the interval between two times on the reference day.
func Window(startHour, startMinute, endHour, endMinute int) scheduler.Interval {
	return scheduler.Interval{Start: At(startHour, startMinute), End: At(endHour, endMinute)}
}

// DraftOption configures the generated meeting draft.
type DraftOption func(*application.MeetingDraft)

// NewDraft returns a deterministic meeting draft organised by "organizer"
// with a single 10:00-11:00 slot.
func NewDraft(opts ...DraftOption) application.MeetingDraft {
	idx := atomic.AddUint64(&draftCounter, 1)
	draft := application.MeetingDraft{
		OrganizerID:    "organizer",
		ParticipantIDs: []string{"alice", "bob"},
		Title:          fmt.Sprintf("Meeting %03d", idx),
		Location:       "Room 1",
		TimeSlots:      []application.TimeSlotInput{Slot(10, 0, 11, 0)},
	}
	for _, opt := range opts {
		opt(&draft)
	}
	return draft
}

// WithTitle overrides the draft title.
func WithTitle(title string) DraftOption {
	return func(d *application.MeetingDraft) { d.Title = title }
}

// WithOrganizer overrides the organizer.
func WithOrganizer(id string) DraftOption {
	return func(d *application.MeetingDraft) { d.OrganizerID = id }
}

// WithParticipants replaces the participant list.
func WithParticipants(ids ...string) DraftOption {
	return func(d *application.MeetingDraft) { d.ParticipantIDs = ids }
}

// WithSlots replaces the candidate slots.
func WithSlots(slots ...application.TimeSlotInput) DraftOption {
	return func(d *application.MeetingDraft) { d.TimeSlots = slots }
}

// Organizer is the principal that owns drafts built by NewDraft.
func Organizer() application.Principal {
	return application.Principal{UserID: "organizer"}
}

// Admin is a principal allowed to manage every calendar.
func Admin() application.Principal {
	return application.Principal{UserID: "admin", IsAdmin: true}
}

// Employee is a principal managing only its own calendar.
func Employee(id string) application.Principal {
	return application.Principal{UserID: id}
}

// BlockInput returns an availability block on the reference day.
func BlockInput(employeeID string, window scheduler.Interval, status scheduler.BlockStatus, reason string) application.BlockInput {
	return application.BlockInput{
		EmployeeID: employeeID,
		Start:      window.Start,
		End:        window.End,
		Status:     status,
		Reason:     reason,
	}
}

// EntryInput returns a schedule entry on the reference day.
func EntryInput(employeeID string, window scheduler.Interval, entryType scheduler.EntryType, remarks string) application.EntryInput {
	return application.EntryInput{
		EmployeeID:  employeeID,
		Type:        entryType,
		Start:       window.Start,
		End:         window.End,
		Remarks:     remarks,
		IsConfirmed: true,
	}
}

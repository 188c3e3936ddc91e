package persistence

import (
	"time"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

// MeetingFilter narrows meeting listings. Zero values do not filter.
type MeetingFilter struct {
	ParticipantID string
	Statuses      []scheduler.MeetingStatus
	// From and To select meetings with at least one slot overlapping
	// [From, To).
	From  *time.Time
	To    *time.Time
	Limit int
}

// Window is an optional time range used by calendar listings.
type Window struct {
	From *time.Time
	To   *time.Time
}

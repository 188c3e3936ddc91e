package scheduler

import (
	"fmt"
	"strings"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingOngoing   MeetingStatus = "ongoing"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

// Valid reports whether s is a known meeting status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingScheduled, MeetingOngoing, MeetingCompleted, MeetingCancelled:
		return true
	}
	return false
}

// Active reports whether a meeting in this state is a commitment for its
// participants.
func (s MeetingStatus) Active() bool {
	switch s {
	case MeetingScheduled, MeetingOngoing:
		return true
	case MeetingCompleted, MeetingCancelled:
		return false
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingCompleted || s == MeetingCancelled
}

// CanTransition reports whether the external status flow allows moving from s
// to next. Cancellation is handled separately and is reachable from any
// non-terminal state.
func (s MeetingStatus) CanTransition(next MeetingStatus) bool {
	switch s {
	case MeetingScheduled:
		return next == MeetingOngoing || next == MeetingCancelled
	case MeetingOngoing:
		return next == MeetingCompleted || next == MeetingCancelled
	case MeetingCompleted, MeetingCancelled:
		return false
	}
	return false
}

// ActiveMeetingStatuses lists the statuses that count as commitments.
func ActiveMeetingStatuses() []MeetingStatus {
	return []MeetingStatus{MeetingScheduled, MeetingOngoing}
}

// BlockStatus classifies an availability block.
type BlockStatus string

const (
	BlockUnavailable BlockStatus = "UNAVAILABLE"
	BlockOutOfOffice BlockStatus = "OUT_OF_OFFICE"
	BlockEmergency   BlockStatus = "EMERGENCY"
)

// Valid reports whether s is a known block status.
func (s BlockStatus) Valid() bool {
	switch s {
	case BlockUnavailable, BlockOutOfOffice, BlockEmergency:
		return true
	}
	return false
}

// AvailabilityStatus maps a block status onto the availability vocabulary.
// EMERGENCY has no availability counterpart and reads as unavailable.
func (s BlockStatus) AvailabilityStatus() AvailabilityStatus {
	switch s {
	case BlockOutOfOffice:
		return StatusOutOfOffice
	case BlockUnavailable, BlockEmergency:
		return StatusUnavailable
	}
	return StatusUnavailable
}

// EntrySource records who created a schedule entry.
type EntrySource string

const (
	SourceSelf   EntrySource = "SELF"
	SourceAdmin  EntrySource = "ADMIN"
	SourceHOD    EntrySource = "HOD"
	SourceSystem EntrySource = "SYSTEM"
)

// Valid reports whether s is a known source.
func (s EntrySource) Valid() bool {
	switch s {
	case SourceSelf, SourceAdmin, SourceHOD, SourceSystem:
		return true
	}
	return false
}

// EntryType classifies a schedule entry.
type EntryType string

const (
	EntryLeave        EntryType = "LEAVE"
	EntryMeeting      EntryType = "MEETING"
	EntryEmergencyOut EntryType = "EMERGENCY_OUT"
	EntryOffsiteWork  EntryType = "OFFSITE_WORK"
	EntryHalfDay      EntryType = "HALF_DAY"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryLeave, EntryMeeting, EntryEmergencyOut, EntryOffsiteWork, EntryHalfDay:
		return true
	}
	return false
}

// Blocking reports whether entries of this type prevent scheduling. Leave is
// soft and never blocks.
func (t EntryType) Blocking() bool {
	switch t {
	case EntryLeave:
		return false
	case EntryMeeting, EntryEmergencyOut, EntryOffsiteWork, EntryHalfDay:
		return true
	}
	return false
}

// AvailabilityStatus is the outcome of evaluating one participant for one slot.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusUnavailable AvailabilityStatus = "unavailable"
	StatusHasMeeting  AvailabilityStatus = "has_meeting"
	StatusOutOfOffice AvailabilityStatus = "out_of_office"
)

// Valid reports whether s is a known availability status.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusHasMeeting, StatusOutOfOffice:
		return true
	}
	return false
}

// ParseMeetingStatus converts user input into a MeetingStatus.
func ParseMeetingStatus(value string) (MeetingStatus, error) {
	s := MeetingStatus(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("scheduler: unknown meeting status %q", value)
	}
	return s, nil
}

// ParseBlockStatus converts user input into a BlockStatus.
func ParseBlockStatus(value string) (BlockStatus, error) {
	s := BlockStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("scheduler: unknown block status %q", value)
	}
	return s, nil
}

// ParseEntrySource converts user input into an EntrySource.
func ParseEntrySource(value string) (EntrySource, error) {
	s := EntrySource(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("scheduler: unknown entry source %q", value)
	}
	return s, nil
}

// ParseEntryType converts user input into an EntryType.
func ParseEntryType(value string) (EntryType, error) {
	t := EntryType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("scheduler: unknown entry type %q", value)
	}
	return t, nil
}

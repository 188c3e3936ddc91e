package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/mo"
)

// MeetingCommitment is one slot of an existing meeting attended by the
// participant under evaluation.
type MeetingCommitment struct {
	MeetingID string
	Title     string
	Status    MeetingStatus
	Start     time.Time
	End       time.Time
}

// Commitments groups everything that may conflict with a candidate slot for a
// single participant.
type Commitments struct {
	Meetings []MeetingCommitment
	Blocks   []AvailabilityBlock
	Entries  []ScheduleEntry
}

// AvailabilityResult is the classification of one participant for one slot.
type AvailabilityResult struct {
	EmployeeID           string
	Status               AvailabilityStatus
	Reason               mo.Option[string]
	ConflictingMeetingID mo.Option[string]
}

// Available reports whether the participant is free.
func (r AvailabilityResult) Available() bool {
	return r.Status == StatusAvailable
}

// Evaluate classifies employeeID for slot against its commitments. Meetings
// win over availability blocks, which win over schedule entries. The meeting
// identified by excludeMeetingID, and any claim entry it owns, is ignored so a
// meeting never conflicts with itself.
func Evaluate(employeeID string, slot Interval, c Commitments, excludeMeetingID string) AvailabilityResult {
	result := AvailabilityResult{EmployeeID: employeeID, Status: StatusAvailable}

	if m, ok := firstMeetingConflict(slot, c.Meetings, excludeMeetingID); ok {
		result.Status = StatusHasMeeting
		result.Reason = mo.Some(m.Title)
		result.ConflictingMeetingID = mo.Some(m.MeetingID)
		return result
	}

	if b, ok := firstBlockConflict(slot, c.Blocks); ok {
		result.Status = b.Status.AvailabilityStatus()
		result.Reason = mo.Some(b.Reason)
		return result
	}

	if e, ok := firstEntryConflict(slot, c.Entries, excludeMeetingID); ok {
		result.Status = StatusUnavailable
		result.Reason = mo.Some(EntryConflictReason(e))
		return result
	}

	return result
}

// EntryConflictReason renders the reason recorded for a schedule conflict.
func EntryConflictReason(e ScheduleEntry) string {
	return fmt.Sprintf("has %s: %s", e.Type, e.Remarks)
}

func firstMeetingConflict(slot Interval, meetings []MeetingCommitment, excludeMeetingID string) (MeetingCommitment, bool) {
	var candidates []MeetingCommitment
	for _, m := range meetings {
		if excludeMeetingID != "" && m.MeetingID == excludeMeetingID {
			continue
		}
		if !m.Status.Active() {
			continue
		}
		if Overlaps(slot.Start, slot.End, m.Start, m.End) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return MeetingCommitment{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return earlier(candidates[i].Start, candidates[i].MeetingID, candidates[j].Start, candidates[j].MeetingID)
	})
	return candidates[0], true
}

func firstBlockConflict(slot Interval, blocks []AvailabilityBlock) (AvailabilityBlock, bool) {
	var candidates []AvailabilityBlock
	for _, b := range blocks {
		if Overlaps(slot.Start, slot.End, b.Start, b.End) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return AvailabilityBlock{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return earlier(candidates[i].Start, candidates[i].ID, candidates[j].Start, candidates[j].ID)
	})
	return candidates[0], true
}

func firstEntryConflict(slot Interval, entries []ScheduleEntry, excludeMeetingID string) (ScheduleEntry, bool) {
	var candidates []ScheduleEntry
	for _, e := range entries {
		if !e.Type.Blocking() {
			continue
		}
		if excludeMeetingID != "" && e.MeetingID == excludeMeetingID {
			continue
		}
		if Overlaps(slot.Start, slot.End, e.Start, e.End) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return ScheduleEntry{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return earlier(candidates[i].Start, candidates[i].ID, candidates[j].Start, candidates[j].ID)
	})
	return candidates[0], true
}

func earlier(aStart time.Time, aID string, bStart time.Time, bID string) bool {
	if aStart.Equal(bStart) {
		return strings.Compare(aID, bID) < 0
	}
	return aStart.Before(bStart)
}

// SlotAvailability holds the per-participant results for one slot.
type SlotAvailability struct {
	Index   int
	Slot    TimeSlot
	Results []AvailabilityResult
}

// FullySatisfiable reports whether every participant is available.
func (s SlotAvailability) FullySatisfiable() bool {
	if len(s.Results) == 0 {
		return false
	}
	for _, r := range s.Results {
		if !r.Available() {
			return false
		}
	}
	return true
}

// Matrix is the checker output indexed by slot then participant.
type Matrix []SlotAvailability

// SatisfiableSlots returns the indexes of all fully satisfiable slots.
func (m Matrix) SatisfiableSlots() []int {
	var out []int
	for _, s := range m {
		if s.FullySatisfiable() {
			out = append(out, s.Index)
		}
	}
	return out
}

// AnySatisfiable reports whether at least one slot works for everyone.
func (m Matrix) AnySatisfiable() bool {
	for _, s := range m {
		if s.FullySatisfiable() {
			return true
		}
	}
	return false
}

// Conflicts returns every non-available result with its slot index.
func (m Matrix) Conflicts() []SlotConflict {
	var out []SlotConflict
	for _, s := range m {
		for _, r := range s.Results {
			if !r.Available() {
				out = append(out, SlotConflict{SlotIndex: s.Index, Result: r})
			}
		}
	}
	return out
}

// SlotConflict pairs a failing result with the slot it belongs to.
type SlotConflict struct {
	SlotIndex int
	Result    AvailabilityResult
}

// BuildMatrix evaluates every participant against every slot. The commitments
// map is keyed by participant id.
func BuildMatrix(participantIDs []string, slots []TimeSlot, commitments map[string]Commitments, excludeMeetingID string) Matrix {
	matrix := make(Matrix, 0, len(slots))
	for i, slot := range slots {
		entry := SlotAvailability{
			Index:   i,
			Slot:    slot,
			Results: make([]AvailabilityResult, 0, len(participantIDs)),
		}
		for _, participant := range participantIDs {
			entry.Results = append(entry.Results, Evaluate(participant, slot.Interval(), commitments[participant], excludeMeetingID))
		}
		matrix = append(matrix, entry)
	}
	return matrix
}

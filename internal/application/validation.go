package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

// normalizeInstant strips sub-second precision and pins t to UTC, matching
// what the store persists.
func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// validateTimeSlots checks every candidate slot and returns them normalised.
// Slots must be well formed and must not overlap one another.
func validateTimeSlots(inputs []TimeSlotInput, loc *time.Location, vErr *ValidationError) []scheduler.TimeSlot {
	if len(inputs) == 0 {
		vErr.add("time_slots", "at least one time slot is required")
		return nil
	}

	slots := make([]scheduler.TimeSlot, 0, len(inputs))
	valid := true
	for i, input := range inputs {
		field := fmt.Sprintf("time_slots[%d]", i)
		slot, ok := validateTimeSlot(input, loc, field, vErr)
		if !ok {
			valid = false
			continue
		}
		slots = append(slots, slot)
	}
	if !valid {
		return nil
	}

	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Interval().Overlaps(slots[j].Interval()) {
				vErr.add(fmt.Sprintf("time_slots[%d]", j), fmt.Sprintf("overlaps time slot %d", i))
			}
		}
	}
	return slots
}

func validateTimeSlot(input TimeSlotInput, loc *time.Location, field string, vErr *ValidationError) (scheduler.TimeSlot, bool) {
	ok := true
	if input.Start.IsZero() {
		vErr.add(field+".start", "start is required")
		ok = false
	}
	if input.End.IsZero() {
		vErr.add(field+".end", "end is required")
		ok = false
	}
	if !ok {
		return scheduler.TimeSlot{}, false
	}

	start := normalizeInstant(input.Start)
	end := normalizeInstant(input.End)
	if !start.Before(end) {
		vErr.add(field, "start must be before end")
		return scheduler.TimeSlot{}, false
	}

	date := start.In(loc).Format(scheduler.DateLayout)
	if given := strings.TrimSpace(input.Date); given != "" {
		if _, err := time.ParseInLocation(scheduler.DateLayout, given, loc); err != nil {
			vErr.add(field+".date", "date must use YYYY-MM-DD")
			return scheduler.TimeSlot{}, false
		}
		if given != date {
			vErr.add(field+".date", fmt.Sprintf("date must match the start day %s", date))
			return scheduler.TimeSlot{}, false
		}
	}

	return scheduler.TimeSlot{Date: date, Start: start, End: end}, true
}

// validateInterval checks a calendar window.
func validateInterval(start, end time.Time, vErr *ValidationError) scheduler.Interval {
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if start.IsZero() || end.IsZero() {
		return scheduler.Interval{}
	}
	window := scheduler.Interval{Start: normalizeInstant(start), End: normalizeInstant(end)}
	if !window.Valid() {
		vErr.add("end", "start must be before end")
	}
	return window
}

// participantSet trims, drops empty ids and de-duplicates while preserving
// the caller's order.
func participantSet(ids []string) []string {
	return uniqueStrings(trimAll(ids))
}

func validateDraft(principal Principal, draft MeetingDraft, loc *time.Location) (scheduler.Meeting, *ValidationError) {
	vErr := &ValidationError{}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		vErr.add("title", "title is required")
	}

	participants := participantSet(draft.ParticipantIDs)
	if len(participants) == 0 {
		vErr.add("participant_ids", "at least one participant is required")
	}

	organizer := strings.TrimSpace(draft.OrganizerID)
	if organizer == "" {
		organizer = principal.UserID
	}
	if organizer == "" {
		vErr.add("organizer_id", "organizer is required")
	}
	host := strings.TrimSpace(draft.HostID)
	if host == "" {
		host = organizer
	}

	slots := validateTimeSlots(draft.TimeSlots, loc, vErr)

	if vErr.HasErrors() {
		return scheduler.Meeting{}, vErr
	}

	return scheduler.Meeting{
		OrganizerID:    organizer,
		HostID:         host,
		ParticipantIDs: participants,
		DepartmentIDs:  uniqueStrings(trimAll(draft.DepartmentIDs)),
		Title:          title,
		Agenda:         strings.TrimSpace(draft.Agenda),
		Location:       strings.TrimSpace(draft.Location),
		Remarks:        strings.TrimSpace(draft.Remarks),
		IsVirtual:      draft.IsVirtual,
		TimeSlots:      slots,
		Status:         scheduler.MeetingScheduled,
	}, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.TrimSpace(value))
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

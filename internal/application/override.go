package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/metrics"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

const defaultLockTimeout = 10 * time.Second

// claimStats counts what a forced schedule removed or installed.
type claimStats struct {
	blocksRemoved  int64
	entriesRemoved int64
	claimsReleased int64
	claimsInserted int
}

func (c claimStats) record() {
	metrics.AddOverrideReleased("availability_block", c.blocksRemoved)
	metrics.AddOverrideReleased("schedule_entry", c.entriesRemoved)
	metrics.AddOverrideReleased("meeting_claim", c.claimsReleased)
}

// ClaimRemarks is the remark stored on every claim entry of a meeting.
func ClaimRemarks(title string) string {
	return "Meeting: " + title
}

// forceClaim clears every availability block and blocking schedule entry that
// overlaps a slot of meeting for each participant, then records a SYSTEM
// MEETING entry in their place. Leave entries are left untouched. It must run
// inside the transaction that persisted the meeting.
func forceClaim(ctx context.Context, repos persistence.Repositories, meeting scheduler.Meeting, actorID string, newID func() string, now time.Time) (claimStats, error) {
	var stats claimStats
	if actorID == "" {
		actorID = meeting.OrganizerID
	}

	for _, slot := range meeting.TimeSlots {
		window := slot.Interval()
		for _, participant := range meeting.ParticipantIDs {
			removed, err := repos.Blocks().DeleteOverlappingBlocks(ctx, participant, window)
			if err != nil {
				return stats, fmt.Errorf("clear availability blocks for %s: %w", participant, err)
			}
			stats.blocksRemoved += removed

			removed, err = repos.Entries().DeleteOverlappingBlockingEntries(ctx, participant, window)
			if err != nil {
				return stats, fmt.Errorf("clear schedule entries for %s: %w", participant, err)
			}
			stats.entriesRemoved += removed

			claim := scheduler.ScheduleEntry{
				ID:          newID(),
				EmployeeID:  participant,
				CreatedBy:   actorID,
				Source:      scheduler.SourceSystem,
				Type:        scheduler.EntryMeeting,
				Start:       slot.Start,
				End:         slot.End,
				Remarks:     ClaimRemarks(meeting.Title),
				IsConfirmed: true,
				MeetingID:   meeting.ID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repos.Entries().CreateEntry(ctx, claim); err != nil {
				return stats, fmt.Errorf("claim slot for %s: %w", participant, err)
			}
			stats.claimsInserted++
		}
	}
	return stats, nil
}

// releaseClaims removes the claim entries installed for meetingID.
func releaseClaims(ctx context.Context, repos persistence.Repositories, meetingID string) (int64, error) {
	released, err := repos.Entries().DeleteMeetingClaims(ctx, meetingID)
	if err != nil {
		return 0, fmt.Errorf("release claims of meeting %s: %w", meetingID, err)
	}
	return released, nil
}

// lockEmployees takes the advisory locks of employeeIDs, bounded by
// defaultLockTimeout. A nil locker relies on the store transaction alone.
func lockEmployees(ctx context.Context, locker lock.Locker, employeeIDs ...string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	keys := lock.EmployeeKeys(employeeIDs...)
	if len(keys) == 0 {
		return func() {}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
	defer cancel()

	started := time.Now()
	release, err := locker.Acquire(lockCtx, keys...)
	metrics.ObserveLockWait(time.Since(started))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return release, nil
}

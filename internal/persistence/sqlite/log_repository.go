package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// AvailabilityLogRepository implements persistence.AvailabilityLogRepository.
type AvailabilityLogRepository struct {
	q      querier
	mapper *ErrorMapper
}

// NewAvailabilityLogRepository creates a repository bound to q.
func NewAvailabilityLogRepository(q querier) *AvailabilityLogRepository {
	return &AvailabilityLogRepository{q: q, mapper: NewErrorMapper()}
}

// InsertLogs appends logs in the given order.
func (r *AvailabilityLogRepository) InsertLogs(ctx context.Context, logs []scheduler.AvailabilityLog) error {
	if len(logs) == 0 {
		return nil
	}

	const query = `
		INSERT INTO availability_logs (id, meeting_id, employee_id, slot_start, slot_end, availability_status, reason, conflicting_meeting_id, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return atomically(ctx, r.q, func(q querier) error {
		for _, log := range logs {
			if log.ID == "" {
				return persistence.ErrConstraintViolation
			}
			if _, err := q.ExecContext(ctx, query,
				log.ID,
				log.MeetingID,
				log.EmployeeID,
				formatTime(log.Slot.Start),
				formatTime(log.Slot.End),
				string(log.Status),
				optionString(log.Reason),
				optionString(log.ConflictingMeetingID),
				formatTime(stampOrNow(log.CheckedAt)),
			); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// ListLogs returns the logs of meetingID in insertion order.
func (r *AvailabilityLogRepository) ListLogs(ctx context.Context, meetingID string) ([]scheduler.AvailabilityLog, error) {
	const query = `
		SELECT id, meeting_id, employee_id, slot_start, slot_end, availability_status, reason, conflicting_meeting_id, checked_at
		FROM availability_logs
		WHERE meeting_id = ?
		ORDER BY rowid ASC`

	rows, err := r.q.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var logs []scheduler.AvailabilityLog
	for rows.Next() {
		var (
			log                        scheduler.AvailabilityLog
			slotStart, slotEnd, status string
			checkedAt                  string
			reason, conflicting        sql.NullString
		)
		if err := rows.Scan(&log.ID, &log.MeetingID, &log.EmployeeID, &slotStart, &slotEnd, &status, &reason, &conflicting, &checkedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		log.Status = scheduler.AvailabilityStatus(status)
		log.Reason = optionFromNull(reason)
		log.ConflictingMeetingID = optionFromNull(conflicting)
		if log.Slot.Start, err = parseTime("slot_start", slotStart); err != nil {
			return nil, err
		}
		if log.Slot.End, err = parseTime("slot_end", slotEnd); err != nil {
			return nil, err
		}
		if log.CheckedAt, err = parseTime("checked_at", checkedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return logs, nil
}

func (r *AvailabilityLogRepository) DeleteLogs(ctx context.Context, meetingID string) (int64, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM availability_logs WHERE meeting_id = ?", meetingID)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	q      querier
	mapper *ErrorMapper
}

// NewMeetingRepository creates a repository bound to q, which is either the
// pool or an open transaction.
func NewMeetingRepository(q querier) *MeetingRepository {
	return &MeetingRepository{q: q, mapper: NewErrorMapper()}
}

// CreateMeeting inserts the meeting with its participants, departments and
// slots.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting scheduler.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	createdAt := stampOrNow(meeting.CreatedAt)
	updatedAt := meeting.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return atomically(ctx, r.q, func(q querier) error {
		const query = `
			INSERT INTO meetings (id, organizer_id, host_id, title, agenda, location, remarks, is_virtual, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := q.ExecContext(ctx, query,
			meeting.ID,
			meeting.OrganizerID,
			meeting.HostID,
			meeting.Title,
			meeting.Agenda,
			meeting.Location,
			meeting.Remarks,
			boolToInt(meeting.IsVirtual),
			string(meeting.Status),
			formatTime(createdAt),
			formatTime(updatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for i, employeeID := range meeting.ParticipantIDs {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO meeting_participants (meeting_id, employee_id, position) VALUES (?, ?, ?)",
				meeting.ID, employeeID, i); err != nil {
				return r.mapper.MapError(err)
			}
		}

		for i, departmentID := range meeting.DepartmentIDs {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO meeting_departments (meeting_id, department_id, position) VALUES (?, ?, ?)",
				meeting.ID, departmentID, i); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return r.insertSlots(ctx, q, meeting.ID, meeting.TimeSlots)
	})
}

// GetMeeting loads a meeting by id.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (scheduler.Meeting, error) {
	if id == "" {
		return scheduler.Meeting{}, persistence.ErrNotFound
	}

	row := r.q.QueryRowContext(ctx, selectMeetingColumns+" FROM meetings m WHERE m.id = ?", id)
	meeting, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.Meeting{}, persistence.ErrNotFound
		}
		return scheduler.Meeting{}, r.mapper.MapError(err)
	}

	if err := r.loadChildren(ctx, &meeting); err != nil {
		return scheduler.Meeting{}, err
	}
	return meeting, nil
}

// ListMeetings returns meetings matching filter ordered by creation time.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]scheduler.Meeting, error) {
	query, args := buildMeetingListQuery(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var meetings []scheduler.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	// Children are loaded after the cursor is closed; a transaction holds a
	// single connection.
	for i := range meetings {
		if err := r.loadChildren(ctx, &meetings[i]); err != nil {
			return nil, err
		}
	}

	return meetings, nil
}

// ReplaceTimeSlots swaps the slots of a meeting.
func (r *MeetingRepository) ReplaceTimeSlots(ctx context.Context, id string, slots []scheduler.TimeSlot, updatedAt time.Time) error {
	return atomically(ctx, r.q, func(q querier) error {
		if err := r.touch(ctx, q, "UPDATE meetings SET updated_at = ? WHERE id = ?", formatTime(stampOrNow(updatedAt)), id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM meeting_time_slots WHERE meeting_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertSlots(ctx, q, id, slots)
	})
}

// UpdateStatus sets the lifecycle status of a meeting.
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status scheduler.MeetingStatus, updatedAt time.Time) error {
	return r.touch(ctx, r.q, "UPDATE meetings SET status = ?, updated_at = ? WHERE id = ?", string(status), formatTime(stampOrNow(updatedAt)), id)
}

// ListCommitments returns slots of active meetings attended by employeeID
// that overlap window, earliest first.
func (r *MeetingRepository) ListCommitments(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.MeetingCommitment, error) {
	const query = `
		SELECT m.id, m.title, m.status, s.start_time, s.end_time
		FROM meeting_time_slots s
		JOIN meetings m ON m.id = s.meeting_id
		JOIN meeting_participants p ON p.meeting_id = m.id
		WHERE p.employee_id = ?
			AND m.status IN ('scheduled', 'ongoing')
			AND s.start_time < ?
			AND s.end_time > ?
		ORDER BY s.start_time ASC, m.id ASC`

	rows, err := r.q.QueryContext(ctx, query, employeeID, formatTime(window.End), formatTime(window.Start))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var commitments []scheduler.MeetingCommitment
	for rows.Next() {
		var (
			c          scheduler.MeetingCommitment
			status     string
			start, end string
		)
		if err := rows.Scan(&c.MeetingID, &c.Title, &status, &start, &end); err != nil {
			return nil, r.mapper.MapError(err)
		}
		c.Status = scheduler.MeetingStatus(status)
		if c.Start, err = parseTime("start_time", start); err != nil {
			return nil, err
		}
		if c.End, err = parseTime("end_time", end); err != nil {
			return nil, err
		}
		commitments = append(commitments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return commitments, nil
}

func (r *MeetingRepository) touch(ctx context.Context, q querier, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *MeetingRepository) insertSlots(ctx context.Context, q querier, meetingID string, slots []scheduler.TimeSlot) error {
	for i, slot := range slots {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO meeting_time_slots (meeting_id, position, slot_date, start_time, end_time) VALUES (?, ?, ?, ?, ?)",
			meetingID, i, slot.Date, formatTime(slot.Start), formatTime(slot.End)); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *MeetingRepository) loadChildren(ctx context.Context, meeting *scheduler.Meeting) error {
	var err error
	if meeting.ParticipantIDs, err = r.loadStrings(ctx,
		"SELECT employee_id FROM meeting_participants WHERE meeting_id = ? ORDER BY position ASC", meeting.ID); err != nil {
		return err
	}
	if meeting.DepartmentIDs, err = r.loadStrings(ctx,
		"SELECT department_id FROM meeting_departments WHERE meeting_id = ? ORDER BY position ASC", meeting.ID); err != nil {
		return err
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT slot_date, start_time, end_time FROM meeting_time_slots WHERE meeting_id = ? ORDER BY position ASC", meeting.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	meeting.TimeSlots = nil
	for rows.Next() {
		var (
			slot       scheduler.TimeSlot
			start, end string
		)
		if err := rows.Scan(&slot.Date, &start, &end); err != nil {
			return r.mapper.MapError(err)
		}
		if slot.Start, err = parseTime("start_time", start); err != nil {
			return err
		}
		if slot.End, err = parseTime("end_time", end); err != nil {
			return err
		}
		meeting.TimeSlots = append(meeting.TimeSlots, slot)
	}
	return r.mapper.MapError(rows.Err())
}

func (r *MeetingRepository) loadStrings(ctx context.Context, query, id string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, r.mapper.MapError(err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return values, nil
}

const selectMeetingColumns = `
	SELECT m.id, m.organizer_id, m.host_id, m.title, m.agenda, m.location, m.remarks, m.is_virtual, m.status, m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (scheduler.Meeting, error) {
	var (
		meeting              scheduler.Meeting
		isVirtual            int
		status               string
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&meeting.ID,
		&meeting.OrganizerID,
		&meeting.HostID,
		&meeting.Title,
		&meeting.Agenda,
		&meeting.Location,
		&meeting.Remarks,
		&isVirtual,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return scheduler.Meeting{}, err
	}

	meeting.IsVirtual = isVirtual == 1
	meeting.Status = scheduler.MeetingStatus(status)

	var err error
	if meeting.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return scheduler.Meeting{}, err
	}
	if meeting.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return scheduler.Meeting{}, err
	}
	return meeting, nil
}

func buildMeetingListQuery(filter persistence.MeetingFilter) (string, []any) {
	query := selectMeetingColumns + " FROM meetings m"

	var (
		conditions []string
		args       []any
	)

	if filter.ParticipantID != "" {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.employee_id = ?)")
		args = append(args, filter.ParticipantID)
	}

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("m.status IN (%s)", placeholders(len(filter.Statuses))))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}

	if filter.From != nil || filter.To != nil {
		slotConditions := []string{"s.meeting_id = m.id"}
		if filter.From != nil {
			slotConditions = append(slotConditions, "s.end_time > ?")
			args = append(args, formatTime(*filter.From))
		}
		if filter.To != nil {
			slotConditions = append(slotConditions, "s.start_time < ?")
			args = append(args, formatTime(*filter.To))
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM meeting_time_slots s WHERE "+strings.Join(slotConditions, " AND ")+")")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY m.created_at ASC, m.id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return query, args
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// ScheduleEntryRepository implements persistence.ScheduleEntryRepository.
type ScheduleEntryRepository struct {
	q      querier
	mapper *ErrorMapper
}

// NewScheduleEntryRepository creates a repository bound to q.
func NewScheduleEntryRepository(q querier) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{q: q, mapper: NewErrorMapper()}
}

const selectEntryColumns = `
	SELECT id, employee_id, created_by, source, type, start_time, end_time, remarks, is_confirmed, meeting_id, created_at, updated_at
	FROM schedule_entries`

// CreateEntry inserts entry. Blocking entries may not overlap another
// blocking entry of the same employee; LEAVE may overlap anything.
func (r *ScheduleEntryRepository) CreateEntry(ctx context.Context, entry scheduler.ScheduleEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	createdAt := stampOrNow(entry.CreatedAt)
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return atomically(ctx, r.q, func(q querier) error {
		if entry.Type.Blocking() {
			var existing string
			err := q.QueryRowContext(ctx, `
				SELECT id FROM schedule_entries
				WHERE employee_id = ? AND type <> 'LEAVE' AND start_time < ? AND end_time > ?
				ORDER BY start_time ASC, id ASC
				LIMIT 1`,
				entry.EmployeeID, formatTime(entry.End), formatTime(entry.Start),
			).Scan(&existing)
			switch {
			case err == nil:
				return fmt.Errorf("%w: entry %s", persistence.ErrOverlap, existing)
			case !errors.Is(err, sql.ErrNoRows):
				return r.mapper.MapError(err)
			}
		}

		const query = `
			INSERT INTO schedule_entries (id, employee_id, created_by, source, type, start_time, end_time, remarks, is_confirmed, meeting_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := q.ExecContext(ctx, query,
			entry.ID,
			entry.EmployeeID,
			entry.CreatedBy,
			string(entry.Source),
			string(entry.Type),
			formatTime(entry.Start),
			formatTime(entry.End),
			entry.Remarks,
			boolToInt(entry.IsConfirmed),
			nullString(entry.MeetingID),
			formatTime(createdAt),
			formatTime(updatedAt),
		)
		return r.mapper.MapError(err)
	})
}

func (r *ScheduleEntryRepository) GetEntry(ctx context.Context, id string) (scheduler.ScheduleEntry, error) {
	entry, err := scanEntry(r.q.QueryRowContext(ctx, selectEntryColumns+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.ScheduleEntry{}, persistence.ErrNotFound
		}
		return scheduler.ScheduleEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

func (r *ScheduleEntryRepository) DeleteEntry(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM schedule_entries WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ScheduleEntryRepository) ListEntries(ctx context.Context, employeeID string, window persistence.Window) ([]scheduler.ScheduleEntry, error) {
	query := selectEntryColumns + " WHERE employee_id = ?"
	args := []any{employeeID}
	if window.To != nil {
		query += " AND start_time < ?"
		args = append(args, formatTime(*window.To))
	}
	if window.From != nil {
		query += " AND end_time > ?"
		args = append(args, formatTime(*window.From))
	}
	query += " ORDER BY start_time ASC, id ASC"

	return r.list(ctx, query, args...)
}

// ListOverlappingEntries includes LEAVE; callers decide what blocks.
func (r *ScheduleEntryRepository) ListOverlappingEntries(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.ScheduleEntry, error) {
	return r.list(ctx,
		selectEntryColumns+" WHERE employee_id = ? AND start_time < ? AND end_time > ? ORDER BY start_time ASC, id ASC",
		employeeID, formatTime(window.End), formatTime(window.Start))
}

func (r *ScheduleEntryRepository) DeleteOverlappingBlockingEntries(ctx context.Context, employeeID string, window scheduler.Interval) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM schedule_entries WHERE employee_id = ? AND type <> 'LEAVE' AND start_time < ? AND end_time > ?",
		employeeID, formatTime(window.End), formatTime(window.Start))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

func (r *ScheduleEntryRepository) DeleteMeetingClaims(ctx context.Context, meetingID string) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM schedule_entries WHERE meeting_id = ? AND source = 'SYSTEM'",
		meetingID)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

func (r *ScheduleEntryRepository) list(ctx context.Context, query string, args ...any) ([]scheduler.ScheduleEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []scheduler.ScheduleEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (scheduler.ScheduleEntry, error) {
	var (
		entry                scheduler.ScheduleEntry
		source, typ          string
		start, end           string
		confirmed            int
		meetingID            sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.EmployeeID,
		&entry.CreatedBy,
		&source,
		&typ,
		&start,
		&end,
		&entry.Remarks,
		&confirmed,
		&meetingID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return scheduler.ScheduleEntry{}, err
	}

	entry.Source = scheduler.EntrySource(source)
	entry.Type = scheduler.EntryType(typ)
	entry.IsConfirmed = confirmed == 1
	entry.MeetingID = meetingID.String

	var err error
	if entry.Start, err = parseTime("start_time", start); err != nil {
		return scheduler.ScheduleEntry{}, err
	}
	if entry.End, err = parseTime("end_time", end); err != nil {
		return scheduler.ScheduleEntry{}, err
	}
	if entry.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return scheduler.ScheduleEntry{}, err
	}
	if entry.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return scheduler.ScheduleEntry{}, err
	}
	return entry, nil
}

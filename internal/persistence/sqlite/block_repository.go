package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// AvailabilityBlockRepository implements persistence.AvailabilityBlockRepository.
type AvailabilityBlockRepository struct {
	q      querier
	mapper *ErrorMapper
}

// NewAvailabilityBlockRepository creates a repository bound to q.
func NewAvailabilityBlockRepository(q querier) *AvailabilityBlockRepository {
	return &AvailabilityBlockRepository{q: q, mapper: NewErrorMapper()}
}

const selectBlockColumns = `
	SELECT id, employee_id, start_time, end_time, status, reason, created_by, created_at, updated_at
	FROM availability_blocks`

func (r *AvailabilityBlockRepository) CreateBlock(ctx context.Context, block scheduler.AvailabilityBlock) error {
	if block.ID == "" {
		return persistence.ErrConstraintViolation
	}

	createdAt := stampOrNow(block.CreatedAt)
	updatedAt := block.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	const query = `
		INSERT INTO availability_blocks (id, employee_id, start_time, end_time, status, reason, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		block.ID,
		block.EmployeeID,
		formatTime(block.Start),
		formatTime(block.End),
		string(block.Status),
		block.Reason,
		block.CreatedBy,
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateBlock rewrites the window, status and reason of an existing block.
func (r *AvailabilityBlockRepository) UpdateBlock(ctx context.Context, block scheduler.AvailabilityBlock) error {
	const query = `
		UPDATE availability_blocks
		SET start_time = ?, end_time = ?, status = ?, reason = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.q.ExecContext(ctx, query,
		formatTime(block.Start),
		formatTime(block.End),
		string(block.Status),
		block.Reason,
		formatTime(stampOrNow(block.UpdatedAt)),
		block.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *AvailabilityBlockRepository) GetBlock(ctx context.Context, id string) (scheduler.AvailabilityBlock, error) {
	block, err := scanBlock(r.q.QueryRowContext(ctx, selectBlockColumns+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.AvailabilityBlock{}, persistence.ErrNotFound
		}
		return scheduler.AvailabilityBlock{}, r.mapper.MapError(err)
	}
	return block, nil
}

func (r *AvailabilityBlockRepository) DeleteBlock(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM availability_blocks WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ListBlocks returns the blocks of employeeID overlapping window, earliest
// first. Open bounds are unrestricted.
func (r *AvailabilityBlockRepository) ListBlocks(ctx context.Context, employeeID string, window persistence.Window) ([]scheduler.AvailabilityBlock, error) {
	query := selectBlockColumns + " WHERE employee_id = ?"
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

func (r *AvailabilityBlockRepository) ListOverlappingBlocks(ctx context.Context, employeeID string, window scheduler.Interval) ([]scheduler.AvailabilityBlock, error) {
	return r.list(ctx,
		selectBlockColumns+" WHERE employee_id = ? AND start_time < ? AND end_time > ? ORDER BY start_time ASC, id ASC",
		employeeID, formatTime(window.End), formatTime(window.Start))
}

func (r *AvailabilityBlockRepository) DeleteOverlappingBlocks(ctx context.Context, employeeID string, window scheduler.Interval) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM availability_blocks WHERE employee_id = ? AND start_time < ? AND end_time > ?",
		employeeID, formatTime(window.End), formatTime(window.Start))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

func (r *AvailabilityBlockRepository) list(ctx context.Context, query string, args ...any) ([]scheduler.AvailabilityBlock, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var blocks []scheduler.AvailabilityBlock
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blocks, nil
}

func scanBlock(row rowScanner) (scheduler.AvailabilityBlock, error) {
	var (
		block                scheduler.AvailabilityBlock
		start, end, status   string
		createdAt, updatedAt string
	)
	if err := row.Scan(&block.ID, &block.EmployeeID, &start, &end, &status, &block.Reason, &block.CreatedBy, &createdAt, &updatedAt); err != nil {
		return scheduler.AvailabilityBlock{}, err
	}
	block.Status = scheduler.BlockStatus(status)

	var err error
	if block.Start, err = parseTime("start_time", start); err != nil {
		return scheduler.AvailabilityBlock{}, err
	}
	if block.End, err = parseTime("end_time", end); err != nil {
		return scheduler.AvailabilityBlock{}, err
	}
	if block.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return scheduler.AvailabilityBlock{}, err
	}
	if block.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return scheduler.AvailabilityBlock{}, err
	}
	return block, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

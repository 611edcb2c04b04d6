package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// TimeBlockRepository handles timeblock database operations
type TimeBlockRepository struct {
	db *DB
}

// NewTimeBlockRepository creates a new timeblock repository
func NewTimeBlockRepository(db *DB) *TimeBlockRepository {
	return &TimeBlockRepository{db: db}
}

const timeBlockColumns = `
	id, task_id, scheduled_for, duration_minutes, completed,
	actual_minutes, abandon_reason, created_at, updated_at
`

// Create creates a new timeblock
func (r *TimeBlockRepository) Create(ctx context.Context, block *models.TimeBlock) error {
	query := `
		INSERT INTO time_blocks (
			id, task_id, scheduled_for, duration_minutes, completed,
			actual_minutes, abandon_reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		block.ID,
		block.TaskID,
		block.ScheduledFor,
		block.DurationMinutes,
		block.Completed,
		nullInt(block.ActualMinutes),
		block.AbandonReason,
		now,
		now,
	).Scan(&block.CreatedAt, &block.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create timeblock: %w", err)
	}

	return nil
}

// GetByID retrieves a timeblock by ID
func (r *TimeBlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeBlock, error) {
	query := `SELECT ` + timeBlockColumns + ` FROM time_blocks WHERE id = $1`

	block, err := scanTimeBlock(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("timeblock not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeblock: %w", err)
	}

	return block, nil
}

// List retrieves all timeblocks ordered by start time
func (r *TimeBlockRepository) List(ctx context.Context) ([]*models.TimeBlock, error) {
	query := `SELECT ` + timeBlockColumns + ` FROM time_blocks ORDER BY scheduled_for`

	return r.queryBlocks(ctx, query)
}

// ListBetween retrieves timeblocks starting within [start, end)
func (r *TimeBlockRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*models.TimeBlock, error) {
	query := `
		SELECT ` + timeBlockColumns + `
		FROM time_blocks
		WHERE scheduled_for >= $1 AND scheduled_for < $2
		ORDER BY scheduled_for
	`

	return r.queryBlocks(ctx, query, start, end)
}

// ListForTask retrieves all timeblocks belonging to a task
func (r *TimeBlockRepository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]*models.TimeBlock, error) {
	query := `SELECT ` + timeBlockColumns + ` FROM time_blocks WHERE task_id = $1 ORDER BY scheduled_for`

	return r.queryBlocks(ctx, query, taskID)
}

// Update updates an existing timeblock
func (r *TimeBlockRepository) Update(ctx context.Context, block *models.TimeBlock) error {
	query := `
		UPDATE time_blocks
		SET task_id = $2, scheduled_for = $3, duration_minutes = $4,
			completed = $5, actual_minutes = $6, abandon_reason = $7,
			updated_at = $8
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		block.ID,
		block.TaskID,
		block.ScheduledFor,
		block.DurationMinutes,
		block.Completed,
		nullInt(block.ActualMinutes),
		block.AbandonReason,
		time.Now(),
	).Scan(&block.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("timeblock not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update timeblock: %w", err)
	}

	return nil
}

// Delete deletes a timeblock by ID
func (r *TimeBlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM time_blocks WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete timeblock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("timeblock not found")
	}

	return nil
}

// DeleteForTask removes every timeblock belonging to a task
func (r *TimeBlockRepository) DeleteForTask(ctx context.Context, taskID uuid.UUID) error {
	query := `DELETE FROM time_blocks WHERE task_id = $1`

	if _, err := r.db.ExecContext(ctx, query, taskID); err != nil {
		return fmt.Errorf("failed to delete timeblocks for task: %w", err)
	}

	return nil
}

func (r *TimeBlockRepository) queryBlocks(ctx context.Context, query string, args ...any) ([]*models.TimeBlock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeblocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.TimeBlock
	for rows.Next() {
		block, err := scanTimeBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeblock: %w", err)
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeblocks: %w", err)
	}

	return blocks, nil
}

func scanTimeBlock(row rowScanner) (*models.TimeBlock, error) {
	block := &models.TimeBlock{}
	var actualMinutes sql.NullInt64

	err := row.Scan(
		&block.ID,
		&block.TaskID,
		&block.ScheduledFor,
		&block.DurationMinutes,
		&block.Completed,
		&actualMinutes,
		&block.AbandonReason,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actualMinutes.Valid {
		minutes := int(actualMinutes.Int64)
		block.ActualMinutes = &minutes
	}

	return block, nil
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// CaptureRepository handles capture item database operations
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new capture repository
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Create creates a new capture item
func (r *CaptureRepository) Create(ctx context.Context, item *models.CaptureItem) error {
	query := `
		INSERT INTO capture_items (id, raw_text, status, source, captured_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING captured_at
	`

	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.RawText,
		item.Status,
		item.Source,
		time.Now(),
	).Scan(&item.CapturedAt)

	if err != nil {
		return fmt.Errorf("failed to create capture item: %w", err)
	}

	return nil
}

// CreateBatch creates several capture items in one transaction
func (r *CaptureRepository) CreateBatch(ctx context.Context, items []*models.CaptureItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO capture_items (id, raw_text, status, source, captured_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	now := time.Now()
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, item.ID, item.RawText, item.Status, item.Source, now); err != nil {
			return fmt.Errorf("failed to create capture item: %w", err)
		}
		item.CapturedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit capture batch: %w", err)
	}

	return nil
}

// GetByID retrieves a capture item by ID
func (r *CaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CaptureItem, error) {
	item := &models.CaptureItem{}
	query := `
		SELECT id, raw_text, status, source, captured_at
		FROM capture_items
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.RawText,
		&item.Status,
		&item.Source,
		&item.CapturedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("capture item not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture item: %w", err)
	}

	return item, nil
}

// List retrieves capture items, optionally filtered by status, oldest first
func (r *CaptureRepository) List(ctx context.Context, status *models.CaptureStatus) ([]*models.CaptureItem, error) {
	query := `
		SELECT id, raw_text, status, source, captured_at
		FROM capture_items
	`
	args := []any{}

	if status != nil {
		query += " WHERE status = $1"
		args = append(args, string(*status))
	}

	query += " ORDER BY captured_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture items: %w", err)
	}
	defer rows.Close()

	var items []*models.CaptureItem
	for rows.Next() {
		item := &models.CaptureItem{}
		if err := rows.Scan(&item.ID, &item.RawText, &item.Status, &item.Source, &item.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capture items: %w", err)
	}

	return items, nil
}

// UpdateStatus moves a capture item to a new status
func (r *CaptureRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaptureStatus) error {
	query := `UPDATE capture_items SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update capture status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("capture item not found")
	}

	return nil
}

// CountByStatus returns the number of capture items in a status
func (r *CaptureRepository) CountByStatus(ctx context.Context, status models.CaptureStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM capture_items WHERE status = $1`

	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count capture items: %w", err)
	}

	return count, nil
}

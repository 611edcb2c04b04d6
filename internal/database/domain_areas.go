package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// DomainAreaRepository handles domain area database operations
type DomainAreaRepository struct {
	db *DB
}

// NewDomainAreaRepository creates a new domain area repository
func NewDomainAreaRepository(db *DB) *DomainAreaRepository {
	return &DomainAreaRepository{db: db}
}

// Create creates a new domain area at the end of the sort order
func (r *DomainAreaRepository) Create(ctx context.Context, area *models.DomainArea) error {
	query := `
		INSERT INTO domain_areas (id, name, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM domain_areas), $3, $4, $5)
		RETURNING sort_order, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		area.ID,
		area.Name,
		area.IsActive,
		now,
		now,
	).Scan(&area.SortOrder, &area.CreatedAt, &area.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create domain area: %w", err)
	}

	return nil
}

// GetByID retrieves a domain area by ID
func (r *DomainAreaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DomainArea, error) {
	area := &models.DomainArea{}
	query := `
		SELECT id, name, sort_order, is_active, created_at, updated_at
		FROM domain_areas
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&area.ID,
		&area.Name,
		&area.SortOrder,
		&area.IsActive,
		&area.CreatedAt,
		&area.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("domain area not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain area: %w", err)
	}

	return area, nil
}

// List retrieves domain areas in sort order, optionally including inactive ones
func (r *DomainAreaRepository) List(ctx context.Context, includeInactive bool) ([]*models.DomainArea, error) {
	query := `
		SELECT id, name, sort_order, is_active, created_at, updated_at
		FROM domain_areas
	`
	if !includeInactive {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY sort_order"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain areas: %w", err)
	}
	defer rows.Close()

	var areas []*models.DomainArea
	for rows.Next() {
		area := &models.DomainArea{}
		err := rows.Scan(&area.ID, &area.Name, &area.SortOrder, &area.IsActive, &area.CreatedAt, &area.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain area: %w", err)
		}
		areas = append(areas, area)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domain areas: %w", err)
	}

	return areas, nil
}

// Update updates a domain area's name and active flag
func (r *DomainAreaRepository) Update(ctx context.Context, area *models.DomainArea) error {
	query := `
		UPDATE domain_areas
		SET name = $2, is_active = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, area.ID, area.Name, area.IsActive, time.Now()).Scan(&area.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("domain area not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update domain area: %w", err)
	}

	return nil
}

// Reorder rewrites the sort order to match the given ID sequence
func (r *DomainAreaRepository) Reorder(ctx context.Context, orderedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE domain_areas SET sort_order = $2, updated_at = $3 WHERE id = $1`
	now := time.Now()
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, query, id, i+1, now); err != nil {
			return fmt.Errorf("failed to reorder domain areas: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}

	return nil
}

// Delete deletes a domain area by ID
func (r *DomainAreaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM domain_areas WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete domain area: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("domain area not found")
	}

	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// UserProfileRepository handles the singleton user profile record
type UserProfileRepository struct {
	db *DB
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *DB) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

const profileColumns = `
	id, long_term_goals, medium_term_goals, short_term_focus,
	business_plan, life_plan, priority_principles, preferences,
	summary, summary_generated_at, profile_updated_at
`

// Get retrieves the profile, creating an empty one on first access
func (r *UserProfileRepository) Get(ctx context.Context) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profile LIMIT 1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return r.create(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

func (r *UserProfileRepository) create(ctx context.Context) (*models.UserProfile, error) {
	profile := &models.UserProfile{
		ID:               uuid.New(),
		ProfileUpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO user_profile (id, profile_updated_at)
		VALUES ($1, $2)
	`

	if _, err := r.db.ExecContext(ctx, query, profile.ID, profile.ProfileUpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// Update persists profile content edits and bumps the edit timestamp.
// The summary fields are untouched; they move only through UpdateSummary.
func (r *UserProfileRepository) Update(ctx context.Context, profile *models.UserProfile) error {
	query := `
		UPDATE user_profile
		SET long_term_goals = $2, medium_term_goals = $3, short_term_focus = $4,
			business_plan = $5, life_plan = $6, priority_principles = $7,
			preferences = $8, profile_updated_at = $9
		WHERE id = $1
	`

	profile.ProfileUpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.LongTermGoals,
		profile.MediumTermGoals,
		profile.ShortTermFocus,
		profile.BusinessPlan,
		profile.LifePlan,
		profile.PriorityPrinciples,
		profile.Preferences,
		profile.ProfileUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// UpdateSummary stores a freshly generated summary. The edit timestamp is
// left alone so staleness detection keeps comparing edit time to
// generation time.
func (r *UserProfileRepository) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error {
	query := `
		UPDATE user_profile
		SET summary = $2, summary_generated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, summary, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	var summaryGeneratedAt sql.NullTime

	err := row.Scan(
		&profile.ID,
		&profile.LongTermGoals,
		&profile.MediumTermGoals,
		&profile.ShortTermFocus,
		&profile.BusinessPlan,
		&profile.LifePlan,
		&profile.PriorityPrinciples,
		&profile.Preferences,
		&profile.Summary,
		&summaryGeneratedAt,
		&profile.ProfileUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if summaryGeneratedAt.Valid {
		profile.SummaryGeneratedAt = &summaryGeneratedAt.Time
	}

	return profile, nil
}

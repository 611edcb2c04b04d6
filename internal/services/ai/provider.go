package ai

import (
	"context"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// ScoringProvider is the interface for AI scoring providers
type ScoringProvider interface {
	// ScoreBulkPriority scores a set of tasks against the user's goals and
	// returns per-task scores plus bucket recommendations
	ScoreBulkPriority(ctx context.Context, tasks []TaskForScoring, profileSummary string) (*BulkPriorityResult, error)

	// ScoreTask scores a single task against the user's goals
	ScoreTask(ctx context.Context, task TaskForScoring, profileSummary string) (*PriorityScore, error)

	// SummarizeProfile condenses the user's profile into a short summary
	// suitable for embedding in scoring prompts
	SummarizeProfile(ctx context.Context, profile *models.UserProfile) (string, error)

	// TestConnection verifies the provider is reachable and configured
	TestConnection(ctx context.Context) error
}

// TaskForScoring is the slice of a task sent to the scoring provider.
// Names are resolved to text because the model never sees the database.
type TaskForScoring struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	DomainArea      string     `json:"domain_area,omitempty"`
	Project         string     `json:"project,omitempty"`
	NextAction      string     `json:"next_action,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Urgency         int        `json:"urgency,omitempty"`
	Impact          int        `json:"impact,omitempty"`
	Effort          int        `json:"effort,omitempty"`
	EnergyFit       string     `json:"energy_fit,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
}

// PriorityScore is the provider's assessment of one task
type PriorityScore struct {
	TaskID     uuid.UUID             `json:"task_id"`
	Score      int                   `json:"score"`      // 0-100
	Bucket     models.PriorityBucket `json:"bucket"`
	Reasoning  string                `json:"reasoning"`
	Confidence float64               `json:"confidence"` // 0-1
}

// Recommendations is the provider's proposed bucket assignment
type Recommendations struct {
	Now   []uuid.UUID `json:"now"`
	Next  []uuid.UUID `json:"next"`
	Later []uuid.UUID `json:"later"`
}

// BulkPriorityResult is the full outcome of a bulk scoring run
type BulkPriorityResult struct {
	Scores           []PriorityScore `json:"scores"`
	Recommendations  Recommendations `json:"recommendations"`
	OverallRationale string          `json:"overall_rationale,omitempty"`
}

// ProviderFactory creates a scoring provider based on the provider type
type ProviderFactory func(config map[string]string) (ScoringProvider, error)

// ProviderRegistry stores available scoring providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (ScoringProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "scoring provider not found: " + e.Name
}

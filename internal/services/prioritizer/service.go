package prioritizer

import (
	"context"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunResult is the outcome of one bulk prioritization run
type RunResult struct {
	TasksScored      int                `json:"tasks_scored"`
	Scores           []ai.PriorityScore `json:"scores"`
	Outcome          ReconcileOutcome   `json:"outcome"`
	OverallRationale string             `json:"overall_rationale,omitempty"`
}

/// Service orchestrates a bulk prioritization run: select a subset, score
// it with the injected oracle, reconcile the result against the buckets.
// The provider is a constructor dependency, never resolved from global
// state.
type Service struct {
	tasks       database.TaskRepositoryInterface
	profiles    database.UserProfileRepositoryInterface
	domainAreas database.DomainAreaRepositoryInterface
	projects    database.ProjectRepositoryInterface
	provider    ai.ScoringProvider
	reconciler  *Reconciler
	maxTasks    int
	logger      *zap.Logger
}

// NewService creates a new prioritizer service
func NewService(
	tasks database.TaskRepositoryInterface,
	profiles database.UserProfileRepositoryInterface,
	domainAreas database.DomainAreaRepositoryInterface,
	projects database.ProjectRepositoryInterface,
	provider ai.ScoringProvider,
	maxTasks int,
	logger *zap.Logger,
) *Service {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxScoringTasks
	}
	return &Service{
		tasks:       tasks,
		profiles:    profiles,
		domainAreas: domainAreas,
		projects:    projects,
		provider:    provider,
		reconciler:  NewReconciler(tasks, logger),
		maxTasks:    maxTasks,
		logger:      logger,
	}
}

// Run performs a full bulk prioritization pass. An oracle failure is
// returned as an error; it is never treated as an empty recommendation.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	candidates, err := s.tasks.ListByStatuses(ctx,
		models.TaskStatusNow, models.TaskStatusNext,
		models.TaskStatusReady, models.TaskStatusLater)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate tasks: %w", err)
	}

	subset := SelectForScoring(candidates, s.maxTasks, time.Now())
	if len(subset) == 0 {
		return &RunResult{}, nil
	}

	profileSummary, err := s.ProfileSummary(ctx)
	if err != nil {
		// Scoring still works without a profile; it just loses context
		if s.logger != nil {
			s.logger.Warn("profile_summary_unavailable", zap.Error(err))
		}
		profileSummary = ""
	}

	forScoring, err := s.tasksForScoring(ctx, subset)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("bulk_prioritization_started",
			zap.Int("candidate_count", len(candidates)),
			zap.Int("subset_count", len(subset)),
		)
	}

	result, err := s.provider.ScoreBulkPriority(ctx, forScoring, profileSummary)
	if err != nil {
		return nil, fmt.Errorf("scoring failed: %w", err)
	}

	outcome, err := s.reconciler.Apply(ctx, result.Recommendations)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("bulk_prioritization_applied",
			zap.Int("tasks_scored", len(forScoring)),
			zap.Int("moved_to_now", outcome.MovedToNow),
			zap.Int("moved_to_next", outcome.MovedToNext),
			zap.Int("moved_to_later", outcome.MovedToLater),
			zap.Int("safeguarded", outcome.Safeguarded),
		)
	}

	return &RunResult{
		TasksScored:      len(forScoring),
		Scores:           result.Scores,
		Outcome:          *outcome,
		OverallRationale: result.OverallRationale,
	}, nil
}

// ScoreSingle scores one task without touching the buckets
func (s *Service) ScoreSingle(ctx context.Context, taskID uuid.UUID) (*ai.PriorityScore, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	profileSummary, err := s.ProfileSummary(ctx)
	if err != nil {
		profileSummary = ""
	}

	forScoring, err := s.tasksForScoring(ctx, []*models.Task{task})
	if err != nil {
		return nil, err
	}

	return s.provider.ScoreTask(ctx, forScoring[0], profileSummary)
}

// ProfileSummary returns the current profile summary, regenerating it
// through the provider when the profile was edited after the last
// generation
func (s *Service) ProfileSummary(ctx context.Context) (string, error) {
	profile, err := s.profiles.Get(ctx)
	if err != nil {
		return "", err
	}

	if !profile.HasContent() {
		return "", nil
	}
	if !profile.SummaryStale() {
		return profile.Summary, nil
	}

	summary, err := s.provider.SummarizeProfile(ctx, profile)
	if err != nil {
		// A stale summary beats no summary
		if profile.Summary != "" {
			return profile.Summary, nil
		}
		return "", err
	}

	if err := s.profiles.UpdateSummary(ctx, profile.ID, summary); err != nil {
		return "", err
	}

	return summary, nil
}

// tasksForScoring resolves reference names so the oracle sees text, not ids
func (s *Service) tasksForScoring(ctx context.Context, tasks []*models.Task) ([]ai.TaskForScoring, error) {
	areaNames, err := s.areaNames(ctx)
	if err != nil {
		return nil, err
	}
	projectNames, err := s.projectNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ai.TaskForScoring, 0, len(tasks))
	for _, task := range tasks {
		t := ai.TaskForScoring{
			ID:              task.ID,
			Title:           task.Title,
			Status:          string(task.Status),
			NextAction:      task.NextAction,
			DurationMinutes: task.DurationMinutes,
			Notes:           task.Notes,
			DueAt:           task.DueAt,
			Urgency:         task.Urgency,
			Impact:          task.Impact,
			Effort:          task.Effort,
			EnergyFit:       string(task.EnergyFit),
			Tags:            task.Tags,
		}
		if task.DomainAreaID != nil {
			t.DomainArea = areaNames[*task.DomainAreaID]
		}
		if task.ProjectID != nil {
			t.Project = projectNames[*task.ProjectID]
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) areaNames(ctx context.Context) (map[uuid.UUID]string, error) {
	areas, err := s.domainAreas.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain areas: %w", err)
	}
	names := make(map[uuid.UUID]string, len(areas))
	for _, a := range areas {
		names[a.ID] = a.Name
	}
	return names, nil
}

func (s *Service) projectNames(ctx context.Context) (map[uuid.UUID]string, error) {
	projects, err := s.projects.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	names := make(map[uuid.UUID]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names, nil
}

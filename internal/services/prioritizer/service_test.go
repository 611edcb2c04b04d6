package prioritizer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/google/uuid"
)

type mockProfileRepo struct {
	profile        *models.UserProfile
	summaryUpdates int
}

func (m *mockProfileRepo) Get(_ context.Context) (*models.UserProfile, error) {
	if m.profile == nil {
		m.profile = &models.UserProfile{ID: uuid.New(), ProfileUpdatedAt: time.Now()}
	}
	copied := *m.profile
	return &copied, nil
}

func (m *mockProfileRepo) Update(_ context.Context, profile *models.UserProfile) error {
	copied := *profile
	m.profile = &copied
	return nil
}

func (m *mockProfileRepo) UpdateSummary(_ context.Context, _ uuid.UUID, summary string) error {
	now := time.Now()
	m.profile.Summary = summary
	m.profile.SummaryGeneratedAt = &now
	m.summaryUpdates++
	return nil
}

type mockAreaRepo struct{}

func (m *mockAreaRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.DomainArea, error) {
	return nil, fmt.Errorf("domain area not found")
}

func (m *mockAreaRepo) List(_ context.Context, _ bool) ([]*models.DomainArea, error) {
	return nil, nil
}

func (m *mockAreaRepo) Create(_ context.Context, _ *models.DomainArea) error { return nil }

func (m *mockAreaRepo) Update(_ context.Context, _ *models.DomainArea) error { return nil }

func (m *mockAreaRepo) Reorder(_ context.Context, _ []uuid.UUID) error { return nil }

func (m *mockAreaRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type mockProjectRepo struct{}

func (m *mockProjectRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Project, error) {
	return nil, fmt.Errorf("project not found")
}

func (m *mockProjectRepo) List(_ context.Context, _ bool) ([]*models.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) Create(_ context.Context, _ *models.Project) error { return nil }

func (m *mockProjectRepo) Update(_ context.Context, _ *models.Project) error { return nil }

func (m *mockProjectRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

// stubProvider returns canned responses and records what it was asked
type stubProvider struct {
	result       *ai.BulkPriorityResult
	err          error
	scoredTasks  []ai.TaskForScoring
	usedSummary  string
	summaryCalls int
}

func (p *stubProvider) ScoreBulkPriority(_ context.Context, tasks []ai.TaskForScoring, profileSummary string) (*ai.BulkPriorityResult, error) {
	p.scoredTasks = tasks
	p.usedSummary = profileSummary
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *stubProvider) ScoreTask(_ context.Context, task ai.TaskForScoring, _ string) (*ai.PriorityScore, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &ai.PriorityScore{TaskID: task.ID, Score: 50, Bucket: models.BucketLater, Confidence: 0.5}, nil
}

func (p *stubProvider) SummarizeProfile(_ context.Context, _ *models.UserProfile) (string, error) {
	p.summaryCalls++
	return "generated summary", nil
}

func (p *stubProvider) TestConnection(_ context.Context) error {
	return p.err
}

func newTestPrioritizer(repo *mockTaskRepo, profiles *mockProfileRepo, provider *stubProvider) *Service {
	return NewService(repo, profiles, &mockAreaRepo{}, &mockProjectRepo{}, provider, 30, nil)
}

func TestRun_AppliesRecommendations(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	a := repo.add(taskWithStatus(models.TaskStatusNow))
	b := repo.add(taskWithStatus(models.TaskStatusReady))

	provider := &stubProvider{
		result: &ai.BulkPriorityResult{
			Recommendations: ai.Recommendations{
				Now:   []uuid.UUID{b.ID},
				Later: []uuid.UUID{a.ID},
			},
			OverallRationale: "swap",
		},
	}

	svc := newTestPrioritizer(repo, &mockProfileRepo{}, provider)
	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TasksScored != 2 {
		t.Errorf("expected 2 tasks scored, got %d", result.TasksScored)
	}
	if repo.tasks[b.ID].Status != models.TaskStatusNow {
		t.Errorf("expected READY task promoted to NOW, got %s", repo.tasks[b.ID].Status)
	}
	if repo.tasks[a.ID].Status != models.TaskStatusLater {
		t.Errorf("expected NOW task demoted to LATER, got %s", repo.tasks[a.ID].Status)
	}
	if result.OverallRationale != "swap" {
		t.Errorf("unexpected rationale: %q", result.OverallRationale)
	}
}

func TestRun_OracleFailureIsNotEmptyRecommendation(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	a := repo.add(taskWithStatus(models.TaskStatusNow))
	b := repo.add(taskWithStatus(models.TaskStatusNext))

	provider := &stubProvider{err: errors.New("provider unreachable")}
	svc := newTestPrioritizer(repo, &mockProfileRepo{}, provider)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected scoring failure to surface as an error")
	}

	// Buckets must be untouched
	if repo.tasks[a.ID].Status != models.TaskStatusNow {
		t.Error("NOW task must keep its bucket after oracle failure")
	}
	if repo.tasks[b.ID].Status != models.TaskStatusNext {
		t.Error("NEXT task must keep its bucket after oracle failure")
	}
}

func TestRun_NoCandidatesIsNoOp(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	provider := &stubProvider{}
	svc := newTestPrioritizer(repo, &mockProfileRepo{}, provider)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TasksScored != 0 {
		t.Errorf("expected no tasks scored, got %d", result.TasksScored)
	}
	if provider.scoredTasks != nil {
		t.Error("provider must not be called with an empty subset")
	}
}

func TestProfileSummary_RefreshesWhenStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &stubProvider{}

	profiles := &mockProfileRepo{profile: &models.UserProfile{
		ID:               uuid.New(),
		LongTermGoals:    "ship the product",
		ProfileUpdatedAt: time.Now(),
	}}

	svc := newTestPrioritizer(newMockTaskRepo(), profiles, provider)

	summary, err := svc.ProfileSummary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "generated summary" {
		t.Errorf("expected fresh summary, got %q", summary)
	}
	if provider.summaryCalls != 1 || profiles.summaryUpdates != 1 {
		t.Error("expected one summary generation and one persist")
	}

	// Second call sees a fresh summary and skips regeneration
	if _, err := svc.ProfileSummary(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.summaryCalls != 1 {
		t.Errorf("expected cached summary to be reused, got %d calls", provider.summaryCalls)
	}
}

func TestProfileSummary_EmptyProfile(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	svc := newTestPrioritizer(newMockTaskRepo(), &mockProfileRepo{}, provider)

	summary, err := svc.ProfileSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "" {
		t.Errorf("expected empty summary for empty profile, got %q", summary)
	}
	if provider.summaryCalls != 0 {
		t.Error("empty profile must not trigger summarization")
	}
}

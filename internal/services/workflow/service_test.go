package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// mockTaskRepo is an in-memory TaskRepositoryInterface for tests
type mockTaskRepo struct {
	tasks  map[uuid.UUID]*models.Task
	events []*models.AuditEvent
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskRepo) List(_ context.Context, status *models.TaskStatus) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListByStatuses(_ context.Context, statuses ...models.TaskStatus) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		for _, s := range statuses {
			if t.Status == s {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (m *mockTaskRepo) CountByStatus(_ context.Context, status models.TaskStatus) (int, error) {
	count := 0
	for _, t := range m.tasks {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskRepo) DeleteCascade(_ context.Context, id uuid.UUID) error {
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) GetCompletedBefore(_ context.Context, cutoff time.Time) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if t.Status == models.TaskStatusDone && t.CompletedAt != nil && !t.CompletedAt.After(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) AddShippedOutput(_ context.Context, _ *models.ShippedOutput) error {
	return nil
}

func (m *mockTaskRepo) ListShippedOutputs(_ context.Context, _ uuid.UUID) ([]*models.ShippedOutput, error) {
	return nil, nil
}

func (m *mockTaskRepo) AppendAuditEvent(_ context.Context, event *models.AuditEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockTaskRepo) ListAuditEvents(_ context.Context, taskID uuid.UUID) ([]*models.AuditEvent, error) {
	var out []*models.AuditEvent
	for _, e := range m.events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) CountByDomainArea(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockTaskRepo) CountByProject(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

// mockBlockRepo is an in-memory TimeBlockRepositoryInterface for tests
type mockBlockRepo struct {
	blocks map[uuid.UUID]*models.TimeBlock
}

func newMockBlockRepo() *mockBlockRepo {
	return &mockBlockRepo{blocks: make(map[uuid.UUID]*models.TimeBlock)}
}

func (m *mockBlockRepo) Create(_ context.Context, block *models.TimeBlock) error {
	m.blocks[block.ID] = block
	return nil
}

func (m *mockBlockRepo) GetByID(_ context.Context, id uuid.UUID) (*models.TimeBlock, error) {
	block, ok := m.blocks[id]
	if !ok {
		return nil, fmt.Errorf("timeblock not found")
	}
	copied := *block
	return &copied, nil
}

func (m *mockBlockRepo) List(_ context.Context) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, b := range m.blocks {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBlockRepo) ListBetween(_ context.Context, start, end time.Time) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, b := range m.blocks {
		if !b.ScheduledFor.Before(start) && b.ScheduledFor.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBlockRepo) ListForTask(_ context.Context, taskID uuid.UUID) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, b := range m.blocks {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBlockRepo) Update(_ context.Context, block *models.TimeBlock) error {
	if _, ok := m.blocks[block.ID]; !ok {
		return fmt.Errorf("timeblock not found")
	}
	copied := *block
	m.blocks[block.ID] = &copied
	return nil
}

func (m *mockBlockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.blocks[id]; !ok {
		return fmt.Errorf("timeblock not found")
	}
	delete(m.blocks, id)
	return nil
}

func (m *mockBlockRepo) DeleteForTask(_ context.Context, taskID uuid.UUID) error {
	for id, b := range m.blocks {
		if b.TaskID == taskID {
			delete(m.blocks, id)
		}
	}
	return nil
}

func newTestService() (*Service, *mockTaskRepo, *mockBlockRepo) {
	tasks := newMockTaskRepo()
	blocks := newMockBlockRepo()
	return NewService(tasks, blocks, nil), tasks, blocks
}

func domainAreaRef() *uuid.UUID {
	id := uuid.New()
	return &id
}

func readyTask(status models.TaskStatus) *models.Task {
	task := &models.Task{
		ID:              uuid.New(),
		Title:           "write report",
		DomainAreaID:    domainAreaRef(),
		Status:          status,
		DoDItems:        []models.DoDItem{{Text: "draft"}, {Text: "review"}},
		NextAction:      "open editor",
		DurationMinutes: 45,
	}
	if status == models.TaskStatusNow || status == models.TaskStatusNext || status == models.TaskStatusLater {
		bucket := models.PriorityBucket(status)
		task.Bucket = &bucket
	}
	return task
}

func TestCreateTask_ReadyWhenStructured(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()

	task := readyTask("")
	if err := svc.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.TaskStatusReady {
		t.Errorf("expected READY, got %s", task.Status)
	}

	bare := &models.Task{Title: "someday maybe"}
	if err := svc.CreateTask(context.Background(), bare); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bare.Status != models.TaskStatusDraft {
		t.Errorf("expected DRAFT, got %s", bare.Status)
	}

	if len(repo.events) != 2 {
		t.Errorf("expected 2 audit events, got %d", len(repo.events))
	}
}

func TestMoveToNow_WIPLimit(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	occupant := readyTask(models.TaskStatusNow)
	repo.tasks[occupant.ID] = occupant

	task := readyTask(models.TaskStatusReady)
	repo.tasks[task.ID] = task

	result, err := svc.MoveToNow(ctx, task.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected move to be blocked by WIP limit")
	}
	if result.Error == "" {
		t.Error("expected capacity error message")
	}
	if repo.tasks[task.ID].Status != models.TaskStatusReady {
		t.Errorf("task status changed despite blocked move: %s", repo.tasks[task.ID].Status)
	}

	// Override bypasses the limit but reports a warning
	result, err = svc.MoveToNow(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected override to succeed, got error: %s", result.Error)
	}
	if result.Warning == "" {
		t.Error("expected override warning")
	}

	moved := repo.tasks[task.ID]
	if moved.Status != models.TaskStatusNow {
		t.Errorf("expected NOW, got %s", moved.Status)
	}
	if moved.Bucket == nil || *moved.Bucket != models.BucketNow {
		t.Error("bucket not set in lockstep with status")
	}
}

func TestMoveToNext_WIPLimit(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		occupant := readyTask(models.TaskStatusNext)
		repo.tasks[occupant.ID] = occupant
	}

	task := readyTask(models.TaskStatusLater)
	repo.tasks[task.ID] = task

	result, err := svc.MoveToNext(ctx, task.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected move to be blocked at 3 NEXT tasks")
	}
}

func TestMoveToBucket_RejectsDraft(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()

	task := &models.Task{ID: uuid.New(), Title: "unclarified", Status: models.TaskStatusDraft}
	repo.tasks[task.ID] = task

	result, err := svc.MoveToLater(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected DRAFT task to be rejected from prioritization")
	}
}

func TestMarkReady_CollectsViolations(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()

	task := &models.Task{ID: uuid.New(), Title: "vague idea", Status: models.TaskStatusDraft}
	repo.tasks[task.ID] = task

	result, err := svc.MarkReady(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected readiness failure")
	}
	if len(result.Errors) != 4 {
		t.Errorf("expected 4 violations, got %v", result.Errors)
	}
	if repo.tasks[task.ID].Status != models.TaskStatusDraft {
		t.Error("task must stay DRAFT when readiness fails")
	}
}

func TestComplete_DoDEnforcement(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	task := readyTask(models.TaskStatusNow)
	task.DoDItems = []models.DoDItem{
		{Text: "a", Completed: true},
		{Text: "b", Completed: false},
	}
	repo.tasks[task.ID] = task

	result, err := svc.Complete(ctx, task.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected completion to fail with incomplete DoD")
	}

	result, err = svc.Complete(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected forced completion to succeed: %v", result.Errors)
	}

	done := repo.tasks[task.ID]
	if done.Status != models.TaskStatusDone {
		t.Errorf("expected DONE, got %s", done.Status)
	}
	if !done.ForceCompleted {
		t.Error("expected forceCompleted flag")
	}
	if done.CompletedAt == nil {
		t.Error("expected completedAt to be stamped")
	}
	if done.Bucket != nil {
		t.Error("expected bucket cleared on completion")
	}
}

func TestComplete_EmptyDoDNeverSatisfiable(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()

	task := readyTask(models.TaskStatusNow)
	task.DoDItems = nil
	repo.tasks[task.ID] = task

	result, err := svc.Complete(context.Background(), task.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("task with no DoD items must require force-complete")
	}
}

func TestUndoCompletion(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	task := readyTask(models.TaskStatusNow)
	repo.tasks[task.ID] = task

	if result, _ := svc.Complete(ctx, task.ID, true); !result.Success {
		t.Fatal("setup: completion failed")
	}

	result, err := svc.UndoCompletion(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected undo to succeed: %s", result.Error)
	}

	undone := repo.tasks[task.ID]
	if undone.Status != models.TaskStatusReady {
		t.Errorf("expected READY after undo, got %s", undone.Status)
	}
	if undone.CompletedAt != nil || undone.ForceCompleted {
		t.Error("expected completion markers cleared")
	}

	// Undo is only valid from DONE
	result, err = svc.UndoCompletion(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected second undo to be rejected")
	}
}

func TestToggleDoDItem(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	task := readyTask(models.TaskStatusReady)
	repo.tasks[task.ID] = task

	updated, err := svc.ToggleDoDItem(ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.DoDItems[1].Completed {
		t.Error("expected item 1 to be toggled on")
	}

	updated, err = svc.ToggleDoDItem(ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DoDItems[1].Completed {
		t.Error("expected item 1 to be toggled back off")
	}

	if _, err := svc.ToggleDoDItem(ctx, task.ID, 5); err == nil {
		t.Error("expected out-of-range index to error")
	}
}

func TestAbandon_RemovesTimeBlocks(t *testing.T) {
	t.Parallel()

	svc, repo, blocks := newTestService()
	ctx := context.Background()

	task := readyTask(models.TaskStatusScheduled)
	repo.tasks[task.ID] = task
	blocks.blocks[uuid.New()] = &models.TimeBlock{
		ID:     uuid.New(),
		TaskID: task.ID,
	}

	result, err := svc.Abandon(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected abandon to succeed: %s", result.Error)
	}
	if repo.tasks[task.ID].Status != models.TaskStatusAbandoned {
		t.Error("expected ABANDONED status")
	}

	remaining, _ := blocks.ListForTask(ctx, task.ID)
	if len(remaining) != 0 {
		t.Errorf("expected timeblocks removed, %d remain", len(remaining))
	}
}

func TestPurgeOldCompleted_Idempotent(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService()
	ctx := context.Background()

	old := readyTask(models.TaskStatusDone)
	oldTime := time.Now().Add(-72 * time.Hour)
	old.CompletedAt = &oldTime
	repo.tasks[old.ID] = old

	recent := readyTask(models.TaskStatusDone)
	recentTime := time.Now().Add(-1 * time.Hour)
	recent.CompletedAt = &recentTime
	repo.tasks[recent.ID] = recent

	purged, err := svc.PurgeOldCompleted(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}
	if _, ok := repo.tasks[recent.ID]; !ok {
		t.Error("recently completed task must survive the purge")
	}

	// Second sweep with nothing newly eligible is a no-op
	purged, err = svc.PurgeOldCompleted(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 0 {
		t.Errorf("expected 0 purged on second sweep, got %d", purged)
	}
}

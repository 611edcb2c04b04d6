package prioritizer

import (
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

func taskWithStatus(status models.TaskStatus) *models.Task {
	task := &models.Task{ID: uuid.New(), Title: "t", Status: status}
	if status == models.TaskStatusNow || status == models.TaskStatusNext || status == models.TaskStatusLater {
		bucket := models.PriorityBucket(status)
		task.Bucket = &bucket
	}
	return task
}

func TestSelectForScoring_TierPrecedence(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	var tasks []*models.Task
	for i := 0; i < 2; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusNow))
	}
	tasks = append(tasks, taskWithStatus(models.TaskStatusNext))
	for i := 0; i < 5; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusReady))
	}
	unconditional := make(map[uuid.UUID]bool)
	for _, task := range tasks {
		unconditional[task.ID] = true
	}

	for i := 0; i < 40; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusLater))
	}

	selected := SelectForScoring(tasks, 30, now)

	if len(selected) != 30 {
		t.Fatalf("expected exactly 30 selected, got %d", len(selected))
	}

	got := make(map[uuid.UUID]int)
	for _, task := range selected {
		got[task.ID]++
		if got[task.ID] > 1 {
			t.Errorf("task %s selected twice", task.ID)
		}
	}
	for id := range unconditional {
		if got[id] == 0 {
			t.Error("NOW/NEXT/READY task missing from subset")
		}
	}
}

func TestSelectForScoring_DueDateTierBeatsArrivalOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// 3 LATER tasks arrive first without due dates, then one due tomorrow
	var tasks []*models.Task
	for i := 0; i < 3; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusLater))
	}
	dueSoon := taskWithStatus(models.TaskStatusLater)
	due := now.Add(24 * time.Hour)
	dueSoon.DueAt = &due
	tasks = append(tasks, dueSoon)

	farOut := taskWithStatus(models.TaskStatusLater)
	farDue := now.Add(30 * 24 * time.Hour)
	farOut.DueAt = &farDue
	tasks = append(tasks, farOut)

	selected := SelectForScoring(tasks, 2, now)

	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}
	if selected[0].ID != dueSoon.ID {
		t.Error("task due within the window must be selected before arrival-order fill")
	}
}

func TestSelectForScoring_ProjectAffinity(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	projectID := uuid.New()

	ready := taskWithStatus(models.TaskStatusReady)
	ready.ProjectID = &projectID

	unrelated := taskWithStatus(models.TaskStatusLater)
	related := taskWithStatus(models.TaskStatusLater)
	related.ProjectID = &projectID

	selected := SelectForScoring([]*models.Task{ready, unrelated, related}, 2, now)

	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}
	if selected[0].ID != ready.ID {
		t.Error("READY task must come first")
	}
	if selected[1].ID != related.ID {
		t.Error("LATER task sharing a project with a READY task must beat arrival order")
	}
}

func TestSelectForScoring_UnconditionalTiersExceedLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	var tasks []*models.Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusNext))
	}
	for i := 0; i < 3; i++ {
		tasks = append(tasks, taskWithStatus(models.TaskStatusReady))
	}
	tasks = append(tasks, taskWithStatus(models.TaskStatusLater))

	// The action-critical tiers are never excluded, even beyond the limit
	selected := SelectForScoring(tasks, 5, now)
	if len(selected) != 7 {
		t.Errorf("expected all 7 NOW/NEXT/READY tasks, got %d", len(selected))
	}
	for _, task := range selected {
		if task.Status == models.TaskStatusLater {
			t.Error("no LATER task should fit when the limit is already exceeded")
		}
	}
}

func TestSelectForScoring_IgnoresOtherStatuses(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tasks := []*models.Task{
		taskWithStatus(models.TaskStatusDraft),
		taskWithStatus(models.TaskStatusDone),
		taskWithStatus(models.TaskStatusScheduled),
		taskWithStatus(models.TaskStatusNow),
	}

	selected := SelectForScoring(tasks, 30, now)
	if len(selected) != 1 {
		t.Fatalf("expected only the NOW task, got %d", len(selected))
	}
	if selected[0].Status != models.TaskStatusNow {
		t.Errorf("unexpected selection: %s", selected[0].Status)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/scheduler"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newTestBlockRouter(tasks *handlerTaskRepo, blocks *handlerBlockRepo) *mux.Router {
	sched := scheduler.NewService(tasks, blocks, zap.NewNop())
	handler := NewTimeBlockHandler(blocks, sched)

	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/timeblocks").Subrouter())
	return router
}

func nowBucketTask(repo *handlerTaskRepo) *models.Task {
	task := readyTask("scheduled work")
	bucket := models.BucketNow
	task.Status = models.TaskStatusNow
	task.Bucket = &bucket
	return repo.add(task)
}

func TestTimeBlockHandler_CreateBlock(t *testing.T) {
	t.Parallel()

	tomorrow := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	tests := []struct {
		name       string
		setup      func(*handlerTaskRepo) uuid.UUID
		scheduled  time.Time
		duration   int
		wantStatus int
	}{
		{
			name:       "valid block for NOW task",
			setup:      func(r *handlerTaskRepo) uuid.UUID { return nowBucketTask(r).ID },
			scheduled:  tomorrow,
			duration:   45,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duration outside allowed set",
			setup:      func(r *handlerTaskRepo) uuid.UUID { return nowBucketTask(r).ID },
			scheduled:  tomorrow,
			duration:   50,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "READY task is not schedulable",
			setup:      func(r *handlerTaskRepo) uuid.UUID { return r.add(readyTask("not prioritized")).ID },
			scheduled:  tomorrow,
			duration:   45,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "past start rejected",
			setup:      func(r *handlerTaskRepo) uuid.UUID { return nowBucketTask(r).ID },
			scheduled:  time.Now().Add(-2 * time.Hour),
			duration:   45,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown task",
			setup:      func(_ *handlerTaskRepo) uuid.UUID { return uuid.New() },
			scheduled:  tomorrow,
			duration:   45,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tasks := newHandlerTaskRepo()
			taskID := tt.setup(tasks)
			router := newTestBlockRouter(tasks, newHandlerBlockRepo())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks", map[string]any{
				"task_id":          taskID.String(),
				"scheduled_for":    tt.scheduled.Format(time.RFC3339),
				"duration_minutes": tt.duration,
			}))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var body struct {
				Data models.TimeBlock `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Data.TaskID != taskID {
				t.Errorf("Expected task ID %s, got %s", taskID, body.Data.TaskID)
			}

			task := tasks.tasks[taskID]
			if task.Status != models.TaskStatusScheduled {
				t.Errorf("Expected task status SCHEDULED, got %s", task.Status)
			}
		})
	}
}

func TestTimeBlockHandler_OverlapRejected(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	first := nowBucketTask(tasks)
	second := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()
	router := newTestBlockRouter(tasks, blocks)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks", map[string]any{
		"task_id":          first.ID.String(),
		"scheduled_for":    start.Format(time.RFC3339),
		"duration_minutes": 60,
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// Starts inside the first block's window
	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks", map[string]any{
		"task_id":          second.ID.String(),
		"scheduled_for":    start.Add(30 * time.Minute).Format(time.RFC3339),
		"duration_minutes": 45,
	}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	// Abutting the first block's end is allowed
	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks", map[string]any{
		"task_id":          second.ID.String(),
		"scheduled_for":    start.Add(60 * time.Minute).Format(time.RFC3339),
		"duration_minutes": 45,
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTimeBlockHandler_CompleteBlock(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	task := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()
	block := &models.TimeBlock{
		ID:              uuid.New(),
		TaskID:          task.ID,
		ScheduledFor:    time.Now().Add(-time.Hour),
		DurationMinutes: 45,
	}
	blocks.blocks[block.ID] = block
	task.Status = models.TaskStatusInProgress

	router := newTestBlockRouter(tasks, blocks)

	// Completing the task with an unchecked DoD is rejected and the block
	// stays open
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+block.ID.String()+"/complete", map[string]any{
		"complete_task": true,
	}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}
	if block.Completed {
		t.Error("Block should remain open after a DoD rejection")
	}

	// Completing just the block returns the task to its bucket
	actual := 40
	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+block.ID.String()+"/complete", map[string]any{
		"actual_minutes": actual,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !block.Completed {
		t.Error("Expected block to be completed")
	}
	if block.ActualMinutes == nil || *block.ActualMinutes != actual {
		t.Errorf("Expected actual minutes %d, got %v", actual, block.ActualMinutes)
	}
	if task.Status != models.TaskStatusNow {
		t.Errorf("Expected task back in NOW, got %s", task.Status)
	}
}

func TestTimeBlockHandler_AbandonBlock_RequiresReason(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	task := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()
	block := &models.TimeBlock{
		ID:              uuid.New(),
		TaskID:          task.ID,
		ScheduledFor:    time.Now().Add(time.Hour),
		DurationMinutes: 45,
	}
	blocks.blocks[block.ID] = block

	router := newTestBlockRouter(tasks, blocks)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+block.ID.String()+"/abandon", map[string]any{}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+block.ID.String()+"/abandon", map[string]any{
		"reason": "meeting ran over",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if block.AbandonReason != "meeting ran over" {
		t.Errorf("Unexpected abandon reason %q", block.AbandonReason)
	}
}

func TestTimeBlockHandler_ExtendBlock(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	task := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	first := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: start, DurationMinutes: 45}
	second := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: start.Add(45 * time.Minute), DurationMinutes: 25}
	blocks.blocks[first.ID] = first
	blocks.blocks[second.ID] = second

	router := newTestBlockRouter(tasks, blocks)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+first.ID.String()+"/extend", map[string]any{
		"minutes": 30,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data ExtendBlockResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Data.ShiftedBlocks != 1 {
		t.Errorf("Expected 1 shifted block, got %d", body.Data.ShiftedBlocks)
	}
	if first.DurationMinutes != 75 {
		t.Errorf("Expected duration 75, got %d", first.DurationMinutes)
	}
	if !second.ScheduledFor.Equal(start.Add(75 * time.Minute)) {
		t.Errorf("Expected second block pushed to %s, got %s", start.Add(75*time.Minute), second.ScheduledFor)
	}
}

func TestTimeBlockHandler_BringForward(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	task := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()

	start := time.Date(2026, 9, 3, 9, 0, 0, 0, time.UTC)
	first := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: start, DurationMinutes: 45}
	second := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: start.Add(2 * time.Hour), DurationMinutes: 25}
	blocks.blocks[first.ID] = first
	blocks.blocks[second.ID] = second

	router := newTestBlockRouter(tasks, blocks)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/timeblocks/"+first.ID.String()+"/bring-forward", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data scheduler.BringForwardResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Data.Moved {
		t.Fatal("Expected a block to be moved")
	}
	if body.Data.BlockID != second.ID {
		t.Errorf("Expected block %s moved, got %s", second.ID, body.Data.BlockID)
	}
	if !second.ScheduledFor.Equal(first.End()) {
		t.Errorf("Expected second block pulled to %s, got %s", first.End(), second.ScheduledFor)
	}
}

func TestTimeBlockHandler_DaySchedule(t *testing.T) {
	t.Parallel()

	tasks := newHandlerTaskRepo()
	task := nowBucketTask(tasks)
	blocks := newHandlerBlockRepo()

	day := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	inDay := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: day, DurationMinutes: 45}
	otherDay := &models.TimeBlock{ID: uuid.New(), TaskID: task.ID, ScheduledFor: day.AddDate(0, 0, 1), DurationMinutes: 45}
	blocks.blocks[inDay.ID] = inDay
	blocks.blocks[otherDay.ID] = otherDay

	router := newTestBlockRouter(tasks, blocks)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodGet, "/timeblocks?day=2026-09-02", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []models.TimeBlock `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(body.Data))
	}
	if body.Data[0].ID != inDay.ID {
		t.Errorf("Expected block %s, got %s", inDay.ID, body.Data[0].ID)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodGet, "/timeblocks?day=not-a-date", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/workflow"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// handlerTaskRepo is an in-memory task repository for handler tests
type handlerTaskRepo struct {
	tasks   map[uuid.UUID]*models.Task
	outputs []*models.ShippedOutput
	events  []*models.AuditEvent
}

func newHandlerTaskRepo() *handlerTaskRepo {
	return &handlerTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *handlerTaskRepo) add(task *models.Task) *models.Task {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	m.tasks[task.ID] = task
	return task
}

func (m *handlerTaskRepo) Create(_ context.Context, task *models.Task) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *handlerTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	return task, nil
}

func (m *handlerTaskRepo) List(_ context.Context, status *models.TaskStatus) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if status == nil || task.Status == *status {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *handlerTaskRepo) ListByStatuses(_ context.Context, statuses ...models.TaskStatus) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		for _, s := range statuses {
			if task.Status == s {
				out = append(out, task)
				break
			}
		}
	}
	return out, nil
}

func (m *handlerTaskRepo) CountByStatus(_ context.Context, status models.TaskStatus) (int, error) {
	count := 0
	for _, task := range m.tasks {
		if task.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *handlerTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *handlerTaskRepo) DeleteCascade(_ context.Context, id uuid.UUID) error {
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *handlerTaskRepo) GetCompletedBefore(_ context.Context, cutoff time.Time) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.Status == models.TaskStatusDone && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *handlerTaskRepo) AddShippedOutput(_ context.Context, output *models.ShippedOutput) error {
	m.outputs = append(m.outputs, output)
	return nil
}

func (m *handlerTaskRepo) ListShippedOutputs(_ context.Context, taskID uuid.UUID) ([]*models.ShippedOutput, error) {
	var out []*models.ShippedOutput
	for _, o := range m.outputs {
		if o.TaskID == taskID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *handlerTaskRepo) AppendAuditEvent(_ context.Context, event *models.AuditEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *handlerTaskRepo) ListAuditEvents(_ context.Context, taskID uuid.UUID) ([]*models.AuditEvent, error) {
	var out []*models.AuditEvent
	for _, e := range m.events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *handlerTaskRepo) CountByDomainArea(_ context.Context, domainAreaID uuid.UUID) (int, error) {
	count := 0
	for _, task := range m.tasks {
		if task.DomainAreaID != nil && *task.DomainAreaID == domainAreaID {
			count++
		}
	}
	return count, nil
}

func (m *handlerTaskRepo) CountByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	count := 0
	for _, task := range m.tasks {
		if task.ProjectID != nil && *task.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

// handlerBlockRepo is an in-memory timeblock repository for handler tests
type handlerBlockRepo struct {
	blocks map[uuid.UUID]*models.TimeBlock
}

func newHandlerBlockRepo() *handlerBlockRepo {
	return &handlerBlockRepo{blocks: make(map[uuid.UUID]*models.TimeBlock)}
}

func (m *handlerBlockRepo) Create(_ context.Context, block *models.TimeBlock) error {
	m.blocks[block.ID] = block
	return nil
}

func (m *handlerBlockRepo) GetByID(_ context.Context, id uuid.UUID) (*models.TimeBlock, error) {
	block, ok := m.blocks[id]
	if !ok {
		return nil, fmt.Errorf("block not found")
	}
	return block, nil
}

func (m *handlerBlockRepo) List(_ context.Context) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, block := range m.blocks {
		out = append(out, block)
	}
	return out, nil
}

func (m *handlerBlockRepo) ListBetween(_ context.Context, start, end time.Time) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, block := range m.blocks {
		if !block.ScheduledFor.Before(start) && block.ScheduledFor.Before(end) {
			out = append(out, block)
		}
	}
	return out, nil
}

func (m *handlerBlockRepo) ListForTask(_ context.Context, taskID uuid.UUID) ([]*models.TimeBlock, error) {
	var out []*models.TimeBlock
	for _, block := range m.blocks {
		if block.TaskID == taskID {
			out = append(out, block)
		}
	}
	return out, nil
}

func (m *handlerBlockRepo) Update(_ context.Context, block *models.TimeBlock) error {
	if _, ok := m.blocks[block.ID]; !ok {
		return fmt.Errorf("block not found")
	}
	m.blocks[block.ID] = block
	return nil
}

func (m *handlerBlockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.blocks[id]; !ok {
		return fmt.Errorf("block not found")
	}
	delete(m.blocks, id)
	return nil
}

func (m *handlerBlockRepo) DeleteForTask(_ context.Context, taskID uuid.UUID) error {
	for id, block := range m.blocks {
		if block.TaskID == taskID {
			delete(m.blocks, id)
		}
	}
	return nil
}

func newTestTaskRouter(repo *handlerTaskRepo) *mux.Router {
	wf := workflow.NewService(repo, newHandlerBlockRepo(), zap.NewNop())
	handler := NewTaskHandler(repo, wf)

	router := mux.NewRouter()
	handler.RegisterRoutes(router.PathPrefix("/tasks").Subrouter())
	return router
}

func readyTask(title string) *models.Task {
	areaID := uuid.New()
	return &models.Task{
		ID:              uuid.New(),
		Title:           title,
		Status:          models.TaskStatusReady,
		DomainAreaID:    &areaID,
		DoDItems:        []models.DoDItem{{Text: "done when shipped"}},
		NextAction:      "write the first draft",
		DurationMinutes: 45,
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantState  models.TaskStatus
	}{
		{
			name:       "bare title enters DRAFT",
			body:       map[string]any{"title": "Write blog post"},
			wantStatus: http.StatusCreated,
			wantState:  models.TaskStatusDraft,
		},
		{
			name: "fully structured task enters READY",
			body: map[string]any{
				"title":            "Write blog post",
				"domain_area_id":   uuid.New().String(),
				"dod_items":        []string{"draft published"},
				"next_action":      "outline the post",
				"duration_minutes": 45,
			},
			wantStatus: http.StatusCreated,
			wantState:  models.TaskStatusReady,
		},
		{
			name:       "missing title rejected",
			body:       map[string]any{"notes": "no title"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too many DoD items rejected",
			body:       map[string]any{"title": "x", "dod_items": []string{"a", "b", "c", "d"}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newTestTaskRouter(newHandlerTaskRepo())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks", tt.body))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var body struct {
				Data models.Task `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Data.Status != tt.wantState {
				t.Errorf("Expected status %s, got %s", tt.wantState, body.Data.Status)
			}
		})
	}
}

func TestTaskHandler_MoveToBucket_WIPLimit(t *testing.T) {
	t.Parallel()

	repo := newHandlerTaskRepo()
	occupant := readyTask("occupant")
	occupant.Status = models.TaskStatusNow
	repo.add(occupant)
	candidate := repo.add(readyTask("candidate"))

	router := newTestTaskRouter(repo)

	// Without override the NOW cap blocks the move
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+candidate.ID.String()+"/bucket", map[string]any{"bucket": "NOW"}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	// Override lets it through with a warning
	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+candidate.ID.String()+"/bucket", map[string]any{"bucket": "NOW", "override": true}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data taskResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Data.Warning == "" {
		t.Error("Expected an override warning")
	}
	if body.Data.Task.Status != models.TaskStatusNow {
		t.Errorf("Expected status NOW, got %s", body.Data.Task.Status)
	}
}

func TestTaskHandler_MoveToBucket_InvalidBucket(t *testing.T) {
	t.Parallel()

	repo := newHandlerTaskRepo()
	task := repo.add(readyTask("candidate"))
	router := newTestTaskRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/bucket", map[string]any{"bucket": "URGENT"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTaskHandler_CompleteTask(t *testing.T) {
	t.Parallel()

	repo := newHandlerTaskRepo()
	task := repo.add(readyTask("ship it"))
	router := newTestTaskRouter(repo)

	// Unchecked DoD blocks completion
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/complete", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	// Force pushes it through
	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/complete", map[string]any{"force": true}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if task.Status != models.TaskStatusDone {
		t.Errorf("Expected status DONE, got %s", task.Status)
	}
	if !task.ForceCompleted {
		t.Error("Expected force completion to be recorded")
	}
}

func TestTaskHandler_ToggleDoDItemAndComplete(t *testing.T) {
	t.Parallel()

	repo := newHandlerTaskRepo()
	task := repo.add(readyTask("ship it"))
	router := newTestTaskRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/dod/0/toggle", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/complete", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if task.ForceCompleted {
		t.Error("Completion with a satisfied DoD should not be marked forced")
	}
}

func TestTaskHandler_GetTask_NotFound(t *testing.T) {
	t.Parallel()

	router := newTestTaskRouter(newHandlerTaskRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodGet, "/tasks/"+uuid.New().String(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
}

func TestTaskHandler_ListTasks_InvalidStatus(t *testing.T) {
	t.Parallel()

	router := newTestTaskRouter(newHandlerTaskRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodGet, "/tasks?status=BOGUS", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
}

func TestTaskHandler_RecordAndListOutputs(t *testing.T) {
	t.Parallel()

	repo := newHandlerTaskRepo()
	task := repo.add(readyTask("ship it"))
	router := newTestTaskRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/outputs", map[string]any{"description": "published v1.0"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newTestRequest(http.MethodGet, "/tasks/"+task.ID.String()+"/outputs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Data []models.ShippedOutput `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(body.Data))
	}
	if body.Data[0].Description != "published v1.0" {
		t.Errorf("Unexpected description %q", body.Data[0].Description)
	}
}

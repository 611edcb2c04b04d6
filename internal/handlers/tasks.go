package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/workflow"
	"github.com/benmartin/gtdflow/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TaskHandler handles task lifecycle requests
type TaskHandler struct {
	tasks    database.TaskRepositoryInterface
	workflow *workflow.Service
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, wf *workflow.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks, workflow: wf}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/ready", h.MarkReady).Methods("POST")
	r.HandleFunc("/{id}/bucket", h.MoveToBucket).Methods("POST")
	r.HandleFunc("/{id}/dod/{index}/toggle", h.ToggleDoDItem).Methods("POST")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/{id}/undo-complete", h.UndoCompletion).Methods("POST")
	r.HandleFunc("/{id}/abandon", h.AbandonTask).Methods("POST")
	r.HandleFunc("/{id}/outputs", h.ListOutputs).Methods("GET")
	r.HandleFunc("/{id}/outputs", h.RecordOutput).Methods("POST")
	r.HandleFunc("/{id}/audit", h.ListAuditEvents).Methods("GET")
}

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 500
	// MaxNotesLength is the maximum length for task notes
	MaxNotesLength = 10000
)

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title           string           `json:"title" validate:"required,min=1,max=500"`
	DomainAreaID    *uuid.UUID       `json:"domain_area_id,omitempty"`
	ProjectID       *uuid.UUID       `json:"project_id,omitempty"`
	DoDItems        []string         `json:"dod_items,omitempty" validate:"max=3"`
	NextAction      string           `json:"next_action,omitempty"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	Notes           string           `json:"notes,omitempty" validate:"max=10000"`
	DueAt           *time.Time       `json:"due_at,omitempty"`
	Urgency         int              `json:"urgency,omitempty" validate:"min=0,max=5"`
	Impact          int              `json:"impact,omitempty" validate:"min=0,max=5"`
	Effort          int              `json:"effort,omitempty" validate:"min=0,max=5"`
	EnergyFit       string           `json:"energy_fit,omitempty" validate:"energy_level"`
	Tags            []string         `json:"tags,omitempty"`
	Contexts        []string         `json:"contexts,omitempty"`
	OriginCaptureID *uuid.UUID       `json:"origin_capture_id,omitempty"`
	FollowOnOf      *uuid.UUID       `json:"follow_on_of_task_id,omitempty"`
}

// UpdateTaskRequest represents a partial task update. Only clarification
// fields are patchable here; lifecycle moves go through dedicated routes.
type UpdateTaskRequest struct {
	Title           *string     `json:"title,omitempty"`
	DomainAreaID    *uuid.UUID  `json:"domain_area_id,omitempty"`
	ProjectID       *uuid.UUID  `json:"project_id,omitempty"`
	DoDItems        *[]string   `json:"dod_items,omitempty"`
	NextAction      *string     `json:"next_action,omitempty"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	DueAt           *time.Time  `json:"due_at,omitempty"`
	Urgency         *int        `json:"urgency,omitempty"`
	Impact          *int        `json:"impact,omitempty"`
	Effort          *int        `json:"effort,omitempty"`
	EnergyFit       *string     `json:"energy_fit,omitempty"`
	Tags            *[]string   `json:"tags,omitempty"`
	Contexts        *[]string   `json:"contexts,omitempty"`
}

// BucketMoveRequest selects a target bucket, optionally overriding WIP caps
type BucketMoveRequest struct {
	Bucket   string `json:"bucket" validate:"required,priority_bucket"`
	Override bool   `json:"override,omitempty"`
}

// CompleteTaskRequest optionally forces completion past an unmet DoD
type CompleteTaskRequest struct {
	Force bool `json:"force,omitempty"`
}

// RecordOutputRequest describes a shipped deliverable
type RecordOutputRequest struct {
	Description string `json:"description" validate:"required,min=1,max=2000"`
}

// taskResult pairs a lifecycle outcome with the updated task
type taskResult struct {
	Task    *models.Task `json:"task"`
	Warning string       `json:"warning,omitempty"`
}

// ListTasks lists tasks, optionally filtered by status
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Opportunistic retention sweep so aged-out DONE tasks never show up
	// in a listing. Best effort; the worker runs the same sweep on a timer.
	_, _ = h.workflow.PurgeOldCompleted(ctx)

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		sEnum := models.TaskStatus(s)
		status = &sEnum
	}

	tasks, err := h.tasks.List(ctx, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a task from clarified capture material. The task
// enters READY directly when structured enough, DRAFT otherwise.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !validateStruct(w, req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	task := &models.Task{
		ID:               uuid.New(),
		Title:            req.Title,
		DomainAreaID:     req.DomainAreaID,
		ProjectID:        req.ProjectID,
		DoDItems:         dodItemsFromText(req.DoDItems),
		NextAction:       validation.SanitizeText(req.NextAction),
		DurationMinutes:  req.DurationMinutes,
		Notes:            validation.SanitizeText(req.Notes),
		DueAt:            req.DueAt,
		Urgency:          req.Urgency,
		Impact:           req.Impact,
		Effort:           req.Effort,
		EnergyFit:        models.EnergyLevel(req.EnergyFit),
		Tags:             req.Tags,
		Contexts:         req.Contexts,
		OriginCaptureID:  req.OriginCaptureID,
		FollowOnOfTaskID: req.FollowOnOf,
	}

	if err := h.workflow.CreateTask(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask patches clarification fields on a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" || len(title) > MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid title")
			return
		}
		task.Title = title
	}
	if req.DomainAreaID != nil {
		task.DomainAreaID = req.DomainAreaID
	}
	if req.ProjectID != nil {
		task.ProjectID = req.ProjectID
	}
	if req.DoDItems != nil {
		if len(*req.DoDItems) > 3 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Maximum 3 DoD items allowed")
			return
		}
		task.DoDItems = mergeDoDItems(task.DoDItems, *req.DoDItems)
	}
	if req.NextAction != nil {
		task.NextAction = validation.SanitizeText(*req.NextAction)
	}
	if req.DurationMinutes != nil {
		task.DurationMinutes = *req.DurationMinutes
	}
	if req.Notes != nil {
		notes := validation.SanitizeText(*req.Notes)
		if len(notes) > MaxNotesLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Notes exceed maximum length of %d characters", MaxNotesLength))
			return
		}
		task.Notes = notes
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if req.Urgency != nil {
		task.Urgency = *req.Urgency
	}
	if req.Impact != nil {
		task.Impact = *req.Impact
	}
	if req.Effort != nil {
		task.Effort = *req.Effort
	}
	if req.EnergyFit != nil {
		task.EnergyFit = models.EnergyLevel(*req.EnergyFit)
	}
	if req.Tags != nil {
		task.Tags = *req.Tags
	}
	if req.Contexts != nil {
		task.Contexts = *req.Contexts
	}

	if err := h.tasks.Update(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask hard-deletes a task and all records referencing it
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	if err := h.workflow.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// MarkReady promotes a DRAFT task to READY after readiness validation
func (h *TaskHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.workflow.MarkReady(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithTask(w, r, id, result.Warning)
}

// MoveToBucket moves a task into NOW, NEXT, or LATER
func (h *TaskHandler) MoveToBucket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req BucketMoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.ValidatePriorityBucket(req.Bucket); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	var result *workflow.Result
	var err error
	switch models.PriorityBucket(req.Bucket) {
	case models.BucketNow:
		result, err = h.workflow.MoveToNow(ctx, id, req.Override)
	case models.BucketNext:
		result, err = h.workflow.MoveToNext(ctx, id, req.Override)
	case models.BucketLater:
		result, err = h.workflow.MoveToLater(ctx, id)
	}
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithTask(w, r, id, result.Warning)
}

// ToggleDoDItem flips the completion flag on one DoD item
func (h *TaskHandler) ToggleDoDItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var index int
	if _, err := fmt.Sscanf(mux.Vars(r)["index"], "%d", &index); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid DoD item index")
		return
	}

	task, err := h.workflow.ToggleDoDItem(r.Context(), id, index)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CompleteTask marks a task DONE, enforcing the definition of done unless
// forced
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	result, err := h.workflow.Complete(r.Context(), id, req.Force)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithTask(w, r, id, result.Warning)
}

// UndoCompletion returns a DONE task to READY
func (h *TaskHandler) UndoCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.workflow.UndoCompletion(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithTask(w, r, id, result.Warning)
}

// AbandonTask abandons a task, removing its scheduled blocks
func (h *TaskHandler) AbandonTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.workflow.Abandon(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithTask(w, r, id, result.Warning)
}

// RecordOutput attaches a shipped deliverable to a task
func (h *TaskHandler) RecordOutput(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req RecordOutputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	output, err := h.workflow.RecordShippedOutput(r.Context(), id, validation.SanitizeText(req.Description))
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusCreated, output)
}

// ListOutputs lists shipped outputs for a task
func (h *TaskHandler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	outputs, err := h.tasks.ListShippedOutputs(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve shipped outputs")
		return
	}

	respondJSON(w, http.StatusOK, outputs)
}

// ListAuditEvents lists the audit trail for a task
func (h *TaskHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	events, err := h.tasks.ListAuditEvents(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve audit events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// respondWithTask reloads the task and returns it with an optional warning
func (h *TaskHandler) respondWithTask(w http.ResponseWriter, r *http.Request, id uuid.UUID, warning string) {
	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reload task")
		return
	}
	respondJSON(w, http.StatusOK, taskResult{Task: task, Warning: warning})
}

// dodItemsFromText converts plain strings into unchecked DoD items
func dodItemsFromText(texts []string) []models.DoDItem {
	items := make([]models.DoDItem, 0, len(texts))
	for _, text := range texts {
		text = validation.SanitizeText(text)
		if text == "" {
			continue
		}
		items = append(items, models.DoDItem{Text: text})
	}
	return items
}

// mergeDoDItems replaces the DoD list, preserving completion flags for
// items whose text is unchanged
func mergeDoDItems(existing []models.DoDItem, texts []string) []models.DoDItem {
	completed := make(map[string]bool, len(existing))
	for _, item := range existing {
		if item.Completed {
			completed[item.Text] = true
		}
	}
	items := make([]models.DoDItem, 0, len(texts))
	for _, text := range texts {
		text = validation.SanitizeText(text)
		if text == "" {
			continue
		}
		items = append(items, models.DoDItem{Text: text, Completed: completed[text]})
	}
	return items
}

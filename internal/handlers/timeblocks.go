package handlers

import (
	"net/http"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/services/scheduler"
	"github.com/benmartin/gtdflow/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TimeBlockHandler handles timebox scheduling requests
type TimeBlockHandler struct {
	timeblocks database.TimeBlockRepositoryInterface
	scheduler  *scheduler.Service
}

// NewTimeBlockHandler creates a new timeblock handler
func NewTimeBlockHandler(timeblocks database.TimeBlockRepositoryInterface, sched *scheduler.Service) *TimeBlockHandler {
	return &TimeBlockHandler{timeblocks: timeblocks, scheduler: sched}
}

// RegisterRoutes registers timeblock routes on the given router
// The router should already have the /timeblocks prefix
func (h *TimeBlockHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBlocks).Methods("GET")
	r.HandleFunc("", h.CreateBlock).Methods("POST")
	r.HandleFunc("/{id}", h.GetBlock).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateBlock).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteBlock).Methods("DELETE")
	r.HandleFunc("/{id}/start", h.StartBlock).Methods("POST")
	r.HandleFunc("/{id}/complete", h.CompleteBlock).Methods("POST")
	r.HandleFunc("/{id}/abandon", h.AbandonBlock).Methods("POST")
	r.HandleFunc("/{id}/extend", h.ExtendBlock).Methods("POST")
	r.HandleFunc("/{id}/bring-forward", h.BringForward).Methods("POST")
}

// CreateBlockRequest schedules a task into a timebox
type CreateBlockRequest struct {
	TaskID          uuid.UUID `json:"task_id" validate:"required"`
	ScheduledFor    time.Time `json:"scheduled_for" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,block_duration"`
}

// UpdateBlockRequest moves or resizes an existing block
type UpdateBlockRequest struct {
	ScheduledFor    time.Time `json:"scheduled_for" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,block_duration"`
}

// CompleteBlockRequest finishes a block, optionally completing the task
type CompleteBlockRequest struct {
	ActualMinutes *int `json:"actual_minutes,omitempty"`
	CompleteTask  bool `json:"complete_task,omitempty"`
	Force         bool `json:"force,omitempty"`
}

// AbandonBlockRequest abandons a block with a required reason
type AbandonBlockRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000"`
}

// ExtendBlockRequest lengthens an in-progress block
type ExtendBlockRequest struct {
	Minutes int `json:"minutes" validate:"required,min=1,max=480"`
}

// ExtendBlockResponse reports how many later blocks were pushed back
type ExtendBlockResponse struct {
	ShiftedBlocks int `json:"shifted_blocks"`
}

// ListBlocks lists blocks, restricted to one day when ?day=YYYY-MM-DD is
// given
func (h *TimeBlockHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if day := r.URL.Query().Get("day"); day != "" {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid day, expected YYYY-MM-DD")
			return
		}
		blocks, err := h.scheduler.DaySchedule(ctx, parsed)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve schedule")
			return
		}
		respondJSON(w, http.StatusOK, blocks)
		return
	}

	blocks, err := h.timeblocks.List(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve blocks")
		return
	}
	respondJSON(w, http.StatusOK, blocks)
}

// CreateBlock schedules a task into a new timebox
func (h *TimeBlockHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	result, block, err := h.scheduler.CreateBlock(r.Context(), req.TaskID, req.ScheduledFor, req.DurationMinutes)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	respondJSON(w, http.StatusCreated, block)
}

// GetBlock retrieves a block by ID
func (h *TimeBlockHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	block, err := h.timeblocks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}

	respondJSON(w, http.StatusOK, block)
}

// UpdateBlock moves or resizes a block
func (h *TimeBlockHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req UpdateBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	result, err := h.scheduler.UpdateBlock(r.Context(), id, req.ScheduledFor, req.DurationMinutes)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithBlock(w, r, id)
}

// DeleteBlock unschedules a block, returning the task to its bucket
func (h *TimeBlockHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.scheduler.DeleteBlock(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StartBlock begins focused execution of a block
func (h *TimeBlockHandler) StartBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.scheduler.StartBlock(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithBlock(w, r, id)
}

// CompleteBlock finishes a block. With complete_task the owning task is
// marked DONE, subject to its definition of done.
func (h *TimeBlockHandler) CompleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req CompleteBlockRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	result, err := h.scheduler.CompleteBlock(r.Context(), id, req.ActualMinutes, req.CompleteTask, req.Force)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithBlock(w, r, id)
}

// AbandonBlock abandons a block with a reason, returning the task to its
// bucket
func (h *TimeBlockHandler) AbandonBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req AbandonBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	result, err := h.scheduler.AbandonBlock(r.Context(), id, validation.SanitizeText(req.Reason))
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}
	if !result.Success {
		respondRuleFailure(w, result.Error, result.Errors)
		return
	}

	h.respondWithBlock(w, r, id)
}

// ExtendBlock lengthens a block, pushing later same-day blocks back
func (h *TimeBlockHandler) ExtendBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req ExtendBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	shifted, err := h.scheduler.ExtendBlock(r.Context(), id, req.Minutes)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ExtendBlockResponse{ShiftedBlocks: shifted})
}

// BringForward pulls the next scheduled block earlier after this one
// finished ahead of time
func (h *TimeBlockHandler) BringForward(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	result, err := h.scheduler.BringNextForward(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondWithBlock reloads the block and returns it
func (h *TimeBlockHandler) respondWithBlock(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	block, err := h.timeblocks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reload block")
		return
	}
	respondJSON(w, http.StatusOK, block)
}

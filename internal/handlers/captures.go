package handlers

import (
	"net/http"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/rules"
	"github.com/benmartin/gtdflow/internal/services/workflow"
	"github.com/benmartin/gtdflow/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CaptureHandler handles the capture inbox
type CaptureHandler struct {
	captures database.CaptureRepositoryInterface
	workflow *workflow.Service
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(captures database.CaptureRepositoryInterface, wf *workflow.Service) *CaptureHandler {
	return &CaptureHandler{captures: captures, workflow: wf}
}

// RegisterRoutes registers capture routes on the given router
// The router should already have the /captures prefix
func (h *CaptureHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCaptures).Methods("GET")
	r.HandleFunc("", h.CreateCaptures).Methods("POST")
	r.HandleFunc("/{id}", h.GetCapture).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteCapture).Methods("DELETE")
	r.HandleFunc("/{id}/park", h.ParkCapture).Methods("POST")
	r.HandleFunc("/{id}/promote", h.PromoteCapture).Methods("POST")
}

// CreateCapturesRequest is a raw idea dump. Text may hold multiple lines;
// each non-blank line becomes its own capture item.
type CreateCapturesRequest struct {
	Text   string `json:"text" validate:"required,min=1,max=50000"`
	Source string `json:"source,omitempty" validate:"max=100"`
}

// PromoteCaptureRequest clarifies a capture into a task. Title defaults to
// the capture's raw text when omitted.
type PromoteCaptureRequest struct {
	Title           string     `json:"title,omitempty" validate:"max=500"`
	DomainAreaID    *uuid.UUID `json:"domain_area_id,omitempty"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`
	DoDItems        []string   `json:"dod_items,omitempty" validate:"max=3"`
	NextAction      string     `json:"next_action,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Notes           string     `json:"notes,omitempty" validate:"max=10000"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Urgency         int        `json:"urgency,omitempty" validate:"min=0,max=5"`
	Impact          int        `json:"impact,omitempty" validate:"min=0,max=5"`
	Effort          int        `json:"effort,omitempty" validate:"min=0,max=5"`
	EnergyFit       string     `json:"energy_fit,omitempty" validate:"energy_level"`
	Tags            []string   `json:"tags,omitempty"`
	Contexts        []string   `json:"contexts,omitempty"`
}

// ListCaptures lists capture items, optionally filtered by status
func (h *CaptureHandler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status *models.CaptureStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateCaptureStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		sEnum := models.CaptureStatus(s)
		status = &sEnum
	}

	items, err := h.captures.List(ctx, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve captures")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// CreateCaptures records a raw idea dump as one or more capture items
func (h *CaptureHandler) CreateCaptures(w http.ResponseWriter, r *http.Request) {
	var req CreateCapturesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	source := validation.SanitizeText(req.Source)
	if source == "" {
		source = "api"
	}

	texts := rules.ParseCaptureBatch(req.Text)
	items := make([]*models.CaptureItem, 0, len(texts))
	now := time.Now().UTC()
	for _, text := range texts {
		text = validation.SanitizeText(text)
		if text == "" {
			continue
		}
		items = append(items, &models.CaptureItem{
			ID:         uuid.New(),
			RawText:    text,
			Status:     models.CaptureStatusUnprocessed,
			Source:     source,
			CapturedAt: now,
		})
	}
	if len(items) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "No capturable text found")
		return
	}

	if err := h.captures.CreateBatch(r.Context(), items); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create captures")
		return
	}

	respondJSON(w, http.StatusCreated, items)
}

// GetCapture retrieves a capture item by ID
func (h *CaptureHandler) GetCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	item, err := h.captures.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Capture not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// DeleteCapture soft-deletes an unprocessed or parked capture item
func (h *CaptureHandler) DeleteCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := h.captures.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Capture not found")
		return
	}
	if !rules.CanDeleteCapture(item.Status) {
		respondRuleFailure(w, "Capture cannot be deleted", []string{"Only UNPROCESSED or PARKED captures can be deleted"})
		return
	}

	if err := h.captures.UpdateStatus(ctx, id, models.CaptureStatusDeleted); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete capture")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ParkCapture parks an unprocessed capture item for later review
func (h *CaptureHandler) ParkCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := h.captures.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Capture not found")
		return
	}
	if !rules.CanParkCapture(item.Status) {
		respondRuleFailure(w, "Capture cannot be parked", []string{"Only UNPROCESSED captures can be parked"})
		return
	}

	if err := h.captures.UpdateStatus(ctx, id, models.CaptureStatusParked); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to park capture")
		return
	}

	item.Status = models.CaptureStatusParked
	respondJSON(w, http.StatusOK, item)
}

// PromoteCapture clarifies a capture item into a task and marks the
// capture PROCESSED. The raw text stays on the capture untouched.
func (h *CaptureHandler) PromoteCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req PromoteCaptureRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
		if !validateStruct(w, req) {
			return
		}
	}

	ctx := r.Context()
	item, err := h.captures.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Capture not found")
		return
	}
	if item.Status == models.CaptureStatusProcessed || item.Status == models.CaptureStatusDeleted {
		respondRuleFailure(w, "Capture cannot be promoted", []string{"Capture has already been processed or deleted"})
		return
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		title = item.RawText
	}
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}

	originID := item.ID
	task := &models.Task{
		ID:              uuid.New(),
		Title:           title,
		DomainAreaID:    req.DomainAreaID,
		ProjectID:       req.ProjectID,
		DoDItems:        dodItemsFromText(req.DoDItems),
		NextAction:      validation.SanitizeText(req.NextAction),
		DurationMinutes: req.DurationMinutes,
		Notes:           validation.SanitizeText(req.Notes),
		DueAt:           req.DueAt,
		Urgency:         req.Urgency,
		Impact:          req.Impact,
		Effort:          req.Effort,
		EnergyFit:       models.EnergyLevel(req.EnergyFit),
		Tags:            req.Tags,
		Contexts:        req.Contexts,
		OriginCaptureID: &originID,
	}

	if err := h.workflow.CreateTask(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	if err := h.captures.UpdateStatus(ctx, id, models.CaptureStatusProcessed); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Task created but capture status update failed")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/benmartin/gtdflow/internal/queue"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/benmartin/gtdflow/internal/services/prioritizer"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// prioritizeService is the slice of the prioritizer the handler needs
type prioritizeService interface {
	Run(ctx context.Context) (*prioritizer.RunResult, error)
	ScoreSingle(ctx context.Context, taskID uuid.UUID) (*ai.PriorityScore, error)
	ProfileSummary(ctx context.Context) (string, error)
}

// AIHandler handles AI-assisted prioritization requests
type AIHandler struct {
	prioritizer prioritizeService
	provider    ai.ScoringProvider
	jobQueue    queue.JobQueue
}

// NewAIHandler creates a new AI handler. jobQueue may be nil, in which
// case bulk runs execute synchronously.
func NewAIHandler(p prioritizeService, provider ai.ScoringProvider, jobQueue queue.JobQueue) *AIHandler {
	return &AIHandler{prioritizer: p, provider: provider, jobQueue: jobQueue}
}

// RegisterRoutes registers AI routes on the given router
// The router should already have the /ai prefix
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/prioritize", h.Prioritize).Methods("POST")
	r.HandleFunc("/score/{id}", h.ScoreTask).Methods("POST")
	r.HandleFunc("/profile-summary", h.RegenerateSummary).Methods("POST")
	r.HandleFunc("/test", h.TestConnection).Methods("GET")
}

// enqueuedResponse acknowledges an accepted background job
type enqueuedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Prioritize runs a bulk re-prioritization. By default the run is queued
// and a 202 returned; ?sync=true executes inline and returns the result.
func (h *AIHandler) Prioritize(w http.ResponseWriter, r *http.Request) {
	sync := r.URL.Query().Get("sync") == "true"

	if !sync && h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeBulkPrioritize, nil)
		if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to enqueue prioritization job")
			return
		}
		respondJSON(w, http.StatusAccepted, enqueuedResponse{JobID: job.ID.String(), Status: "queued"})
		return
	}

	result, err := h.prioritizer.Run(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Prioritization run failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ScoreTask scores a single task against the user's goals without moving
// it between buckets
func (h *AIHandler) ScoreTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	score, err := h.prioritizer.ScoreSingle(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Scoring failed")
		return
	}

	respondJSON(w, http.StatusOK, score)
}

// RegenerateSummary refreshes the condensed profile summary used in
// scoring prompts
func (h *AIHandler) RegenerateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.prioritizer.ProfileSummary(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Summary generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// TestConnection verifies the scoring provider is reachable
func (h *AIHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "No scoring provider configured")
		return
	}

	if err := h.provider.TestConnection(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Provider connection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

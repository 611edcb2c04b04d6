package handlers

import (
	"net/http"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RefHandler handles domain areas and projects
type RefHandler struct {
	domainAreas database.DomainAreaRepositoryInterface
	projects    database.ProjectRepositoryInterface
	tasks       database.TaskRepositoryInterface
}

// NewRefHandler creates a new reference data handler
func NewRefHandler(domainAreas database.DomainAreaRepositoryInterface, projects database.ProjectRepositoryInterface, tasks database.TaskRepositoryInterface) *RefHandler {
	return &RefHandler{domainAreas: domainAreas, projects: projects, tasks: tasks}
}

// RegisterDomainAreaRoutes registers domain area routes on the given router
// The router should already have the /domain-areas prefix
func (h *RefHandler) RegisterDomainAreaRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListDomainAreas).Methods("GET")
	r.HandleFunc("", h.CreateDomainArea).Methods("POST")
	r.HandleFunc("/reorder", h.ReorderDomainAreas).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateDomainArea).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteDomainArea).Methods("DELETE")
}

// RegisterProjectRoutes registers project routes on the given router
// The router should already have the /projects prefix
func (h *RefHandler) RegisterProjectRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListProjects).Methods("GET")
	r.HandleFunc("", h.CreateProject).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateProject).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteProject).Methods("DELETE")
}

// CreateRefRequest creates a named domain area or project
type CreateRefRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// UpdateRefRequest renames or archives a domain area or project
type UpdateRefRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ReorderRequest sets the display order of all domain areas
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// ListDomainAreas lists domain areas. Archived areas are included only
// with ?include_inactive=true.
func (h *RefHandler) ListDomainAreas(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	areas, err := h.domainAreas.List(r.Context(), includeInactive)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve domain areas")
		return
	}

	respondJSON(w, http.StatusOK, areas)
}

// CreateDomainArea creates a domain area
func (h *RefHandler) CreateDomainArea(w http.ResponseWriter, r *http.Request) {
	var req CreateRefRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	area := &models.DomainArea{
		ID:       uuid.New(),
		Name:     validation.SanitizeText(req.Name),
		IsActive: true,
	}
	if area.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	if err := h.domainAreas.Create(r.Context(), area); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create domain area")
		return
	}

	respondJSON(w, http.StatusCreated, area)
}

// UpdateDomainArea renames or archives a domain area
func (h *RefHandler) UpdateDomainArea(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRefRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	area, err := h.domainAreas.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Domain area not found")
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid name")
			return
		}
		area.Name = name
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if err := h.domainAreas.Update(ctx, area); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update domain area")
		return
	}

	respondJSON(w, http.StatusOK, area)
}

// ReorderDomainAreas sets the sort order of domain areas to match the
// given ID list
func (h *RefHandler) ReorderDomainAreas(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	ctx := r.Context()
	if err := h.domainAreas.Reorder(ctx, req.IDs); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	areas, err := h.domainAreas.List(ctx, true)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve domain areas")
		return
	}

	respondJSON(w, http.StatusOK, areas)
}

// DeleteDomainArea deletes a domain area no task references. Referenced
// areas return 409; archive them instead.
func (h *RefHandler) DeleteDomainArea(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.domainAreas.GetByID(ctx, id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Domain area not found")
		return
	}

	count, err := h.tasks.CountByDomainArea(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check domain area usage")
		return
	}
	if count > 0 {
		respondJSONError(w, http.StatusConflict, "Conflict", "Domain area is referenced by tasks; archive it instead")
		return
	}

	if err := h.domainAreas.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete domain area")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListProjects lists projects. Archived projects are included only with
// ?include_inactive=true.
func (h *RefHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	projects, err := h.projects.List(r.Context(), includeInactive)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve projects")
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a project
func (h *RefHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateRefRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	project := &models.Project{
		ID:       uuid.New(),
		Name:     validation.SanitizeText(req.Name),
		IsActive: true,
	}
	if project.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// UpdateProject renames or archives a project
func (h *RefHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRefRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	project, err := h.projects.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Project not found")
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid name")
			return
		}
		project.Name = name
	}
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}

	if err := h.projects.Update(ctx, project); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project no task references. Referenced projects
// return 409; archive them instead.
func (h *RefHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDVar(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.projects.GetByID(ctx, id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Project not found")
		return
	}

	count, err := h.tasks.CountByProject(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check project usage")
		return
	}
	if count > 0 {
		respondJSONError(w, http.StatusConflict, "Conflict", "Project is referenced by tasks; archive it instead")
		return
	}

	if err := h.projects.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete project")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/validation"
)

// ProfileHandler handles the singleton user profile
type ProfileHandler struct {
	profiles database.UserProfileRepositoryInterface
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles database.UserProfileRepositoryInterface) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// MaxProfileSectionLength caps each free-text profile section
const MaxProfileSectionLength = 20000

// UpdateProfileRequest patches profile sections. Only provided fields
// change; the derived summary is never writable here.
type UpdateProfileRequest struct {
	LongTermGoals      *string `json:"long_term_goals,omitempty"`
	MediumTermGoals    *string `json:"medium_term_goals,omitempty"`
	ShortTermFocus     *string `json:"short_term_focus,omitempty"`
	BusinessPlan       *string `json:"business_plan,omitempty"`
	LifePlan           *string `json:"life_plan,omitempty"`
	PriorityPrinciples *string `json:"priority_principles,omitempty"`
	Preferences        *string `json:"preferences,omitempty"`
}

// GetProfile returns the profile, creating it lazily on first read
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile patches profile sections. Any edit marks the derived
// summary stale so the next prioritization run regenerates it.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	profile, err := h.profiles.Get(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	fields := []struct {
		src *string
		dst *string
	}{
		{req.LongTermGoals, &profile.LongTermGoals},
		{req.MediumTermGoals, &profile.MediumTermGoals},
		{req.ShortTermFocus, &profile.ShortTermFocus},
		{req.BusinessPlan, &profile.BusinessPlan},
		{req.LifePlan, &profile.LifePlan},
		{req.PriorityPrinciples, &profile.PriorityPrinciples},
		{req.Preferences, &profile.Preferences},
	}
	changed := false
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		text := validation.SanitizeText(*f.src)
		if len(text) > MaxProfileSectionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Profile section exceeds maximum length")
			return
		}
		*f.dst = text
		changed = true
	}

	if changed {
		profile.ProfileUpdatedAt = time.Now().UTC()
		if err := h.profiles.Update(ctx, profile); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
			return
		}
	}

	respondJSON(w, http.StatusOK, profile)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// handlerProfileRepo is an in-memory profile repository for handler tests
type handlerProfileRepo struct {
	profile *models.UserProfile
	updates int
}

func (m *handlerProfileRepo) Get(_ context.Context) (*models.UserProfile, error) {
	if m.profile == nil {
		m.profile = &models.UserProfile{ID: uuid.New(), ProfileUpdatedAt: time.Now().Add(-time.Hour)}
	}
	return m.profile, nil
}

func (m *handlerProfileRepo) Update(_ context.Context, profile *models.UserProfile) error {
	m.profile = profile
	m.updates++
	return nil
}

func (m *handlerProfileRepo) UpdateSummary(_ context.Context, _ uuid.UUID, summary string) error {
	m.profile.Summary = summary
	return nil
}

func TestProfileHandler_GetCreatesLazily(t *testing.T) {
	t.Parallel()

	handler := NewProfileHandler(&handlerProfileRepo{})

	w := httptest.NewRecorder()
	handler.GetProfile(w, newTestRequest(http.MethodGet, "/profile", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data models.UserProfile `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Data.ID == uuid.Nil {
		t.Error("Expected a profile to be created on first read")
	}
}

func TestProfileHandler_UpdatePatchesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	repo := &handlerProfileRepo{profile: &models.UserProfile{
		ID:               uuid.New(),
		LongTermGoals:    "ship the book",
		ShortTermFocus:   "chapter three",
		ProfileUpdatedAt: time.Now().Add(-time.Hour),
	}}
	handler := NewProfileHandler(repo)

	before := repo.profile.ProfileUpdatedAt
	focus := "chapter four"

	w := httptest.NewRecorder()
	handler.UpdateProfile(w, newTestRequest(http.MethodPatch, "/profile", UpdateProfileRequest{ShortTermFocus: &focus}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if repo.profile.ShortTermFocus != "chapter four" {
		t.Errorf("Expected focus updated, got %q", repo.profile.ShortTermFocus)
	}
	if repo.profile.LongTermGoals != "ship the book" {
		t.Errorf("Unprovided field must not change, got %q", repo.profile.LongTermGoals)
	}
	if !repo.profile.ProfileUpdatedAt.After(before) {
		t.Error("Expected edit timestamp to advance so the summary goes stale")
	}
	if repo.updates != 1 {
		t.Errorf("Expected 1 update, got %d", repo.updates)
	}
}

func TestProfileHandler_UpdateWithNoFieldsIsNoOp(t *testing.T) {
	t.Parallel()

	repo := &handlerProfileRepo{profile: &models.UserProfile{
		ID:               uuid.New(),
		ProfileUpdatedAt: time.Now().Add(-time.Hour),
	}}
	handler := NewProfileHandler(repo)

	w := httptest.NewRecorder()
	handler.UpdateProfile(w, newTestRequest(http.MethodPatch, "/profile", map[string]any{}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.updates != 0 {
		t.Errorf("Expected no repository update, got %d", repo.updates)
	}
}

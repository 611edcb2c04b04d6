package models

import (
	"testing"
	"time"
)

func TestUserProfile_SummaryStale(t *testing.T) {
	t.Parallel()

	older := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	tests := []struct {
		name    string
		profile UserProfile
		want    bool
	}{
		{"no summary", UserProfile{ProfileUpdatedAt: older}, true},
		{
			"summary missing timestamp",
			UserProfile{Summary: "s", ProfileUpdatedAt: older},
			true,
		},
		{
			"profile edited after summary",
			UserProfile{Summary: "s", SummaryGeneratedAt: &older, ProfileUpdatedAt: newer},
			true,
		},
		{
			"summary fresh",
			UserProfile{Summary: "s", SummaryGeneratedAt: &newer, ProfileUpdatedAt: older},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.profile.SummaryStale(); got != tt.want {
				t.Errorf("SummaryStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserProfile_HasContent(t *testing.T) {
	t.Parallel()

	empty := UserProfile{}
	if empty.HasContent() {
		t.Error("expected empty profile to have no content")
	}

	filled := UserProfile{PriorityPrinciples: "ship daily"}
	if !filled.HasContent() {
		t.Error("expected filled profile to have content")
	}
}

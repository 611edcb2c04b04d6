package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the singleton record holding the user's goals and
// prioritization context. It is created lazily on first read.
type UserProfile struct {
	ID                 uuid.UUID  `json:"id"`
	LongTermGoals      string     `json:"long_term_goals,omitempty"`
	MediumTermGoals    string     `json:"medium_term_goals,omitempty"`
	ShortTermFocus     string     `json:"short_term_focus,omitempty"`
	BusinessPlan       string     `json:"business_plan,omitempty"`
	LifePlan           string     `json:"life_plan,omitempty"`
	PriorityPrinciples string     `json:"priority_principles,omitempty"`
	Preferences        string     `json:"preferences,omitempty"`
	Summary            string     `json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`
	ProfileUpdatedAt   time.Time  `json:"profile_updated_at"`
}

// SummaryStale reports whether the derived summary no longer reflects the
// profile: either no summary exists yet, or the profile was edited after
// the summary was generated.
func (p *UserProfile) SummaryStale() bool {
	if p.Summary == "" || p.SummaryGeneratedAt == nil {
		return true
	}
	return p.ProfileUpdatedAt.After(*p.SummaryGeneratedAt)
}

// HasContent reports whether any profile section has been filled in
func (p *UserProfile) HasContent() bool {
	return p.LongTermGoals != "" ||
		p.MediumTermGoals != "" ||
		p.ShortTermFocus != "" ||
		p.BusinessPlan != "" ||
		p.LifePlan != "" ||
		p.PriorityPrinciples != "" ||
		p.Preferences != ""
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeBlock is a scheduled execution slot for a task. A task may
// accumulate several blocks over its lifetime; history is preserved.
type TimeBlock struct {
	ID              uuid.UUID `json:"id"`
	TaskID          uuid.UUID `json:"task_id"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Completed       bool      `json:"completed"`
	ActualMinutes   *int      `json:"actual_minutes,omitempty"`
	AbandonReason   string    `json:"abandon_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// End returns the scheduled end instant of the block
func (b *TimeBlock) End() time.Time {
	return b.ScheduledFor.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Active reports whether the block is still pending: neither completed
// nor abandoned. Completion and abandonment are mutually exclusive
// terminal outcomes.
func (b *TimeBlock) Active() bool {
	return !b.Completed && b.AbandonReason == ""
}

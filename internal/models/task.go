package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents where a task is in its lifecycle
type TaskStatus string

const (
	TaskStatusDraft      TaskStatus = "DRAFT"
	TaskStatusReady      TaskStatus = "READY"
	TaskStatusNow        TaskStatus = "NOW"
	TaskStatusNext       TaskStatus = "NEXT"
	TaskStatusLater      TaskStatus = "LATER"
	TaskStatusScheduled  TaskStatus = "SCHEDULED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusAbandoned  TaskStatus = "ABANDONED"
)

// PriorityBucket represents a WIP-limited priority bucket
type PriorityBucket string

const (
	BucketNow   PriorityBucket = "NOW"
	BucketNext  PriorityBucket = "NEXT"
	BucketLater PriorityBucket = "LATER"
)

// StatusForBucket returns the task status that corresponds to a bucket.
// Status and bucket are kept in lockstep for NOW/NEXT/LATER; every
// bucket-moving operation must set both from the same value.
func StatusForBucket(bucket PriorityBucket) TaskStatus {
	return TaskStatus(bucket)
}

// EnergyLevel represents the energy a task is best suited for
type EnergyLevel string

const (
	EnergyHigh   EnergyLevel = "HIGH"
	EnergyMedium EnergyLevel = "MEDIUM"
	EnergyLow    EnergyLevel = "LOW"
)

// DoDItem is one definition-of-done entry with its completion flag.
// Text and completion live in the same record so they cannot drift apart
// the way index-paired arrays can.
type DoDItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is the central entity of the workflow
type Task struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	DomainAreaID     *uuid.UUID      `json:"domain_area_id,omitempty"`
	ProjectID        *uuid.UUID      `json:"project_id,omitempty"`
	Status           TaskStatus      `json:"status"`
	Bucket           *PriorityBucket `json:"priority_bucket,omitempty"`
	DoDItems         []DoDItem       `json:"dod_items"`
	NextAction       string          `json:"next_action,omitempty"`
	DurationMinutes  int             `json:"duration_minutes,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	DueAt            *time.Time      `json:"due_at,omitempty"`
	Urgency          int             `json:"urgency,omitempty"`
	Impact           int             `json:"impact,omitempty"`
	Effort           int             `json:"effort,omitempty"`
	EnergyFit        EnergyLevel     `json:"energy_fit,omitempty"`
	Tags             []string        `json:"tags"`
	Contexts         []string        `json:"contexts"`
	OriginCaptureID  *uuid.UUID      `json:"origin_capture_id,omitempty"`
	FollowOnOfTaskID *uuid.UUID      `json:"follow_on_of_task_id,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	ForceCompleted   bool            `json:"force_completed"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AllDoDComplete reports whether every DoD item is checked off.
// An empty DoD list is never considered complete; force-complete is the
// only path to DONE for such a task.
func (t *Task) AllDoDComplete() bool {
	if len(t.DoDItems) == 0 {
		return false
	}
	for _, item := range t.DoDItems {
		if !item.Completed {
			return false
		}
	}
	return true
}

// InBucket reports whether the task currently sits in a priority bucket
func (t *Task) InBucket() bool {
	switch t.Status {
	case TaskStatusNow, TaskStatusNext, TaskStatusLater:
		return true
	default:
		return false
	}
}

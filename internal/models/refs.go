package models

import (
	"time"

	"github.com/google/uuid"
)

// DomainArea is a life/work area tasks belong to. Deletable only when no
// task references it; otherwise it must be archived.
type DomainArea struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project groups related tasks. Same delete-vs-archive rule as DomainArea.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippedOutput records a concrete deliverable produced by a task
type ShippedOutput struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	Description string    `json:"description"`
	ShippedAt   time.Time `json:"shipped_at"`
}

// AuditEvent records a state change made to a task
type AuditEvent struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

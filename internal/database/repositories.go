package database

import (
	"context"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, status *models.TaskStatus) ([]*models.Task, error)
	ListByStatuses(ctx context.Context, statuses ...models.TaskStatus) ([]*models.Task, error)
	CountByStatus(ctx context.Context, status models.TaskStatus) (int, error)
	Update(ctx context.Context, task *models.Task) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	GetCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Task, error)
	AddShippedOutput(ctx context.Context, output *models.ShippedOutput) error
	ListShippedOutputs(ctx context.Context, taskID uuid.UUID) ([]*models.ShippedOutput, error)
	AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, taskID uuid.UUID) ([]*models.AuditEvent, error)
	CountByDomainArea(ctx context.Context, domainAreaID uuid.UUID) (int, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)
}

// TimeBlockRepositoryInterface defines the interface for timeblock repository operations
type TimeBlockRepositoryInterface interface {
	Create(ctx context.Context, block *models.TimeBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeBlock, error)
	List(ctx context.Context) ([]*models.TimeBlock, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]*models.TimeBlock, error)
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]*models.TimeBlock, error)
	Update(ctx context.Context, block *models.TimeBlock) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteForTask(ctx context.Context, taskID uuid.UUID) error
}

// CaptureRepositoryInterface defines the interface for capture repository operations
type CaptureRepositoryInterface interface {
	Create(ctx context.Context, item *models.CaptureItem) error
	CreateBatch(ctx context.Context, items []*models.CaptureItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CaptureItem, error)
	List(ctx context.Context, status *models.CaptureStatus) ([]*models.CaptureItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaptureStatus) error
}

// UserProfileRepositoryInterface defines the interface for profile repository operations
type UserProfileRepositoryInterface interface {
	Get(ctx context.Context) (*models.UserProfile, error)
	Update(ctx context.Context, profile *models.UserProfile) error
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) error
}

// DomainAreaRepositoryInterface defines the interface for domain area repository operations
type DomainAreaRepositoryInterface interface {
	Create(ctx context.Context, area *models.DomainArea) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DomainArea, error)
	List(ctx context.Context, includeInactive bool) ([]*models.DomainArea, error)
	Update(ctx context.Context, area *models.DomainArea) error
	Reorder(ctx context.Context, orderedIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectRepositoryInterface defines the interface for project repository operations
type ProjectRepositoryInterface interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface        = (*TaskRepository)(nil)
	_ TimeBlockRepositoryInterface   = (*TimeBlockRepository)(nil)
	_ CaptureRepositoryInterface     = (*CaptureRepository)(nil)
	_ UserProfileRepositoryInterface = (*UserProfileRepository)(nil)
	_ DomainAreaRepositoryInterface  = (*DomainAreaRepository)(nil)
	_ ProjectRepositoryInterface     = (*ProjectRepository)(nil)
)

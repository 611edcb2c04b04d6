// Package workflow implements the task lifecycle state machine: readiness
// checks, WIP-limited bucket moves, completion, undo, abandonment, and
// retention-based purge.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetentionWindow is how long DONE tasks are kept before the purge sweep
// removes them
const RetentionWindow = 48 * time.Hour

// Result is the structured outcome of a lifecycle operation. Capacity
// overrides surface as a warning on success; validation failures carry the
// full violation list.
type Result struct {
	Success bool     `json:"success"`
	Warning string   `json:"warning,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Service drives task lifecycle transitions
type Service struct {
	tasks      database.TaskRepositoryInterface
	timeblocks database.TimeBlockRepositoryInterface
	logger     *zap.Logger
}

// NewService creates a new workflow service
func NewService(tasks database.TaskRepositoryInterface, timeblocks database.TimeBlockRepositoryInterface, logger *zap.Logger) *Service {
	return &Service{
		tasks:      tasks,
		timeblocks: timeblocks,
		logger:     logger,
	}
}

// CreateTask creates a task, entering READY directly when it already has
// enough structure, DRAFT otherwise
func (s *Service) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	if rules.CanMarkTaskReady(readinessInput(task)).Valid {
		task.Status = models.TaskStatusReady
	} else {
		task.Status = models.TaskStatusDraft
	}
	task.Bucket = nil

	if err := s.tasks.Create(ctx, task); err != nil {
		return err
	}

	s.audit(ctx, task.ID, "task_created", string(task.Status))
	return nil
}

// MarkReady validates readiness and moves the task to READY, clearing any
// bucket. All violated constraints are reported together.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID) (*Result, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	validation := rules.CanMarkTaskReady(readinessInput(task))
	if !validation.Valid {
		return &Result{Success: false, Errors: validation.Errors}, nil
	}

	task.Status = models.TaskStatusReady
	task.Bucket = nil
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit(ctx, task.ID, "task_ready", "")
	return &Result{Success: true}, nil
}

// MoveToNow moves a task into the NOW bucket. The 1-task WIP limit blocks
// the move unless override is set, in which case the result carries a
// warning instead.
func (s *Service) MoveToNow(ctx context.Context, id uuid.UUID, override bool) (*Result, error) {
	return s.moveToBucket(ctx, id, models.BucketNow, override)
}

// MoveToNext moves a task into the NEXT bucket, enforcing the 3-task WIP
// limit unless override is set
func (s *Service) MoveToNext(ctx context.Context, id uuid.UUID, override bool) (*Result, error) {
	return s.moveToBucket(ctx, id, models.BucketNext, override)
}

// MoveToLater moves a task into the unbounded LATER bucket
func (s *Service) MoveToLater(ctx context.Context, id uuid.UUID) (*Result, error) {
	return s.moveToBucket(ctx, id, models.BucketLater, false)
}

func (s *Service) moveToBucket(ctx context.Context, id uuid.UUID, bucket models.PriorityBucket, override bool) (*Result, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if check := rules.CanPrioritize(task.Status); !check.Valid {
		return &Result{Success: false, Error: check.Error}, nil
	}

	var warning string
	switch bucket {
	case models.BucketNow:
		count, err := s.tasks.CountByStatus(ctx, models.TaskStatusNow)
		if err != nil {
			return nil, err
		}
		if check := rules.CanMoveToNow(count); !check.Valid {
			if !override {
				return &Result{Success: false, Error: check.Error}, nil
			}
			warning = "NOW limit exceeded by override"
		}
	case models.BucketNext:
		count, err := s.tasks.CountByStatus(ctx, models.TaskStatusNext)
		if err != nil {
			return nil, err
		}
		if check := rules.CanMoveToNext(count); !check.Valid {
			if !override {
				return &Result{Success: false, Error: check.Error}, nil
			}
			warning = "NEXT limit exceeded by override"
		}
	}

	task.Status = models.StatusForBucket(bucket)
	task.Bucket = &bucket
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit(ctx, task.ID, "task_prioritized", string(bucket))
	if s.logger != nil && warning != "" {
		s.logger.Warn("wip_limit_overridden",
			zap.String("task_id", task.ID.String()),
			zap.String("bucket", string(bucket)),
		)
	}

	return &Result{Success: true, Warning: warning}, nil
}

// ToggleDoDItem flips the completion flag of one definition-of-done item
func (s *Service) ToggleDoDItem(ctx context.Context, id uuid.UUID, index int) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(task.DoDItems) {
		return nil, fmt.Errorf("DoD item index %d out of range", index)
	}

	task.DoDItems[index].Completed = !task.DoDItems[index].Completed
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Complete moves a task to DONE. Every DoD item must be checked off unless
// force is set; forced completion is flagged on the task for auditing.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, force bool) (*Result, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		return &Result{Success: false, Error: "Task is already completed"}, nil
	}

	if !force {
		if validation := rules.ValidateDoDCompletion(task.DoDItems); !validation.Valid {
			return &Result{Success: false, Errors: validation.Errors}, nil
		}
	}

	now := time.Now()
	task.Status = models.TaskStatusDone
	task.Bucket = nil
	task.CompletedAt = &now
	task.ForceCompleted = force
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	detail := ""
	if force {
		detail = "forced"
	}
	s.audit(ctx, task.ID, "task_completed", detail)

	return &Result{Success: true}, nil
}

// UndoCompletion is the one permitted exit from DONE: back to READY with
// the completion markers cleared
func (s *Service) UndoCompletion(ctx context.Context, id uuid.UUID) (*Result, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusDone {
		return &Result{Success: false, Error: "Only completed tasks can be un-completed"}, nil
	}

	task.Status = models.TaskStatusReady
	task.Bucket = nil
	task.CompletedAt = nil
	task.ForceCompleted = false
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit(ctx, task.ID, "task_completion_undone", "")
	return &Result{Success: true}, nil
}

// Abandon soft-terminates a task: its pending timeblocks are removed first
// so the schedule never holds slots for dead work
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (*Result, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusAbandoned {
		return &Result{Success: false, Error: "Task is already abandoned"}, nil
	}

	if err := s.timeblocks.DeleteForTask(ctx, task.ID); err != nil {
		return nil, err
	}

	task.Status = models.TaskStatusAbandoned
	task.Bucket = nil
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit(ctx, task.ID, "task_abandoned", "")
	return &Result{Success: true}, nil
}

// Delete hard-deletes a task and everything attached to it in one
// transaction
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tasks.DeleteCascade(ctx, id); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("task_deleted", zap.String("task_id", id.String()))
	}
	return nil
}

// PurgeOldCompleted removes DONE tasks past the retention window. Running
// it with nothing eligible is a no-op, so callers may invoke it
// opportunistically.
func (s *Service) PurgeOldCompleted(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-RetentionWindow)

	eligible, err := s.tasks.GetCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, task := range eligible {
		if err := s.tasks.DeleteCascade(ctx, task.ID); err != nil {
			return purged, fmt.Errorf("failed to purge task %s: %w", task.ID, err)
		}
		purged++
	}

	if s.logger != nil && purged > 0 {
		s.logger.Info("completed_tasks_purged", zap.Int("count", purged))
	}

	return purged, nil
}

// RecordShippedOutput attaches a deliverable record to a task
func (s *Service) RecordShippedOutput(ctx context.Context, taskID uuid.UUID, description string) (*models.ShippedOutput, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	output := &models.ShippedOutput{
		ID:          uuid.New(),
		TaskID:      taskID,
		Description: description,
		ShippedAt:   time.Now(),
	}
	if err := s.tasks.AddShippedOutput(ctx, output); err != nil {
		return nil, err
	}

	return output, nil
}

func (s *Service) audit(ctx context.Context, taskID uuid.UUID, event, detail string) {
	err := s.tasks.AppendAuditEvent(ctx, &models.AuditEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	if err != nil && s.logger != nil {
		// Audit is best-effort; the transition itself already committed
		s.logger.Warn("audit_event_failed",
			zap.String("task_id", taskID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func readinessInput(task *models.Task) rules.ReadinessInput {
	return rules.ReadinessInput{
		HasDomainArea:   task.DomainAreaID != nil,
		DoDItemCount:    len(task.DoDItems),
		NextAction:      task.NextAction,
		DurationMinutes: task.DurationMinutes,
	}
}

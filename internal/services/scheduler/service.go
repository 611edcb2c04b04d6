// Package scheduler implements the timebox engine: placing fixed-duration
// execution blocks on the day timeline, re-flowing blocks on extension, and
// pulling the next block forward when time frees up.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the structured outcome of a scheduling operation
type Result struct {
	Success bool     `json:"success"`
	Warning string   `json:"warning,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// BringForwardResult reports the outcome of pulling the next block earlier.
// Moved is false when no eligible block exists; that is not an error.
type BringForwardResult struct {
	Moved        bool      `json:"moved"`
	BlockID      uuid.UUID `json:"block_id,omitempty"`
	NewStart     time.Time `json:"new_start,omitempty"`
	MinutesSaved int       `json:"minutes_saved"`
}

// Service drives timebox scheduling
type Service struct {
	tasks      database.TaskRepositoryInterface
	timeblocks database.TimeBlockRepositoryInterface
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new scheduler service
func NewService(tasks database.TaskRepositoryInterface, timeblocks database.TimeBlockRepositoryInterface, logger *zap.Logger) *Service {
	return &Service{
		tasks:      tasks,
		timeblocks: timeblocks,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateBlock validates and places a new block, moving the owning task to
// SCHEDULED. The task's bucket is preserved so unscheduling can restore it.
func (s *Service) CreateBlock(ctx context.Context, taskID uuid.UUID, scheduledFor time.Time, durationMinutes int) (*Result, *models.TimeBlock, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.timeblocks.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	candidate := rules.BlockWindow{ScheduledFor: scheduledFor, DurationMinutes: durationMinutes}
	validation := rules.ValidateTimeBlock(candidate, activeWindows(existing), task.Status, false, s.now())
	if !validation.Valid {
		return &Result{Success: false, Errors: validation.Errors}, nil, nil
	}

	block := &models.TimeBlock{
		ID:              uuid.New(),
		TaskID:          taskID,
		ScheduledFor:    scheduledFor,
		DurationMinutes: durationMinutes,
	}
	if err := s.timeblocks.Create(ctx, block); err != nil {
		return nil, nil, err
	}

	task.Status = models.TaskStatusScheduled
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("timeblock_created",
			zap.String("block_id", block.ID.String()),
			zap.String("task_id", taskID.String()),
			zap.Time("scheduled_for", scheduledFor),
			zap.Int("duration_minutes", durationMinutes),
		)
	}

	return &Result{Success: true}, block, nil
}

// UpdateBlock moves or resizes an existing block. The no-past rule does not
// apply; a block already underway may need adjustment.
func (s *Service) UpdateBlock(ctx context.Context, blockID uuid.UUID, scheduledFor time.Time, durationMinutes int) (*Result, error) {
	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, block.TaskID)
	if err != nil {
		return nil, err
	}

	existing, err := s.timeblocks.List(ctx)
	if err != nil {
		return nil, err
	}

	// A task already SCHEDULED for this very block stays eligible
	status := task.Status
	if status == models.TaskStatusScheduled || status == models.TaskStatusInProgress {
		status = models.TaskStatusNow
	}

	candidate := rules.BlockWindow{ID: blockID, ScheduledFor: scheduledFor, DurationMinutes: durationMinutes}
	validation := rules.ValidateTimeBlock(candidate, activeWindows(existing), status, true, s.now())
	if !validation.Valid {
		return &Result{Success: false, Errors: validation.Errors}, nil
	}

	block.ScheduledFor = scheduledFor
	block.DurationMinutes = durationMinutes
	if err := s.timeblocks.Update(ctx, block); err != nil {
		return nil, err
	}

	return &Result{Success: true}, nil
}

// DeleteBlock removes a block and returns the owning task to its stored
// bucket, or READY when it has none
func (s *Service) DeleteBlock(ctx context.Context, blockID uuid.UUID) (*Result, error) {
	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}

	if err := s.timeblocks.Delete(ctx, blockID); err != nil {
		return nil, err
	}

	if err := s.returnTaskToBucket(ctx, block.TaskID); err != nil {
		return nil, err
	}

	return &Result{Success: true}, nil
}

// StartBlock marks the owning task as actively being worked
func (s *Service) StartBlock(ctx context.Context, blockID uuid.UUID) (*Result, error) {
	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if !block.Active() {
		return &Result{Success: false, Error: "TimeBlock is already completed or abandoned"}, nil
	}

	task, err := s.tasks.GetByID(ctx, block.TaskID)
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatusInProgress
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	return &Result{Success: true}, nil
}

// CompleteBlock finishes a block, recording time actually spent. When
// completeTask is set the owning task moves to DONE, subject to the DoD
// rule unless force is also set; otherwise the task returns to its bucket
// for further scheduling.
func (s *Service) CompleteBlock(ctx context.Context, blockID uuid.UUID, actualMinutes *int, completeTask, force bool) (*Result, error) {
	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if !block.Active() {
		return &Result{Success: false, Error: "TimeBlock is already completed or abandoned"}, nil
	}

	task, err := s.tasks.GetByID(ctx, block.TaskID)
	if err != nil {
		return nil, err
	}

	// Validate the task transition before touching the block so a DoD
	// rejection leaves everything untouched
	if completeTask && !force {
		if validation := rules.ValidateDoDCompletion(task.DoDItems); !validation.Valid {
			return &Result{Success: false, Errors: validation.Errors}, nil
		}
	}

	block.Completed = true
	block.ActualMinutes = actualMinutes
	if err := s.timeblocks.Update(ctx, block); err != nil {
		return nil, err
	}

	if completeTask {
		now := s.now()
		task.Status = models.TaskStatusDone
		task.Bucket = nil
		task.CompletedAt = &now
		task.ForceCompleted = force
		if err := s.tasks.Update(ctx, task); err != nil {
			return nil, err
		}
	} else if err := s.returnTaskToBucket(ctx, task.ID); err != nil {
		return nil, err
	}

	return &Result{Success: true}, nil
}

// AbandonBlock terminates a block with a reason and returns the task to
// its bucket. Abandonment and completion are mutually exclusive.
func (s *Service) AbandonBlock(ctx context.Context, blockID uuid.UUID, reason string) (*Result, error) {
	if reason == "" {
		return &Result{Success: false, Error: "Abandon reason is required"}, nil
	}

	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if !block.Active() {
		return &Result{Success: false, Error: "TimeBlock is already completed or abandoned"}, nil
	}

	block.AbandonReason = reason
	if err := s.timeblocks.Update(ctx, block); err != nil {
		return nil, err
	}

	if err := s.returnTaskToBucket(ctx, block.TaskID); err != nil {
		return nil, err
	}

	return &Result{Success: true}, nil
}

// ExtendBlock lengthens a block and pushes every same-day block that
// started at or after the block's original end by the same delta. Returns
// the number of blocks rescheduled.
func (s *Service) ExtendBlock(ctx context.Context, blockID uuid.UUID, deltaMinutes int) (int, error) {
	if deltaMinutes <= 0 {
		return 0, fmt.Errorf("extension must be a positive number of minutes")
	}

	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return 0, err
	}

	originalEnd := block.End()
	dayStart, dayEnd := dayBounds(block.ScheduledFor)

	sameDay, err := s.timeblocks.ListBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return 0, err
	}

	// Everything starting at or after the original end gets pushed,
	// including blocks immediately abutting it
	var toShift []*models.TimeBlock
	for _, other := range sameDay {
		if other.ID == block.ID {
			continue
		}
		if !other.ScheduledFor.Before(originalEnd) {
			toShift = append(toShift, other)
		}
	}
	sort.Slice(toShift, func(i, j int) bool {
		return toShift[i].ScheduledFor.Before(toShift[j].ScheduledFor)
	})

	block.DurationMinutes += deltaMinutes
	if err := s.timeblocks.Update(ctx, block); err != nil {
		return 0, err
	}

	delta := time.Duration(deltaMinutes) * time.Minute
	for _, other := range toShift {
		other.ScheduledFor = other.ScheduledFor.Add(delta)
		if err := s.timeblocks.Update(ctx, other); err != nil {
			return 0, fmt.Errorf("failed to shift block %s: %w", other.ID, err)
		}
	}

	if s.logger != nil {
		s.logger.Info("timeblock_extended",
			zap.String("block_id", block.ID.String()),
			zap.Int("delta_minutes", deltaMinutes),
			zap.Int("blocks_shifted", len(toShift)),
		)
	}

	return len(toShift), nil
}

// BringNextForward pulls the earliest same-day pending block after the
// reference block up to the freed slot: now when the reference is already
// completed, its scheduled end otherwise. Reports minutes saved; finding
// no eligible block is an empty result, not an error.
func (s *Service) BringNextForward(ctx context.Context, blockID uuid.UUID) (*BringForwardResult, error) {
	block, err := s.timeblocks.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}

	candidateStart := block.End()
	if block.Completed {
		candidateStart = s.now()
	}

	dayStart, dayEnd := dayBounds(block.ScheduledFor)
	sameDay, err := s.timeblocks.ListBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var next *models.TimeBlock
	for _, other := range sameDay {
		if other.ID == block.ID || !other.Active() {
			continue
		}
		if !other.ScheduledFor.After(candidateStart) {
			continue
		}
		if next == nil || other.ScheduledFor.Before(next.ScheduledFor) {
			next = other
		}
	}

	if next == nil {
		return &BringForwardResult{Moved: false}, nil
	}

	saved := int(next.ScheduledFor.Sub(candidateStart) / time.Minute)
	next.ScheduledFor = candidateStart
	if err := s.timeblocks.Update(ctx, next); err != nil {
		return nil, err
	}

	return &BringForwardResult{
		Moved:        true,
		BlockID:      next.ID,
		NewStart:     candidateStart,
		MinutesSaved: saved,
	}, nil
}

// DaySchedule lists the blocks scheduled on one calendar day
func (s *Service) DaySchedule(ctx context.Context, day time.Time) ([]*models.TimeBlock, error) {
	dayStart, dayEnd := dayBounds(day)
	return s.timeblocks.ListBetween(ctx, dayStart, dayEnd)
}

func (s *Service) returnTaskToBucket(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if task.Bucket != nil {
		task.Status = models.StatusForBucket(*task.Bucket)
	} else {
		task.Status = models.TaskStatusReady
	}

	return s.tasks.Update(ctx, task)
}

func activeWindows(blocks []*models.TimeBlock) []rules.BlockWindow {
	windows := make([]rules.BlockWindow, 0, len(blocks))
	for _, b := range blocks {
		if !b.Active() {
			continue
		}
		windows = append(windows, rules.BlockWindow{
			ID:              b.ID,
			ScheduledFor:    b.ScheduledFor,
			DurationMinutes: b.DurationMinutes,
		})
	}
	return windows
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

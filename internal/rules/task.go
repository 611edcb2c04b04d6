package rules

import (
	"strings"

	"github.com/benmartin/gtdflow/internal/models"
)

// WIP limits for the priority buckets
const (
	// MaxNowTasks is the maximum number of tasks allowed in NOW
	MaxNowTasks = 1
	// MaxNextTasks is the maximum number of tasks allowed in NEXT
	MaxNextTasks = 3
)

// Validation is the outcome of a rule that collects every violation rather
// than stopping at the first
type Validation struct {
	Valid  bool
	Errors []string
}

// Check is the outcome of a single-condition rule
type Check struct {
	Valid bool
	Error string
}

// ReadinessInput carries the fields the readiness rule inspects
type ReadinessInput struct {
	HasDomainArea   bool
	DoDItemCount    int
	NextAction      string
	DurationMinutes int
}

// CanMarkTaskReady checks whether a task has enough structure to leave
// DRAFT. All constraints are evaluated independently; the caller receives
// the full list of violations.
func CanMarkTaskReady(in ReadinessInput) Validation {
	var errs []string

	if !in.HasDomainArea {
		errs = append(errs, "Domain area is required")
	}
	if in.DoDItemCount == 0 {
		errs = append(errs, "At least one DoD item is required")
	}
	if in.DoDItemCount > 3 {
		errs = append(errs, "Maximum 3 DoD items allowed")
	}
	if strings.TrimSpace(in.NextAction) == "" {
		errs = append(errs, "Next action is required")
	}
	if in.DurationMinutes <= 0 {
		errs = append(errs, "Duration estimate is required")
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// CanMoveToNow checks the NOW WIP limit against the current NOW count
func CanMoveToNow(currentNowCount int) Check {
	if currentNowCount >= MaxNowTasks {
		return Check{
			Valid: false,
			Error: "Maximum 1 task allowed in NOW. Move or complete the current NOW task first.",
		}
	}
	return Check{Valid: true}
}

// CanMoveToNext checks the NEXT WIP limit against the current NEXT count
func CanMoveToNext(currentNextCount int) Check {
	if currentNextCount >= MaxNextTasks {
		return Check{
			Valid: false,
			Error: "Maximum 3 tasks allowed in NEXT. Move or complete some NEXT tasks first.",
		}
	}
	return Check{Valid: true}
}

// CanPrioritize checks whether a task's status permits bucket moves
func CanPrioritize(status models.TaskStatus) Check {
	switch status {
	case models.TaskStatusReady, models.TaskStatusNow, models.TaskStatusNext, models.TaskStatusLater:
		return Check{Valid: true}
	default:
		return Check{
			Valid: false,
			Error: "Task must be in READY, NOW, NEXT, or LATER status to be prioritized",
		}
	}
}

// ValidateDoDCompletion checks whether a task's definition of done is
// fully satisfied. A task with no DoD items can never satisfy this rule;
// force-complete is the only path to DONE for such a task.
func ValidateDoDCompletion(items []models.DoDItem) Validation {
	var errs []string

	if len(items) == 0 {
		errs = append(errs, "Task has no DoD items defined")
	}
	for _, item := range items {
		if !item.Completed {
			errs = append(errs, "Not all DoD items have been completed")
			break
		}
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

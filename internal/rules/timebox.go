package rules

import (
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

// ValidDurations are the allowed timebox lengths in minutes
var ValidDurations = []int{25, 45, 60, 90}

// IsValidDuration reports whether minutes is an allowed timebox length
func IsValidDuration(minutes int) bool {
	for _, d := range ValidDurations {
		if minutes == d {
			return true
		}
	}
	return false
}

// BlockWindow is the slice of a timeblock the scheduling rules need.
// A zero ID means the candidate is a new block.
type BlockWindow struct {
	ID              uuid.UUID
	ScheduledFor    time.Time
	DurationMinutes int
}

// End returns the half-open end instant of the window
func (w BlockWindow) End() time.Time {
	return w.ScheduledFor.Add(time.Duration(w.DurationMinutes) * time.Minute)
}

// CheckDuration validates the timebox length against the allowed set
func CheckDuration(minutes int) Check {
	if !IsValidDuration(minutes) {
		return Check{
			Valid: false,
			Error: "Duration must be one of: 25, 45, 60, 90 minutes",
		}
	}
	return Check{Valid: true}
}

// CheckOverlap validates that the candidate's half-open interval
// [start, start+duration) does not intersect any existing block. When the
// candidate carries an ID (an update), the block with that ID is skipped.
// Adjacency is not overlap: a block starting exactly at another's end is
// accepted.
func CheckOverlap(candidate BlockWindow, existing []BlockWindow) Check {
	newStart := candidate.ScheduledFor
	newEnd := candidate.End()

	for _, other := range existing {
		if candidate.ID != uuid.Nil && other.ID == candidate.ID {
			continue
		}

		otherStart := other.ScheduledFor
		otherEnd := other.End()

		if newStart.Before(otherEnd) && newEnd.After(otherStart) {
			return Check{
				Valid: false,
				Error: fmt.Sprintf("TimeBlock overlaps with existing block at %s", otherStart.Format("15:04")),
			}
		}
	}

	return Check{Valid: true}
}

// CheckSchedulable validates that the owning task is in a schedulable status
func CheckSchedulable(status models.TaskStatus) Check {
	if status != models.TaskStatusNow && status != models.TaskStatusNext {
		return Check{
			Valid: false,
			Error: "Only tasks in NOW or NEXT status can be scheduled",
		}
	}
	return Check{Valid: true}
}

// CheckScheduleTime validates that a new block does not start in the past.
// Updates are exempt: a block that already started may legitimately need
// its time adjusted.
func CheckScheduleTime(scheduledFor time.Time, isUpdate bool, now time.Time) Check {
	if isUpdate {
		return Check{Valid: true}
	}
	if scheduledFor.Before(now) {
		return Check{
			Valid: false,
			Error: "Cannot schedule timeblocks in the past",
		}
	}
	return Check{Valid: true}
}

// ValidateTimeBlock runs every timebox scheduling rule and collects all
// violations
func ValidateTimeBlock(candidate BlockWindow, existing []BlockWindow, taskStatus models.TaskStatus, isUpdate bool, now time.Time) Validation {
	var errs []string

	if c := CheckDuration(candidate.DurationMinutes); !c.Valid {
		errs = append(errs, c.Error)
	}
	if c := CheckOverlap(candidate, existing); !c.Valid {
		errs = append(errs, c.Error)
	}
	if c := CheckSchedulable(taskStatus); !c.Valid {
		errs = append(errs, c.Error)
	}
	if c := CheckScheduleTime(candidate.ScheduledFor, isUpdate, now); !c.Valid {
		errs = append(errs, c.Error)
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// Package prioritizer implements AI-assisted bulk re-prioritization: subset
// selection under a scoring budget, the oracle call, and reconciliation of
// the recommendation against the WIP-limited buckets.
package prioritizer

import (
	"time"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
)

const (
	// DefaultMaxScoringTasks bounds how many tasks are sent to the scorer
	DefaultMaxScoringTasks = 30

	// DueSoonWindow is how far ahead a LATER task's due date may be for it
	// to be pulled into the scoring subset
	DueSoonWindow = 7 * 24 * time.Hour
)

// SelectForScoring builds the subset of tasks presented to the scoring
// oracle. NOW, NEXT, and READY tasks are always in scope, even when they
// alone exceed the limit; LATER tasks fill the remaining room in order of
// due-date proximity, then project affinity with READY tasks, then arrival
// order. No task is selected twice.
func SelectForScoring(tasks []*models.Task, limit int, now time.Time) []*models.Task {
	if limit <= 0 {
		limit = DefaultMaxScoringTasks
	}

	var selected []*models.Task
	seen := make(map[uuid.UUID]bool)
	add := func(task *models.Task) {
		if !seen[task.ID] {
			seen[task.ID] = true
			selected = append(selected, task)
		}
	}

	var ready, later []*models.Task
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusNow, models.TaskStatusNext:
			add(task)
		case models.TaskStatusReady:
			ready = append(ready, task)
		case models.TaskStatusLater:
			later = append(later, task)
		}
	}

	for _, task := range ready {
		add(task)
	}

	// LATER tasks due inside the forward window; overdue counts as due
	dueCutoff := now.Add(DueSoonWindow)
	for _, task := range later {
		if len(selected) >= limit {
			break
		}
		if task.DueAt != nil && !task.DueAt.After(dueCutoff) {
			add(task)
		}
	}

	// LATER tasks sharing a project with a READY task
	readyProjects := make(map[uuid.UUID]bool)
	for _, task := range ready {
		if task.ProjectID != nil {
			readyProjects[*task.ProjectID] = true
		}
	}
	if len(readyProjects) > 0 {
		for _, task := range later {
			if len(selected) >= limit {
				break
			}
			if task.ProjectID != nil && readyProjects[*task.ProjectID] {
				add(task)
			}
		}
	}

	// Whatever LATER tasks still fit, in arrival order
	for _, task := range later {
		if len(selected) >= limit {
			break
		}
		add(task)
	}

	return selected
}

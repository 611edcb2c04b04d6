package prioritizer

import (
	"context"
	"fmt"

	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileOutcome reports what a recommendation did to the buckets
type ReconcileOutcome struct {
	MovedToNow   int `json:"moved_to_now"`
	MovedToNext  int `json:"moved_to_next"`
	MovedToLater int `json:"moved_to_later"`
	Safeguarded  int `json:"safeguarded"`
}

// Reconciler applies scoring recommendations to the task buckets
type Reconciler struct {
	tasks  database.TaskRepositoryInterface
	logger *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(tasks database.TaskRepositoryInterface, logger *zap.Logger) *Reconciler {
	return &Reconciler{tasks: tasks, logger: logger}
}

// Apply moves every recommended task into its recommended bucket, then
// sweeps any task that was in NOW or NEXT before the call but appears in
// none of the three lists into LATER. A task the recommender forgot must
// never stay in a bucket it didn't sanction. WIP caps are not re-validated
// here; the recommendation is trusted to respect them.
func (r *Reconciler) Apply(ctx context.Context, rec ai.Recommendations) (*ReconcileOutcome, error) {
	prior, err := r.tasks.ListByStatuses(ctx, models.TaskStatusNow, models.TaskStatusNext)
	if err != nil {
		return nil, fmt.Errorf("failed to load bucketed tasks: %w", err)
	}

	recommended := make(map[uuid.UUID]bool)
	for _, lists := range [][]uuid.UUID{rec.Now, rec.Next, rec.Later} {
		for _, id := range lists {
			recommended[id] = true
		}
	}

	outcome := &ReconcileOutcome{}

	for _, id := range rec.Now {
		if err := r.moveToBucket(ctx, id, models.BucketNow); err != nil {
			return nil, err
		}
		outcome.MovedToNow++
	}
	for _, id := range rec.Next {
		if err := r.moveToBucket(ctx, id, models.BucketNext); err != nil {
			return nil, err
		}
		outcome.MovedToNext++
	}
	for _, id := range rec.Later {
		if err := r.moveToBucket(ctx, id, models.BucketLater); err != nil {
			return nil, err
		}
		outcome.MovedToLater++
	}

	for _, task := range prior {
		if recommended[task.ID] {
			continue
		}
		if err := r.moveToBucket(ctx, task.ID, models.BucketLater); err != nil {
			return nil, err
		}
		outcome.Safeguarded++
		if r.logger != nil {
			r.logger.Warn("task_missing_from_recommendation",
				zap.String("task_id", task.ID.String()),
				zap.String("previous_status", string(task.Status)),
			)
		}
	}

	return outcome, nil
}

func (r *Reconciler) moveToBucket(ctx context.Context, id uuid.UUID, bucket models.PriorityBucket) error {
	task, err := r.tasks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recommended task %s: %w", id, err)
	}

	task.Status = models.StatusForBucket(bucket)
	task.Bucket = &bucket
	if err := r.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to move task %s to %s: %w", id, bucket, err)
	}

	return nil
}

package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benmartin/gtdflow/internal/queue"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/benmartin/gtdflow/internal/services/prioritizer"
	"github.com/google/uuid"
)

// PrioritizeRunner is the slice of the prioritizer service the worker needs
type PrioritizeRunner interface {
	Run(ctx context.Context) (*prioritizer.RunResult, error)
	ScoreSingle(ctx context.Context, taskID uuid.UUID) (*ai.PriorityScore, error)
	ProfileSummary(ctx context.Context) (string, error)
}

// CompletedPurger removes DONE tasks past the retention window
type CompletedPurger interface {
	PurgeOldCompleted(ctx context.Context) (int, error)
}

// JobProcessor consumes queue jobs and dispatches them to the services
type JobProcessor struct {
	prioritizer PrioritizeRunner
	purger      CompletedPurger
	jobQueue    queue.JobQueue // For re-enqueueing jobs with delays
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(p PrioritizeRunner, purger CompletedPurger, jobQueue queue.JobQueue) *JobProcessor {
	return &JobProcessor{
		prioritizer: p,
		purger:      purger,
		jobQueue:    jobQueue,
	}
}

// ProcessBulkPrioritizeJob runs a full scoring pass over the actionable set
func (p *JobProcessor) ProcessBulkPrioritizeJob(ctx context.Context, job *queue.Job) error {
	result, err := p.prioritizer.Run(ctx)
	if err != nil {
		return fmt.Errorf("bulk prioritization failed: %w", err)
	}

	log.Printf("Bulk prioritization complete: scored=%d now=%d next=%d later=%d safeguarded=%d",
		result.TasksScored, result.Outcome.MovedToNow, result.Outcome.MovedToNext,
		result.Outcome.MovedToLater, result.Outcome.Safeguarded)
	return nil
}

// ProcessScoreTaskJob scores a single task without touching the buckets
func (p *JobProcessor) ProcessScoreTaskJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == nil {
		return fmt.Errorf("task_id is required for score_task job")
	}

	score, err := p.prioritizer.ScoreSingle(ctx, *job.TaskID)
	if err != nil {
		return fmt.Errorf("failed to score task: %w", err)
	}

	log.Printf("Scored task %s: score=%d bucket=%s confidence=%.2f",
		score.TaskID, score.Score, score.Bucket, score.Confidence)
	return nil
}

// ProcessPurgeCompletedJob removes completed tasks past retention
func (p *JobProcessor) ProcessPurgeCompletedJob(ctx context.Context, job *queue.Job) error {
	purged, err := p.purger.PurgeOldCompleted(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge completed tasks: %w", err)
	}

	if purged > 0 {
		log.Printf("Purged %d completed task(s) past retention", purged)
	}
	return nil
}

// ProcessProfileSummaryJob regenerates the profile summary if it is stale
func (p *JobProcessor) ProcessProfileSummaryJob(ctx context.Context, job *queue.Job) error {
	if _, err := p.prioritizer.ProfileSummary(ctx); err != nil {
		return fmt.Errorf("failed to refresh profile summary: %w", err)
	}
	return nil
}

// ProcessJob processes a job based on its type
func (p *JobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeBulkPrioritize:
		if err := p.ProcessBulkPrioritizeJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "bulk prioritize")
		}

	case queue.JobTypeScoreTask:
		if err := p.ProcessScoreTaskJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "score task")
		}

	case queue.JobTypePurgeCompleted:
		if err := p.ProcessPurgeCompletedJob(ctx, job); err != nil {
			// Purge jobs are idempotent and rescheduled on a timer, don't retry
			if nackErr := msg.Nack(false); nackErr != nil {
				log.Printf("Failed to nack purge job: %v", nackErr)
			}
			return fmt.Errorf("purge failed: %w", err)
		}

	case queue.JobTypeProfileSummary:
		if err := p.ProcessProfileSummaryJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "profile summary")
		}

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError handles errors from job processing with retry logic tuned
// to the failure class
func (p *JobProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	// Quota errors get a long delayed retry via the delayed exchange
	if ai.IsQuotaError(err) {
		log.Printf("Quota exceeded for %s job %s: %v", jobType, job.ID, err)

		retryDelay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		delayedJob := p.retryJob(job, notBefore)

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if p.jobQueue != nil {
			if enqueueErr := p.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue job %s with delay: %v", job.ID, enqueueErr)
				return fmt.Errorf("quota exhausted, failed to re-enqueue: %w", enqueueErr)
			}
			log.Printf("Re-enqueued %s job %s for retry at %v (quota exhausted)", jobType, job.ID, notBefore)
			return nil
		}

		return fmt.Errorf("quota exhausted (job %s): %w", job.ID, err)
	}

	// Rate limits retry with backoff
	if ai.IsRateLimitError(err) {
		log.Printf("Rate limited for %s job %s: %v", jobType, job.ID, err)

		if job.CanRetry() && p.jobQueue != nil {
			retryDelay := ai.GetRetryDelay(err, job.RetryCount)
			notBefore := time.Now().Add(retryDelay)
			delayedJob := p.retryJob(job, notBefore)

			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack rate limited job: %v", ackErr)
			}

			if enqueueErr := p.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue rate limited job %s: %v", job.ID, enqueueErr)
				if nackErr := msg.Nack(true); nackErr != nil {
					log.Printf("Failed to nack rate limited job: %v", nackErr)
				}
				return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Rate limited: re-enqueued %s job %s for retry at %v", jobType, job.ID, notBefore)
			return nil
		}

		if job.CanRetry() {
			job.IncrementRetry()
			if nackErr := msg.Nack(true); nackErr != nil {
				log.Printf("Failed to nack rate limited job: %v", nackErr)
			}
			return fmt.Errorf("rate limited (will retry): %w", err)
		}
	}

	// Standard retry for everything else
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryJob clones the job with an incremented retry count and a NotBefore
func (p *JobProcessor) retryJob(job *queue.Job, notBefore time.Time) *queue.Job {
	return &queue.Job{
		ID:         job.ID,
		Type:       job.Type,
		TaskID:     job.TaskID,
		NotBefore:  &notBefore,
		NotAfter:   job.NotAfter,
		Metadata:   job.Metadata,
		CreatedAt:  job.CreatedAt,
		RetryCount: job.RetryCount + 1,
		MaxRetries: job.MaxRetries,
	}
}

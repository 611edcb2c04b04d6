package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benmartin/gtdflow/internal/config"
	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/queue"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/benmartin/gtdflow/internal/services/prioritizer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewPrioritizeCmd creates the prioritize command
func NewPrioritizeCmd() *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "prioritize",
		Short: "Run a bulk prioritization pass",
		Long:  "Score the actionable tasks against the user's goals and reconcile the buckets. With --enqueue the run is handed to the worker instead of executing inline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := context.Background()

			if enqueue {
				jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
				if err != nil {
					return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
				}
				defer func() {
					if err := jobQueue.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
					}
				}()

				job := queue.NewJob(queue.JobTypeBulkPrioritize, nil)
				if err := jobQueue.Enqueue(ctx, job); err != nil {
					return fmt.Errorf("failed to enqueue job: %w", err)
				}
				fmt.Printf("✓ Enqueued bulk prioritization job %s\n", job.ID)
				return nil
			}

			if cfg.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is not configured")
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			provider := ai.NewOpenAIProviderWithConfig(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel)
			svc := prioritizer.NewService(
				database.NewTaskRepository(db),
				database.NewUserProfileRepository(db),
				database.NewDomainAreaRepository(db),
				database.NewProjectRepository(db),
				provider,
				cfg.MaxScoringTasks,
				zap.NewNop(),
			)

			result, err := svc.Run(ctx)
			if err != nil {
				return fmt.Errorf("prioritization run failed: %w", err)
			}

			fmt.Printf("✓ Scored %d task(s)\n", result.TasksScored)
			fmt.Printf("  moved to NOW:   %d\n", result.Outcome.MovedToNow)
			fmt.Printf("  moved to NEXT:  %d\n", result.Outcome.MovedToNext)
			fmt.Printf("  moved to LATER: %d\n", result.Outcome.MovedToLater)
			if result.OverallRationale != "" {
				fmt.Printf("\n%s\n", result.OverallRationale)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Enqueue the run for the worker instead of executing inline")

	return cmd
}

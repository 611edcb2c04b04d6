package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benmartin/gtdflow/internal/config"
	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/services/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewPurgeCmd creates the purge command
func NewPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge completed tasks past retention",
		Long:  "Remove DONE tasks older than the retention window, including their timeblocks, outputs, and audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
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

			taskRepo := database.NewTaskRepository(db)
			blockRepo := database.NewTimeBlockRepository(db)
			wf := workflow.NewService(taskRepo, blockRepo, zap.NewNop())

			purged, err := wf.PurgeOldCompleted(context.Background())
			if err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}

			fmt.Printf("✓ Purged %d completed task(s) past the %s retention window\n", purged, workflow.RetentionWindow)
			return nil
		},
	}

	return cmd
}

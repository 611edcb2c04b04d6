package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benmartin/gtdflow/internal/config"
	"github.com/benmartin/gtdflow/internal/services/ai"
	"github.com/spf13/cobra"
)

// NewAITestCmd creates the ai-test command
func NewAITestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai-test",
		Short: "Test the AI scoring provider",
		Long:  "Verify the configured AI scoring provider is reachable with the current credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is not configured")
			}

			provider := ai.NewOpenAIProviderWithConfig(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel)

			fmt.Printf("Testing AI provider: %s (model: %s)\n", cfg.AIProvider, cfg.AIModel)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := provider.TestConnection(ctx); err != nil {
				return fmt.Errorf("provider connection failed: %w", err)
			}

			fmt.Println("✓ AI provider is reachable")
			return nil
		},
	}

	return cmd
}

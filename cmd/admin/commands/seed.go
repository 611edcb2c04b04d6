package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/benmartin/gtdflow/internal/config"
	"github.com/benmartin/gtdflow/internal/database"
	"github.com/benmartin/gtdflow/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSeedCmd creates the seed command
func NewSeedCmd() *cobra.Command {
	var areas string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed domain areas",
		Long:  "Create an initial set of domain areas, skipping any that already exist by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := splitNames(areas)
			if len(names) == 0 {
				return fmt.Errorf("--areas is required, e.g. --areas \"Work,Health,Family\"")
			}

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

			areaRepo := database.NewDomainAreaRepository(db)
			ctx := context.Background()

			existing, err := areaRepo.List(ctx, true)
			if err != nil {
				return fmt.Errorf("failed to list domain areas: %w", err)
			}
			taken := make(map[string]bool, len(existing))
			for _, area := range existing {
				taken[strings.ToLower(area.Name)] = true
			}

			created := 0
			for i, name := range names {
				if taken[strings.ToLower(name)] {
					fmt.Printf("- %s already exists, skipping\n", name)
					continue
				}
				area := &models.DomainArea{
					ID:        uuid.New(),
					Name:      name,
					SortOrder: len(existing) + i,
					IsActive:  true,
				}
				if err := areaRepo.Create(ctx, area); err != nil {
					return fmt.Errorf("failed to create domain area %q: %w", name, err)
				}
				fmt.Printf("✓ Created %s\n", name)
				created++
			}

			fmt.Printf("\n%d domain area(s) created\n", created)
			return nil
		},
	}

	cmd.Flags().StringVar(&areas, "areas", "", "Comma-separated domain area names (required)")

	return cmd
}

func splitNames(input string) []string {
	var names []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

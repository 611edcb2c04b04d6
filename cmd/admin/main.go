package main

import (
	"fmt"
	"os"

	"github.com/benmartin/gtdflow/cmd/admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "gtdflow-admin",
		Short: "Admin tool for the gtdflow API",
		Long:  "CLI tool for maintenance tasks: AI connectivity checks, retention sweeps, and seeding reference data",
	}

	rootCmd.AddCommand(commands.NewAITestCmd())
	rootCmd.AddCommand(commands.NewPurgeCmd())
	rootCmd.AddCommand(commands.NewSeedCmd())
	rootCmd.AddCommand(commands.NewPrioritizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package commands

import (
	"fmt"

	"github.com/pcrane/taskloop/internal/config"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending schema migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			fmt.Println("Migrations applied")
			return nil
		},
	}

	return cmd
}

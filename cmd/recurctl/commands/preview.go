package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pcrane/taskloop/internal/config"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/recurrence"
	"github.com/pcrane/taskloop/internal/services/scheduler"
	"github.com/spf13/cobra"
)

// NewPreviewCmd creates the preview command
func NewPreviewCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "preview <task-id>",
		Short: "Preview upcoming occurrences for a recurring task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task ID %q: %w", args[0], err)
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

			patternRepo := database.NewPatternRepository(db)
			generator := scheduler.NewPreviewGenerator(patternRepo)

			preview, err := generator.Preview(context.Background(), taskID, count)
			if err != nil {
				if errors.Is(err, recurrence.ErrPatternNotFound) {
					return fmt.Errorf("task %s has no recurrence pattern", taskID)
				}
				return fmt.Errorf("failed to generate preview: %w", err)
			}

			if preview.Count == 0 {
				fmt.Println("Recurrence has ended; no upcoming occurrences")
				return nil
			}

			fmt.Printf("Next %d occurrence(s):\n", preview.Count)
			for _, d := range preview.Dates {
				fmt.Printf("  %s\n", d.Format(time.RFC3339))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", scheduler.DefaultPreviewCount, "Number of occurrences to preview (capped at 20)")

	return cmd
}

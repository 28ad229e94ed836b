package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pcrane/taskloop/internal/config"
	"github.com/pcrane/taskloop/internal/database"
	"github.com/pcrane/taskloop/internal/models"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurrence patterns",
		Long:  "List all recurrence patterns with their task titles, rules and next occurrence dates",
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

			patternRepo := database.NewPatternRepository(db)

			listings, err := patternRepo.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			writeListings(cmd.OutOrStdout(), listings)
			return nil
		},
	}

	return cmd
}

func writeListings(w io.Writer, listings []*models.PatternListing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No recurrence patterns configured")
		return
	}

	fmt.Fprintln(w, "Recurrence patterns:")
	for _, l := range listings {
		fmt.Fprintf(w, "  - Task: %s (%s)\n", l.TaskTitle, l.TaskID)
		fmt.Fprintf(w, "    Rule: every %d %s\n", l.Interval, l.Frequency)
		if len(l.DaysOfWeek) > 0 {
			fmt.Fprintf(w, "    Days of week: %v\n", l.DaysOfWeek)
		}
		if l.DayOfMonth != nil {
			fmt.Fprintf(w, "    Day of month: %d\n", *l.DayOfMonth)
		}
		fmt.Fprintf(w, "    Next occurrence: %s\n", l.NextOccurrenceDate.Format(time.RFC3339))
		if l.EndDate != nil {
			fmt.Fprintf(w, "    Ends: %s\n", l.EndDate.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
}

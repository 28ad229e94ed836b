package main

import (
	"fmt"
	"os"

	"github.com/pcrane/taskloop/cmd/recurctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "recurctl",
		Short: "Operations tool for the taskloop scheduler",
		Long:  "CLI tool for inspecting recurrence patterns, previewing occurrences, and running migrations",
	}

	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewPreviewCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

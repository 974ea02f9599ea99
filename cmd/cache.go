package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// cacheCmd reports analysis cache statistics
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the analysis cache",
	Example: `  # Show cache statistics
  ytcurate cache

  # Drop all cached analysis results
  ytcurate cache clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		stats := app.Cache().Stats()
		fmt.Printf("Memory entries: %d\n", stats.Entries)
		fmt.Printf("Hits this session: %d\n", stats.Hits)
		fmt.Printf("Misses this session: %d\n", stats.Misses)
		return nil
	},
}

// cacheClearCmd drops every cached analysis result
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached analysis results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !internal.AskUser("Drop all cached analysis results? Re-analysis costs money") {
			return nil
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		if err := app.Cache().Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}

		if !config.Quiet {
			fmt.Println("Cache cleared")
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

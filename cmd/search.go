package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search YouTube for videos",
	Example: `  # Search for videos
  ytcurate search "go concurrency patterns"

  # Short videos with captions only
  ytcurate search "git rebase" --duration short --captions-only

  # Recent videos, newest first
  ytcurate search "kubernetes 1.31" --order date --published-after 2026-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateSearchRequirements(config); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		filters, err := internal.FiltersFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		result, err := app.SearchVideos(cmd.Context(), filters, internal.SortFromFlags(cmd))
		if err != nil {
			return err
		}

		maxResults, _ := cmd.Flags().GetInt("max-results")
		videos := result.Videos
		if maxResults > 0 && len(videos) > maxResults {
			videos = videos[:maxResults]
		}

		if len(videos) == 0 {
			fmt.Println("No videos found.")
			return nil
		}

		curated := make([]internal.CuratedVideo, len(videos))
		for i, v := range videos {
			curated[i] = internal.CuratedVideo{Video: v}
		}
		rendered, err := internal.RenderMarkdown(internal.FormatVideoListMarkdown(curated))
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	internal.AddSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

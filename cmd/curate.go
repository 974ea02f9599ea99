package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// curateCmd represents the curate command: search plus analysis in one pass.
var curateCmd = &cobra.Command{
	Use:   "curate [query]",
	Short: "Search YouTube and rank results by learning value",
	Long: `Curate searches YouTube, analyzes each result's transcript with AI,
and returns the videos ranked by relevance to your learning categories.

This is the most expensive command: every un-cached result costs both
YouTube API quota and OpenAI tokens. Use --max-results to bound it.`,
	Example: `  # Find the best videos on a topic for your categories
  ytcurate curate "rust lifetimes explained"

  # Curate for one category, limited to 5 results
  ytcurate curate "pandas dataframes" --category data-science -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateSearchRequirements(config); err != nil {
			return err
		}
		if err := internal.ValidateAnalysisRequirements(config); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		depth, err := internal.HandleDepthFlag(cmd, config)
		if err != nil {
			return err
		}

		categories, err := internal.ResolveCategoryFlags(cmd, app.Categories())
		if err != nil {
			return err
		}

		filters, err := internal.FiltersFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		maxResults, _ := cmd.Flags().GetInt("max-results")
		curated, err := app.CurateVideos(cmd.Context(), filters, categories, depth, maxResults)
		if err != nil {
			return err
		}

		if len(curated) == 0 {
			fmt.Println("No relevant videos found.")
			return nil
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
	internal.AddSearchFlags(curateCmd)
	internal.AddAnalysisFlags(curateCmd)
	rootCmd.AddCommand(curateCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [YouTube URL or ID]...",
	Short: "Analyze one or more YouTube videos' learning value",
	Example: `  # Analyze a video against all configured categories
  ytcurate analyze "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytcurate analyze tAP1eZYEuKA

  # Score against specific categories only
  ytcurate analyze tAP1eZYEuKA --category programming

  # Quick pass over the transcript opening
  ytcurate analyze tAP1eZYEuKA --depth quick

  # Batch analysis with a progress bar
  ytcurate analyze tAP1eZYEuKA dQw4w9WgXcQ jNQXAC9IVRw`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return runAnalyze(cmd, args[0])
		}
		return runAnalyzeBatch(cmd, args)
	},
}

// runAnalyze is the shared analysis flow behind the root and analyze commands.
func runAnalyze(cmd *cobra.Command, arg string) error {
	if err := internal.ValidateAnalysisRequirements(config); err != nil {
		return err
	}

	videoID, err := internal.ParseVideoArg(arg)
	if err != nil {
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

	result, err := app.AnalyzeVideo(cmd.Context(), videoID, categories, depth)
	if err != nil {
		return err
	}

	rendered, err := internal.RenderMarkdown(internal.FormatAnalysisMarkdown(result, categories))
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

// runAnalyzeBatch analyzes several videos concurrently and prints each report
// in argument order. Individual failures are reported without stopping the rest.
func runAnalyzeBatch(cmd *cobra.Command, args []string) error {
	if err := internal.ValidateAnalysisRequirements(config); err != nil {
		return err
	}

	videoIDs := make([]internal.VideoID, 0, len(args))
	for _, arg := range args {
		videoID, err := internal.ParseVideoArg(arg)
		if err != nil {
			return err
		}
		videoIDs = append(videoIDs, videoID)
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

	batch := app.AnalyzeVideos(cmd.Context(), videoIDs, categories, depth)

	var failed int
	for _, br := range batch {
		if br.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", br.VideoID, br.Err)
			continue
		}
		rendered, err := internal.RenderMarkdown(internal.FormatAnalysisMarkdown(br.Result, categories))
		if err != nil {
			return err
		}
		fmt.Println(rendered)
	}
	if failed == len(batch) {
		return fmt.Errorf("all %d videos failed to analyze", failed)
	}
	return nil
}

func init() {
	internal.AddAnalysisFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

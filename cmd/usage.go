package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// usageCmd reports AI spending against the configured limits
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show AI usage and spending",
	Example: `  # Show today's spending against the daily limit
  ytcurate usage`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		limits := internal.CostLimits{
			DailyLimit:      config.DailyCostLimit,
			PerRequestLimit: config.PerRequestCostLimit,
		}
		rendered, err := internal.RenderMarkdown(internal.FormatUsageMarkdown(app.Usage().Snapshot(), limits))
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

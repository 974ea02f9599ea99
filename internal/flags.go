package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// AddAnalysisFlags adds flags shared by commands that run AI analysis
func AddAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("depth", "d", "", "Analysis depth: quick, basic, standard, or deep")
	cmd.Flags().StringSliceP("category", "c", nil, "Category IDs or names to score against (repeatable)")
}

// AddSearchFlags adds flags shared by commands that query YouTube
func AddSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("max-results", "n", 10, "Maximum number of search results")
	cmd.Flags().String("duration", "", "Duration preset: short, medium, or long")
	cmd.Flags().String("order", "", "Result order: relevance, date, or viewCount")
	cmd.Flags().String("published-after", "", "Only videos published after this date (YYYY-MM-DD)")
	cmd.Flags().Int64("min-views", 0, "Minimum view count")
	cmd.Flags().Bool("captions-only", false, "Only videos with closed captions")
	cmd.Flags().String("language", "", "Preferred result language (BCP-47 code)")
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = verbose
	return nil
}

// HandleQuietFlag processes the --quiet flag to update config
func HandleQuietFlag(cmd *cobra.Command, config *Config) error {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	config.Quiet = quiet
	return nil
}

// HandleDepthFlag resolves the --depth flag against the configured default
func HandleDepthFlag(cmd *cobra.Command, config *Config) (Depth, error) {
	depthFlag, err := cmd.Flags().GetString("depth")
	if err != nil {
		return "", fmt.Errorf("failed to get depth flag: %w", err)
	}
	if depthFlag == "" {
		return config.AnalysisDepth, nil
	}
	depth := Depth(depthFlag)
	if !depth.IsValid() {
		return "", fmt.Errorf("unknown depth %q (valid: quick, basic, standard, deep)", depthFlag)
	}
	return depth, nil
}

// ResolveCategoryFlags maps --category values to stored categories. With no
// flag given, every stored category is used.
func ResolveCategoryFlags(cmd *cobra.Command, store *CategoryStore) ([]Category, error) {
	names, err := cmd.Flags().GetStringSlice("category")
	if err != nil {
		return nil, fmt.Errorf("failed to get category flag: %w", err)
	}
	if len(names) == 0 {
		return store.All(), nil
	}

	categories := make([]Category, 0, len(names))
	var unknown []string
	for _, name := range names {
		c, ok := store.Resolve(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		categories = append(categories, c)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown categories: %s (see 'ytcurate categories')", strings.Join(unknown, ", "))
	}
	return categories, nil
}

// FiltersFromFlags builds a filter spec from the search flags
func FiltersFromFlags(cmd *cobra.Command, query string) (VideoFilters, error) {
	filters := VideoFilters{Query: query}

	if duration, _ := cmd.Flags().GetString("duration"); duration != "" {
		filters.Duration = &DurationFilter{Preset: duration}
	}
	if after, _ := cmd.Flags().GetString("published-after"); after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			return filters, fmt.Errorf("invalid published-after date %q: %w", after, err)
		}
		filters.PublishedAfter = &t
	}
	if minViews, _ := cmd.Flags().GetInt64("min-views"); minViews > 0 {
		filters.Views = &ViewsFilter{Min: minViews}
	}
	if captionsOnly, _ := cmd.Flags().GetBool("captions-only"); captionsOnly {
		yes := true
		filters.RequireCaptions = &yes
	}
	if language, _ := cmd.Flags().GetString("language"); language != "" {
		filters.Languages = []string{language}
	}

	return filters, nil
}

// SortFromFlags builds a sort spec from the --order flag
func SortFromFlags(cmd *cobra.Command) VideoSort {
	order, _ := cmd.Flags().GetString("order")
	switch order {
	case "date":
		return VideoSort{Field: SortPublishedAt, Order: "desc"}
	case "viewCount":
		return VideoSort{Field: SortViewCount, Order: "desc"}
	default:
		return VideoSort{Field: SortRelevance, Order: "desc"}
	}
}

// ValidateAnalysisRequirements checks that AI analysis can run
func ValidateAnalysisRequirements(config *Config) error {
	return ValidateOpenAIAPIKey(config.OpenAIAPIKey)
}

// ValidateSearchRequirements checks that YouTube search can run
func ValidateSearchRequirements(config *Config) error {
	return ValidateYouTubeAPIKey(config.YouTubeAPIKey)
}

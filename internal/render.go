package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatAnalysisMarkdown renders an analysis result as markdown for terminal
// display through glamour.
func FormatAnalysisMarkdown(result *AnalysisResult, categories []Category) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Analysis: %s\n\n", result.VideoID))

	insights := result.Insights
	sb.WriteString(fmt.Sprintf("**Content type:** %s | **Difficulty:** %s | **Est. learning time:** %d min\n\n",
		insights.ContentType, insights.Difficulty, insights.EstimatedLearningTime))

	if insights.Summary != "" {
		sb.WriteString(insights.Summary)
		sb.WriteString("\n\n")
	}

	if len(insights.MainTopics) > 0 {
		sb.WriteString("## Main topics\n\n")
		for _, topic := range insights.MainTopics {
			sb.WriteString(fmt.Sprintf("- %s\n", topic))
		}
		sb.WriteString("\n")
	}

	if len(insights.LearningObjectives) > 0 {
		sb.WriteString("## Learning objectives\n\n")
		for _, obj := range insights.LearningObjectives {
			sb.WriteString(fmt.Sprintf("- %s\n", obj))
		}
		sb.WriteString("\n")
	}

	if len(insights.Prerequisites) > 0 {
		sb.WriteString(fmt.Sprintf("**Prerequisites:** %s\n\n", strings.Join(insights.Prerequisites, ", ")))
	}
	if len(insights.TechnicalTerms) > 0 {
		sb.WriteString(fmt.Sprintf("**Technical terms:** %s\n\n", strings.Join(insights.TechnicalTerms, ", ")))
	}
	if len(insights.BestFor) > 0 {
		sb.WriteString(fmt.Sprintf("**Best for:** %s\n\n", strings.Join(insights.BestFor, ", ")))
	}

	sb.WriteString("## Quality\n\n")
	sb.WriteString(fmt.Sprintf("- Clarity: %.0f/100\n", insights.ContentQuality.Clarity))
	sb.WriteString(fmt.Sprintf("- Completeness: %.0f/100\n", insights.ContentQuality.Completeness))
	sb.WriteString(fmt.Sprintf("- Practical value: %.0f/100\n", insights.ContentQuality.PracticalValue))
	sb.WriteString(fmt.Sprintf("- Confidence: %.0f/100\n\n", insights.Confidence))

	if len(result.RelevanceScores) > 0 {
		names := make(map[CategoryID]string, len(categories))
		for _, c := range categories {
			names[c.ID] = c.Name
		}

		sb.WriteString("## Category relevance\n\n")
		type scored struct {
			id    CategoryID
			score float64
		}
		rows := make([]scored, 0, len(result.RelevanceScores))
		for id, score := range result.RelevanceScores {
			rows = append(rows, scored{id, score})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].score != rows[j].score {
				return rows[i].score > rows[j].score
			}
			return rows[i].id < rows[j].id
		})
		for _, row := range rows {
			name := names[row.id]
			if name == "" {
				name = string(row.id)
			}
			sb.WriteString(fmt.Sprintf("- %s: %.0f/100\n", name, row.score))
		}
		sb.WriteString("\n")
	}

	if result.CategoryAnalysis.Fallback {
		sb.WriteString("> Relevance scoring ran in degraded mode; scores are neutral placeholders.\n\n")
	}

	if suggested := result.CategoryAnalysis.SuggestedCategories; len(suggested) > 0 {
		names := make([]string, len(suggested))
		for i, id := range suggested {
			names[i] = string(id)
		}
		sb.WriteString(fmt.Sprintf("**Suggested new categories:** %s\n\n", strings.Join(names, ", ")))
	}

	sb.WriteString(fmt.Sprintf("---\n*Model: %s | Tokens: %d | Cost: $%.4f | Took: %s*\n",
		insights.ModelUsed, insights.TokensUsed, insights.EstimatedCost, result.ProcessingTime.Round(time.Millisecond)))

	return sb.String()
}

// FormatVideoListMarkdown renders curated search results as a markdown list.
func FormatVideoListMarkdown(videos []CuratedVideo) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Curated videos (%d)\n\n", len(videos)))
	for i, cv := range videos {
		v := cv.Video
		sb.WriteString(fmt.Sprintf("%d. **%s**\n", i+1, v.Title))
		sb.WriteString(fmt.Sprintf("   %s | %s | %s views | relevance %.0f/100\n",
			v.ChannelTitle, formatDuration(v.Duration), formatCount(v.ViewCount), v.Relevance))
		sb.WriteString(fmt.Sprintf("   %s\n", v.ID.WatchURL()))
	}
	return sb.String()
}

// FormatUsageMarkdown renders a usage snapshot against the configured limits.
func FormatUsageMarkdown(state UsageState, limits CostLimits) string {
	var sb strings.Builder

	sb.WriteString("# AI usage\n\n")
	sb.WriteString(fmt.Sprintf("- Today: $%.4f of $%.2f daily limit\n", state.DailyUsage, limits.DailyLimit))
	sb.WriteString(fmt.Sprintf("- All time: $%.4f across %d requests\n", state.TotalCost, state.RequestCount))
	if limits.DailyLimit > 0 {
		remaining := limits.DailyLimit - state.DailyUsage
		if remaining < 0 {
			remaining = 0
		}
		sb.WriteString(fmt.Sprintf("- Remaining today: $%.4f\n", remaining))
	}
	return sb.String()
}

func formatDuration(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

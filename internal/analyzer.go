package internal

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/insights.tmpl prompts/relevance.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

// Analyzer runs model-backed transcript analysis. Both analysis operations
// return values, never errors: any gateway or parse failure degrades to the
// heuristic path with a reduced-confidence, fallback-marked result. Degrading
// instead of erroring is the contract the orchestrator relies on.
type Analyzer struct {
	gateway   *Gateway
	generator *InsightsGenerator
	verbose   bool
}

// NewAnalyzer creates a transcript analyzer.
func NewAnalyzer(gateway *Gateway, generator *InsightsGenerator, verbose bool) *Analyzer {
	return &Analyzer{gateway: gateway, generator: generator, verbose: verbose}
}

// SampleTranscript reduces a transcript to at most maxChars. Short texts pass
// through; long ones are sampled from the start, middle and end thirds so a
// long video's conclusion still influences the analysis, rather than taking
// a naive prefix.
func SampleTranscript(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	third := maxChars / 3
	start := text[:third]

	midPoint := len(text) / 2
	midStart := midPoint - third/2
	middle := text[midStart : midStart+third]

	end := text[len(text)-third:]

	return start + "\n...\n" + middle + "\n...\n" + end
}

// taskForDepth routes deep analysis to the premium model tier.
func taskForDepth(depth Depth, base Task) Task {
	if depth == DepthDeep {
		return TaskComplexAnalysis
	}
	return base
}

type insightsPromptData struct {
	Transcript string
}

type relevancePromptData struct {
	Transcript string
	Categories []Category
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// AnalyzeContentInsights produces insights for a transcript at the given
// depth. Network and parse failures degrade to the heuristic generator,
// marked with ModelUsed "fallback"; a cost-gate rejection is returned as an
// error so callers can stop spending.
func (a *Analyzer) AnalyzeContentInsights(ctx context.Context, transcript *TranscriptForAnalysis, depth Depth) (VideoInsights, error) {
	sampled := SampleTranscript(transcript.Text, depth.MaxChars())

	prompt, err := renderPrompt("insights.tmpl", insightsPromptData{Transcript: sampled})
	if err == nil {
		var resp *CompletionResponse
		resp, err = a.gateway.RequestForTask(ctx, taskForDepth(depth, TaskContentInsights),
			[]Message{{Role: "user", Content: prompt}}, 1200, true)
		if err == nil {
			insights, parseErr := parseInsightsResponse(resp.Content)
			if parseErr == nil {
				insights.Confidence = adjustInsightConfidence(insights, transcript.Text)
				insights.AnalysisVersion = analysisVersion
				insights.ModelUsed = ModelForTask(taskForDepth(depth, TaskContentInsights))
				insights.TokensUsed = resp.Usage.TotalTokens
				insights.EstimatedCost = resp.Cost
				return insights, nil
			}
			err = parseErr
		}
	}

	if IsCostLimitError(err) {
		return VideoInsights{}, err
	}
	if a.verbose {
		fmt.Printf("Insight analysis fell back to heuristics: %v\n", err)
	}

	fallback := a.generator.Generate(transcript.Text)
	fallback.ModelUsed = "fallback"
	return fallback, nil
}

// AnalyzeCategoryRelevance scores a transcript against categories. Network
// and parse failures degrade to a uniform 50/30 match per category, marked as
// a fallback, with keyword-overlap suggestions preserved as the only cheap
// signal the degraded path uses. A cost-gate rejection is returned as an
// error rather than degraded.
func (a *Analyzer) AnalyzeCategoryRelevance(ctx context.Context, transcript *TranscriptForAnalysis, categories []Category, depth Depth) (CategoryAnalysis, error) {
	if len(categories) == 0 {
		return CategoryAnalysis{
			CategoryMatches:     []CategoryMatch{},
			SuggestedCategories: []CategoryID{},
			AutoAssignThreshold: defaultRelevanceThreshold,
		}, nil
	}

	sampled := SampleTranscript(transcript.Text, depth.MaxChars())

	prompt, err := renderPrompt("relevance.tmpl", relevancePromptData{
		Transcript: sampled,
		Categories: categories,
	})
	if err == nil {
		var resp *CompletionResponse
		resp, err = a.gateway.RequestForTask(ctx, taskForDepth(depth, TaskRelevanceScoring),
			[]Message{{Role: "user", Content: prompt}}, 800, true)
		if err == nil {
			analysis, parseErr := parseRelevanceResponse(resp.Content, categories)
			if parseErr == nil {
				return analysis, nil
			}
			err = parseErr
		}
	}

	if IsCostLimitError(err) {
		return CategoryAnalysis{}, err
	}
	if a.verbose {
		fmt.Printf("Relevance analysis fell back to defaults: %v\n", err)
	}

	return fallbackCategoryAnalysis(transcript.Text, categories), nil
}

// adjustInsightConfidence starts from a base of 80 and moves it for
// transcript length and response richness, clamped to 60-95.
func adjustInsightConfidence(insights VideoInsights, transcript string) float64 {
	confidence := 80.0
	if len(transcript) < 500 {
		confidence -= 15
	}
	if len(transcript) > 5000 {
		confidence += 10
	}
	if len(insights.MainTopics) >= 3 {
		confidence += 5
	}
	if len(insights.LearningObjectives) >= 2 {
		confidence += 5
	}
	if len(insights.Prerequisites) >= 1 {
		confidence += 5
	}

	if confidence < 60 {
		return 60
	}
	if confidence > 95 {
		return 95
	}
	return confidence
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown fences and surrounding prose.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if after, found := strings.CutPrefix(response, "```json"); found {
		response = after
	} else if after, found := strings.CutPrefix(response, "```"); found {
		response = after
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return response
	}
	return response[start : end+1]
}

func parseInsightsResponse(response string) (VideoInsights, error) {
	var insights VideoInsights
	if err := json.Unmarshal([]byte(extractJSON(response)), &insights); err != nil {
		return VideoInsights{}, fmt.Errorf("parsing insights response: %w", err)
	}
	if insights.ContentType == "" {
		return VideoInsights{}, fmt.Errorf("insights response missing contentType")
	}

	// Bound everything the model claimed.
	insights.ContentQuality.Clarity = clampScore(insights.ContentQuality.Clarity)
	insights.ContentQuality.Completeness = clampScore(insights.ContentQuality.Completeness)
	insights.ContentQuality.PracticalValue = clampScore(insights.ContentQuality.PracticalValue)
	if insights.EstimatedLearningTime < 0 {
		insights.EstimatedLearningTime = 0
	}
	if insights.Prerequisites == nil {
		insights.Prerequisites = []string{}
	}
	if insights.LearningObjectives == nil {
		insights.LearningObjectives = []string{}
	}
	return insights, nil
}

func parseRelevanceResponse(response string, categories []Category) (CategoryAnalysis, error) {
	var parsed struct {
		CategoryMatches []struct {
			CategoryID      string   `json:"categoryId"`
			RelevanceScore  float64  `json:"relevanceScore"`
			MatchedKeywords []string `json:"matchedKeywords"`
			Confidence      float64  `json:"confidence"`
		} `json:"categoryMatches"`
		SuggestedCategories []string `json:"suggestedCategories"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return CategoryAnalysis{}, fmt.Errorf("parsing relevance response: %w", err)
	}
	if len(parsed.CategoryMatches) == 0 {
		return CategoryAnalysis{}, fmt.Errorf("relevance response has no category matches")
	}

	// Dedupe by category ID and drop IDs the request never mentioned: the
	// result must contain exactly one match per requested category.
	known := make(map[CategoryID]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	seen := make(map[CategoryID]struct{}, len(parsed.CategoryMatches))
	matches := make([]CategoryMatch, 0, len(categories))
	for _, m := range parsed.CategoryMatches {
		id := CategoryID(m.CategoryID)
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		matches = append(matches, CategoryMatch{
			CategoryID:      id,
			RelevanceScore:  clampScore(m.RelevanceScore),
			MatchedKeywords: m.MatchedKeywords,
			Confidence:      clampScore(m.Confidence),
		})
	}

	// Any category the model skipped still gets an entry, scored unknown.
	for _, c := range categories {
		if _, ok := seen[c.ID]; !ok {
			matches = append(matches, CategoryMatch{
				CategoryID:     c.ID,
				RelevanceScore: 50,
				Confidence:     30,
			})
		}
	}

	suggested := make([]CategoryID, 0, len(parsed.SuggestedCategories))
	for _, id := range parsed.SuggestedCategories {
		suggested = append(suggested, CategoryID(id))
	}

	return CategoryAnalysis{
		CategoryMatches:     matches,
		SuggestedCategories: suggested,
		AutoAssignThreshold: defaultRelevanceThreshold,
	}, nil
}

// fallbackCategoryAnalysis assigns every category the uniform 50/30
// score/confidence pair. Keyword overlap with the transcript feeds only the
// suggestions, not the scores, so degraded results stay visibly uniform.
func fallbackCategoryAnalysis(transcript string, categories []Category) CategoryAnalysis {
	lower := strings.ToLower(transcript)

	matches := make([]CategoryMatch, 0, len(categories))
	var suggested []CategoryID
	for _, c := range categories {
		matches = append(matches, CategoryMatch{
			CategoryID:      c.ID,
			RelevanceScore:  50,
			MatchedKeywords: []string{},
			Confidence:      30,
		})
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				suggested = append(suggested, c.ID)
				break
			}
		}
	}

	return CategoryAnalysis{
		CategoryMatches:     matches,
		SuggestedCategories: suggested,
		AutoAssignThreshold: defaultRelevanceThreshold,
		Fallback:            true,
	}
}

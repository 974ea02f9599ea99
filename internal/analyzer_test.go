package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestAnalyzer(t *testing.T, client CompletionClient) *Analyzer {
	t.Helper()
	gateway := NewGateway(client, newTestTracker(t), DefaultCostLimits(), false)
	return NewAnalyzer(gateway, NewInsightsGenerator(), false)
}

func transcriptFor(text string) *TranscriptForAnalysis {
	return &TranscriptForAnalysis{
		Text:      text,
		WordCount: CountWords(text),
		Quality:   QualityMedium,
	}
}

const insightsJSON = `{
	"contentType": "tutorial",
	"difficulty": "beginner",
	"estimatedLearningTime": 25,
	"prerequisites": ["basic programming"],
	"learningObjectives": ["understand lists", "write loops"],
	"contentQuality": {"clarity": 85, "completeness": 70, "practicalValue": 90},
	"mainTopics": ["python", "lists", "loops"],
	"technicalTerms": ["Python"],
	"summary": "A hands-on introduction to Python lists.",
	"bestFor": ["beginners"]
}`

func TestAnalyzeContentInsightsParsesModelResponse(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{
		Content: insightsJSON,
		Usage:   CompletionUsage{PromptTokens: 500, CompletionTokens: 200, TotalTokens: 700},
	}}
	analyzer := newTestAnalyzer(t, client)

	text := strings.Repeat("in this tutorial we learn python lists step by step ", 120)
	insights, err := analyzer.AnalyzeContentInsights(context.Background(), transcriptFor(text), DepthStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.calls != 1 {
		t.Fatalf("client calls = %d; want 1", client.calls)
	}
	if insights.ContentType != "tutorial" {
		t.Errorf("ContentType = %q; want tutorial", insights.ContentType)
	}
	if insights.ModelUsed != "gpt-4o-mini" {
		t.Errorf("ModelUsed = %q; want gpt-4o-mini", insights.ModelUsed)
	}
	if insights.TokensUsed != 700 {
		t.Errorf("TokensUsed = %d; want 700", insights.TokensUsed)
	}
	if insights.Confidence < 60 || insights.Confidence > 95 {
		t.Errorf("Confidence = %v; want within [60, 95]", insights.Confidence)
	}
	if insights.AnalysisVersion == "" {
		t.Error("AnalysisVersion not set")
	}
}

func TestAnalyzeContentInsightsDeepUsesPremiumModel(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{Content: insightsJSON}}
	analyzer := newTestAnalyzer(t, client)

	insights, err := analyzer.AnalyzeContentInsights(context.Background(), transcriptFor("a tutorial"), DepthDeep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights.ModelUsed != "gpt-4o" {
		t.Errorf("ModelUsed = %q; want gpt-4o for deep analysis", insights.ModelUsed)
	}
}

func TestAnalyzeContentInsightsFallsBackOnError(t *testing.T) {
	client := &fakeCompletionClient{err: errors.New("boom")}
	analyzer := newTestAnalyzer(t, client)

	text := "welcome to this tutorial on the basics of python where we go step by step"
	insights, err := analyzer.AnalyzeContentInsights(context.Background(), transcriptFor(text), DepthStandard)
	if err != nil {
		t.Fatalf("network failure should degrade, not error: %v", err)
	}

	if insights.ModelUsed != "fallback" {
		t.Errorf("ModelUsed = %q; want fallback", insights.ModelUsed)
	}
	if insights.ContentType != "tutorial" {
		t.Errorf("heuristic ContentType = %q; want tutorial", insights.ContentType)
	}
	if insights.Confidence > 60 {
		t.Errorf("fallback Confidence = %v; want at most 60", insights.Confidence)
	}
}

func TestAnalyzeContentInsightsFallsBackOnMalformedResponse(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{Content: "sorry, I cannot help with that"}}
	analyzer := newTestAnalyzer(t, client)

	insights, err := analyzer.AnalyzeContentInsights(context.Background(), transcriptFor("a short demo"), DepthQuick)
	if err != nil {
		t.Fatalf("unparseable response should degrade, not error: %v", err)
	}
	if insights.ModelUsed != "fallback" {
		t.Errorf("ModelUsed = %q; want fallback on unparseable response", insights.ModelUsed)
	}
}

func TestAnalyzeContentInsightsCostLimitIsAnError(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{Content: insightsJSON}}
	tracker := newTestTracker(t)
	tracker.Record(4.9999)
	gateway := NewGateway(client, tracker, CostLimits{DailyLimit: 5.00, PerRequestLimit: 0.25}, false)
	analyzer := NewAnalyzer(gateway, NewInsightsGenerator(), false)

	text := strings.Repeat("budget exhausted transcript ", 200)
	_, err := analyzer.AnalyzeContentInsights(context.Background(), transcriptFor(text), DepthStandard)
	if !IsCostLimitError(err) {
		t.Fatalf("err = %v; want a cost-limit rejection, not a fallback", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times after cost rejection; want 0", client.calls)
	}
}

func TestAnalyzeCategoryRelevanceCostLimitIsAnError(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{Content: "{}"}}
	tracker := newTestTracker(t)
	tracker.Record(4.9999)
	gateway := NewGateway(client, tracker, CostLimits{DailyLimit: 5.00, PerRequestLimit: 0.25}, false)
	analyzer := NewAnalyzer(gateway, NewInsightsGenerator(), false)

	_, err := analyzer.AnalyzeCategoryRelevance(context.Background(), transcriptFor("anything at all"), testCategories(), DepthStandard)
	if !IsCostLimitError(err) {
		t.Fatalf("err = %v; want a cost-limit rejection, not a fallback", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times after cost rejection; want 0", client.calls)
	}
}

func testCategories() []Category {
	return []Category{
		{ID: "python-basics", Name: "Python Basics", Keywords: []string{"python", "basics"}},
		{ID: "web-dev", Name: "Web Development", Keywords: []string{"http", "javascript"}},
	}
}

func TestAnalyzeCategoryRelevanceExactlyOneMatchPerCategory(t *testing.T) {
	// Response has a duplicate, an unknown category, and skips web-dev.
	client := &fakeCompletionClient{response: &CompletionResponse{Content: `{
		"categoryMatches": [
			{"categoryId": "python-basics", "relevanceScore": 88, "matchedKeywords": ["python"], "confidence": 90},
			{"categoryId": "python-basics", "relevanceScore": 40, "confidence": 50},
			{"categoryId": "not-requested", "relevanceScore": 99, "confidence": 99}
		],
		"suggestedCategories": ["data-science"]
	}`}}
	analyzer := newTestAnalyzer(t, client)

	analysis, err := analyzer.AnalyzeCategoryRelevance(context.Background(), transcriptFor("python lists"), testCategories(), DepthStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.CategoryMatches) != 2 {
		t.Fatalf("got %d matches; want exactly 2 (one per requested category)", len(analysis.CategoryMatches))
	}
	byID := make(map[CategoryID]CategoryMatch)
	for _, m := range analysis.CategoryMatches {
		byID[m.CategoryID] = m
	}
	if m := byID["python-basics"]; m.RelevanceScore != 88 {
		t.Errorf("python-basics score = %v; want 88 (first occurrence wins)", m.RelevanceScore)
	}
	if m, ok := byID["web-dev"]; !ok {
		t.Error("web-dev missing from matches")
	} else if m.RelevanceScore != 50 || m.Confidence != 30 {
		t.Errorf("skipped category scored %v/%v; want 50/30", m.RelevanceScore, m.Confidence)
	}
	if analysis.Fallback {
		t.Error("Fallback set on a successful model response")
	}
	if len(analysis.SuggestedCategories) != 1 || analysis.SuggestedCategories[0] != "data-science" {
		t.Errorf("SuggestedCategories = %v; want [data-science]", analysis.SuggestedCategories)
	}
}

func TestAnalyzeCategoryRelevanceFallbackUniform(t *testing.T) {
	client := &fakeCompletionClient{err: errors.New("service down")}
	analyzer := newTestAnalyzer(t, client)

	analysis, err := analyzer.AnalyzeCategoryRelevance(context.Background(), transcriptFor("learn python basics today"), testCategories(), DepthStandard)
	if err != nil {
		t.Fatalf("service failure should degrade, not error: %v", err)
	}

	if !analysis.Fallback {
		t.Fatal("Fallback not set on degraded result")
	}
	if len(analysis.CategoryMatches) != 2 {
		t.Fatalf("got %d matches; want 2", len(analysis.CategoryMatches))
	}
	for _, m := range analysis.CategoryMatches {
		if m.RelevanceScore != 50 || m.Confidence != 30 {
			t.Errorf("match %s scored %v/%v; want uniform 50/30", m.CategoryID, m.RelevanceScore, m.Confidence)
		}
	}
	// Keyword overlap with the transcript still drives suggestions.
	if len(analysis.SuggestedCategories) != 1 || analysis.SuggestedCategories[0] != "python-basics" {
		t.Errorf("SuggestedCategories = %v; want [python-basics]", analysis.SuggestedCategories)
	}
}

func TestAnalyzeCategoryRelevanceNoCategories(t *testing.T) {
	client := &fakeCompletionClient{response: &CompletionResponse{Content: "{}"}}
	analyzer := newTestAnalyzer(t, client)

	analysis, err := analyzer.AnalyzeCategoryRelevance(context.Background(), transcriptFor("anything"), nil, DepthStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times for empty category list; want 0", client.calls)
	}
	if len(analysis.CategoryMatches) != 0 {
		t.Errorf("got %d matches; want 0", len(analysis.CategoryMatches))
	}
}

func TestSampleTranscript(t *testing.T) {
	short := "short text"
	if got := SampleTranscript(short, 100); got != short {
		t.Errorf("short text altered: %q", got)
	}

	long := strings.Repeat("a", 4000) + strings.Repeat("b", 4000) + strings.Repeat("c", 4000)
	sampled := SampleTranscript(long, 3000)
	if len(sampled) > 3000+len("\n...\n")*2 {
		t.Errorf("sampled length %d exceeds budget", len(sampled))
	}
	if !strings.HasPrefix(sampled, "a") {
		t.Error("sample missing the opening third")
	}
	if !strings.HasSuffix(sampled, "c") {
		t.Error("sample missing the closing third")
	}
	if !strings.Contains(sampled, "b") {
		t.Error("sample missing the middle third")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", "Here you go: {\"a\": 1} hope it helps", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInsightsResponseRejectsMissingContentType(t *testing.T) {
	if _, err := parseInsightsResponse(`{"difficulty": "beginner"}`); err == nil {
		t.Error("expected error for response without contentType")
	}
}

func TestParseInsightsResponseClampsScores(t *testing.T) {
	insights, err := parseInsightsResponse(`{
		"contentType": "talk",
		"contentQuality": {"clarity": 150, "completeness": -20, "practicalValue": 55},
		"estimatedLearningTime": -10
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if insights.ContentQuality.Clarity != 100 {
		t.Errorf("Clarity = %v; want clamped to 100", insights.ContentQuality.Clarity)
	}
	if insights.ContentQuality.Completeness != 0 {
		t.Errorf("Completeness = %v; want clamped to 0", insights.ContentQuality.Completeness)
	}
	if insights.EstimatedLearningTime != 0 {
		t.Errorf("EstimatedLearningTime = %d; want 0", insights.EstimatedLearningTime)
	}
	if insights.Prerequisites == nil || insights.LearningObjectives == nil {
		t.Error("nil slices not normalized to empty")
	}
}

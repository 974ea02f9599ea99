package internal

import "time"

// Depth selects how much of the transcript is analyzed, trading thoroughness
// (and cost) for speed.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthBasic    Depth = "basic"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// MaxChars returns the transcript length budget for this depth.
func (d Depth) MaxChars() int {
	switch d {
	case DepthQuick:
		return 500
	case DepthBasic:
		return 2000
	case DepthDeep:
		return 15000
	default:
		return 8000
	}
}

// IsValid reports whether d is a known depth tier.
func (d Depth) IsValid() bool {
	switch d {
	case DepthQuick, DepthBasic, DepthStandard, DepthDeep:
		return true
	}
	return false
}

// TranscriptQuality is a coarse assessment of how usable a transcript is.
type TranscriptQuality string

const (
	QualityLow    TranscriptQuality = "low"
	QualityMedium TranscriptQuality = "medium"
	QualityHigh   TranscriptQuality = "high"
)

// Category is a user-defined learning category. The pipeline only reads
// categories; it never mutates them.
type Category struct {
	ID          CategoryID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Criteria    string     `json:"criteria"`
	Keywords    []string   `json:"keywords,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Color       string     `json:"color,omitempty"`
}

// AnalysisRequest is the caller-constructed input to AnalyzeVideo.
type AnalysisRequest struct {
	VideoID    VideoID
	Transcript *TranscriptForAnalysis
	Categories []Category
	Depth      Depth

	// SkipInsights / SkipRelevance substitute default placeholders for the
	// corresponding branch instead of running it.
	SkipInsights  bool
	SkipRelevance bool
}

// ContentQuality holds the quality sub-scores of VideoInsights, each 0-100.
type ContentQuality struct {
	Clarity        float64 `json:"clarity"`
	Completeness   float64 `json:"completeness"`
	PracticalValue float64 `json:"practicalValue"`
}

// VideoInsights describes what a video teaches and how well. Produced by the
// model-backed analyzer or, on failure, by the heuristic generator — in which
// case ModelUsed is "fallback" (or "none") and Confidence is reduced.
type VideoInsights struct {
	ContentType           string         `json:"contentType"`
	Difficulty            string         `json:"difficulty"`
	EstimatedLearningTime int            `json:"estimatedLearningTime"` // minutes
	Prerequisites         []string       `json:"prerequisites"`
	LearningObjectives    []string       `json:"learningObjectives"`
	ContentQuality        ContentQuality `json:"contentQuality"`
	MainTopics            []string       `json:"mainTopics"`
	TechnicalTerms        []string       `json:"technicalTerms"`
	Summary               string         `json:"summary"`
	BestFor               []string       `json:"bestFor"`
	Confidence            float64        `json:"confidence"`
	AnalysisVersion       string         `json:"analysisVersion"`
	ModelUsed             string         `json:"modelUsed"`
	TokensUsed            int64          `json:"tokensUsed"`
	EstimatedCost         float64        `json:"estimatedCost"`
}

// CategoryMatch scores one category against a transcript.
type CategoryMatch struct {
	CategoryID      CategoryID `json:"categoryId"`
	RelevanceScore  float64    `json:"relevanceScore"`  // 0-100
	MatchedKeywords []string   `json:"matchedKeywords"`
	Confidence      float64    `json:"confidence"` // 0-100
}

// CategoryAnalysis is the category-relevance half of an analysis. Matches are
// unique per category ID by construction.
type CategoryAnalysis struct {
	CategoryMatches     []CategoryMatch `json:"categoryMatches"`
	SuggestedCategories []CategoryID    `json:"suggestedCategories"`
	AutoAssignThreshold float64         `json:"autoAssignThreshold"`
	Fallback            bool            `json:"fallback,omitempty"`
}

// AnalysisResult is the terminal artifact of the orchestrator, immutable once
// produced and identified by its cache key.
type AnalysisResult struct {
	VideoID         VideoID                `json:"videoId"`
	RelevanceScores map[CategoryID]float64 `json:"relevanceScores"`
	Insights        VideoInsights          `json:"insights"`
	CategoryAnalysis CategoryAnalysis      `json:"categoryAnalysis"`
	ProcessingTime  time.Duration          `json:"processingTime"`
	Timestamp       time.Time              `json:"timestamp"`
	CacheKey        string                 `json:"cacheKey"`
}

// analysisVersion tags results so cached entries from older heuristics can be
// told apart.
const analysisVersion = "1.0"

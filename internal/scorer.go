package internal

import "math"

// ChunkWeights bias relevance toward where in the video a match occurred.
// Intros and bodies carry most of the signal; conclusions recap.
type ChunkWeights struct {
	First  float64
	Middle float64
	Last   float64
}

// Scorer converts raw category-match output into normalized 0-100 relevance
// scores.
type Scorer struct {
	threshold float64
	weights   ChunkWeights
}

const defaultRelevanceThreshold = 70

// NewScorer creates a scorer with the default threshold and chunk weighting.
func NewScorer() *Scorer {
	return &Scorer{
		threshold: defaultRelevanceThreshold,
		weights:   ChunkWeights{First: 0.4, Middle: 0.4, Last: 0.2},
	}
}

// NewScorerWithThreshold creates a scorer with a custom relevance threshold.
func NewScorerWithThreshold(threshold float64) *Scorer {
	s := NewScorer()
	s.threshold = threshold
	return s
}

// CalculateRelevanceScores confidence-weights each category match into a
// final score: round(relevance × confidence / 100), clamped to 0-100 even
// when the inputs are out of range.
func (s *Scorer) CalculateRelevanceScores(analysis CategoryAnalysis) map[CategoryID]float64 {
	scores := make(map[CategoryID]float64, len(analysis.CategoryMatches))
	for _, match := range analysis.CategoryMatches {
		raw := match.RelevanceScore * match.Confidence / 100
		scores[match.CategoryID] = math.Round(clampScore(raw))
	}
	return scores
}

// IsRelevant reports whether a score clears the relevance threshold.
func (s *Scorer) IsRelevant(score float64) bool {
	return score >= s.threshold
}

// Threshold returns the configured relevance threshold.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// WeightedChunkScore combines per-chunk scores for callers that score the
// intro, body and conclusion of a transcript separately.
func (s *Scorer) WeightedChunkScore(first, middle, last float64) float64 {
	combined := first*s.weights.First + middle*s.weights.Middle + last*s.weights.Last
	return math.Round(clampScore(combined))
}

// OverallConfidence summarizes how trustworthy a result is: the average match
// confidence plus a bonus of 5 points per above-threshold match (capped at
// 15), clamped to 40-95. No matches at all means a flat 30.
func (s *Scorer) OverallConfidence(analysis CategoryAnalysis) float64 {
	if len(analysis.CategoryMatches) == 0 {
		return 30
	}

	var sum float64
	aboveThreshold := 0
	for _, match := range analysis.CategoryMatches {
		sum += match.Confidence
		if s.IsRelevant(match.RelevanceScore) {
			aboveThreshold++
		}
	}
	avg := sum / float64(len(analysis.CategoryMatches))

	bonus := math.Min(15, 5*float64(aboveThreshold))
	confidence := avg + bonus

	if confidence < 40 {
		return 40
	}
	if confidence > 95 {
		return 95
	}
	return confidence
}

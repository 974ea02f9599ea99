package internal

import (
	"fmt"
	"math"
	"strings"
)

// InsightsGenerator produces content insights from nothing but the transcript
// text. It is the analysis fallback of last resort: it must return a valid
// result for any input, including an empty transcript.
type InsightsGenerator struct{}

// NewInsightsGenerator creates a heuristic insights generator.
func NewInsightsGenerator() *InsightsGenerator {
	return &InsightsGenerator{}
}

// difficultyFactor scales learning time by how demanding the content is.
func difficultyFactor(difficulty string) float64 {
	switch difficulty {
	case "beginner":
		return 0.8
	case "advanced":
		return 1.3
	default:
		return 1.0
	}
}

var contentTypeMarkers = []struct {
	contentType string
	markers     []string
}{
	{"tutorial", []string{"tutorial", "how to", "step by step", "let's build", "walkthrough"}},
	{"course", []string{"course", "lesson", "module", "curriculum", "lecture"}},
	{"review", []string{"review", "comparison", "versus", "pros and cons"}},
	{"talk", []string{"conference", "keynote", "talk", "presentation"}},
	{"demo", []string{"demo", "demonstration", "showcase", "quick look"}},
}

// guessContentType classifies the transcript from marker phrases.
func guessContentType(text string) string {
	lower := strings.ToLower(text)
	for _, ct := range contentTypeMarkers {
		for _, m := range ct.markers {
			if strings.Contains(lower, m) {
				return ct.contentType
			}
		}
	}
	return "educational"
}

// guessDifficulty classifies difficulty from vocabulary cues.
func guessDifficulty(text string) string {
	lower := strings.ToLower(text)
	advanced := 0
	beginner := 0
	for _, m := range []string{"advanced", "optimization", "architecture", "internals", "in depth", "deep dive"} {
		advanced += strings.Count(lower, m)
	}
	for _, m := range []string{"beginner", "basics", "introduction", "getting started", "simple", "easy"} {
		beginner += strings.Count(lower, m)
	}
	switch {
	case advanced > beginner:
		return "advanced"
	case beginner > advanced:
		return "beginner"
	default:
		return "intermediate"
	}
}

// Generate builds insights from the transcript alone. Deterministic: the same
// transcript always yields the same insights.
func (gen *InsightsGenerator) Generate(transcript string) VideoInsights {
	contentType := guessContentType(transcript)
	difficulty := guessDifficulty(transcript)
	return gen.GenerateWith(contentType, difficulty, transcript)
}

// GenerateWith builds insights for a known content type and difficulty,
// useful when a partial model response supplied those fields before failing.
func (gen *InsightsGenerator) GenerateWith(contentType, difficulty, transcript string) VideoInsights {
	length := len(transcript)

	// Learning time: one minute per ~100 characters, clamped, scaled by
	// difficulty.
	baseMinutes := math.Max(5, math.Min(120, float64(length)/100))
	learningTime := int(math.Round(baseMinutes * difficultyFactor(difficulty)))

	topics := TopWordsByFrequency(transcript, 4, 5)
	terms := ExtractTechnicalTerms(transcript, 10)
	wordCount := CountWords(transcript)

	// Quality sub-scores are linear combinations of cheap signals, bounded to
	// 0-100. An empty transcript bottoms out at the minimum viable scores.
	clarity := clampScore(40 + float64(wordCount)/50)
	completeness := clampScore(30 + float64(length)/200)
	practical := 50.0
	if contentType == "tutorial" || contentType == "demo" {
		practical = 75
	}

	confidence := clampScore(30 + math.Min(25, float64(wordCount)/100) + 5*float64(len(topics)))
	if confidence > 60 {
		confidence = 60 // heuristics never claim model-level certainty
	}

	summary := heuristicSummary(contentType, difficulty, topics)

	return VideoInsights{
		ContentType:           contentType,
		Difficulty:            difficulty,
		EstimatedLearningTime: learningTime,
		Prerequisites:         []string{},
		LearningObjectives:    objectivesFromTopics(topics),
		ContentQuality: ContentQuality{
			Clarity:        clarity,
			Completeness:   completeness,
			PracticalValue: practical,
		},
		MainTopics:      topics,
		TechnicalTerms:  terms,
		Summary:         summary,
		BestFor:         []string{fmt.Sprintf("%s learners", difficulty)},
		Confidence:      confidence,
		AnalysisVersion: analysisVersion,
		ModelUsed:       "none",
	}
}

func heuristicSummary(contentType, difficulty string, topics []string) string {
	if len(topics) == 0 {
		return fmt.Sprintf("A %s-level %s video.", difficulty, contentType)
	}
	shown := topics
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return fmt.Sprintf("A %s-level %s covering %s.", difficulty, contentType, strings.Join(shown, ", "))
}

func objectivesFromTopics(topics []string) []string {
	objectives := make([]string, 0, len(topics))
	for i, topic := range topics {
		if i >= 3 {
			break
		}
		objectives = append(objectives, "Understand "+topic)
	}
	return objectives
}

package internal

import (
	"strings"
	"testing"
)

func TestGenerateEmptyTranscript(t *testing.T) {
	gen := NewInsightsGenerator()
	insights := gen.Generate("")

	if insights.ContentType == "" {
		t.Error("ContentType empty")
	}
	if insights.Difficulty == "" {
		t.Error("Difficulty empty")
	}
	if insights.EstimatedLearningTime < 5 {
		t.Errorf("EstimatedLearningTime = %d; want at least 5", insights.EstimatedLearningTime)
	}
	if insights.Summary == "" {
		t.Error("Summary empty")
	}
	if insights.Prerequisites == nil || insights.LearningObjectives == nil {
		t.Error("nil slices in result")
	}
	if insights.Confidence <= 0 || insights.Confidence > 60 {
		t.Errorf("Confidence = %v; want in (0, 60]", insights.Confidence)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := NewInsightsGenerator()
	text := "a tutorial about python basics for beginners, step by step"

	first := gen.Generate(text)
	second := gen.Generate(text)
	if first.Summary != second.Summary || first.Confidence != second.Confidence {
		t.Error("Generate is not deterministic for identical input")
	}
}

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"in this tutorial we build a web app step by step", "tutorial"},
		{"welcome to lesson three of the course", "course"},
		{"my honest review and comparison of both laptops", "review"},
		{"this conference keynote covers the state of the language", "talk"},
		{"a quick look at the new release", "demo"},
		{"some general discussion of ideas", "educational"},
	}
	for _, tt := range tests {
		if got := guessContentType(tt.text); got != tt.want {
			t.Errorf("guessContentType(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestGuessDifficulty(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a deep dive into compiler internals and optimization", "advanced"},
		{"getting started with the basics, nice and easy", "beginner"},
		{"we talk about some topics", "intermediate"},
	}
	for _, tt := range tests {
		if got := guessDifficulty(tt.text); got != tt.want {
			t.Errorf("guessDifficulty(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestGenerateLearningTimeClamp(t *testing.T) {
	gen := NewInsightsGenerator()

	long := gen.GenerateWith("educational", "intermediate", strings.Repeat("word ", 10000))
	if long.EstimatedLearningTime != 120 {
		t.Errorf("long transcript learning time = %d; want clamped to 120", long.EstimatedLearningTime)
	}

	short := gen.GenerateWith("educational", "intermediate", "tiny")
	if short.EstimatedLearningTime != 5 {
		t.Errorf("short transcript learning time = %d; want floor of 5", short.EstimatedLearningTime)
	}
}

func TestGenerateWithDifficultyScaling(t *testing.T) {
	gen := NewInsightsGenerator()
	text := strings.Repeat("word ", 1000) // 5000 chars, 50 base minutes

	beginner := gen.GenerateWith("educational", "beginner", text)
	advanced := gen.GenerateWith("educational", "advanced", text)
	if beginner.EstimatedLearningTime >= advanced.EstimatedLearningTime {
		t.Errorf("beginner time %d not below advanced time %d",
			beginner.EstimatedLearningTime, advanced.EstimatedLearningTime)
	}
}

func TestGeneratePracticalValueForTutorials(t *testing.T) {
	gen := NewInsightsGenerator()
	tutorial := gen.GenerateWith("tutorial", "beginner", "some text")
	talk := gen.GenerateWith("talk", "beginner", "some text")
	if tutorial.ContentQuality.PracticalValue <= talk.ContentQuality.PracticalValue {
		t.Errorf("tutorial practical value %v not above talk %v",
			tutorial.ContentQuality.PracticalValue, talk.ContentQuality.PracticalValue)
	}
}

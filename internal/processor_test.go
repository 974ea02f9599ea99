package internal

import (
	"strings"
	"testing"
)

func rawTranscriptFor(segments []TranscriptSegment) *RawTranscript {
	return &RawTranscript{
		VideoID:  "dQw4w9WgXcQ",
		Language: "en",
		Segments: segments,
		Quality:  QualityMedium,
	}
}

func TestProcessForAnalysisCleaning(t *testing.T) {
	raw := rawTranscriptFor([]TranscriptSegment{
		{Start: 0, Duration: 2, Text: "[Music]"},
		{Start: 2, Duration: 3, Text: "welcome to this tutorial on goroutines (applause)"},
		{Start: 5, Duration: 3, Text: "we will cover channels and select statements today"},
	})

	processed := NewProcessor().ProcessForAnalysis(raw, DefaultProcessOptions())

	if strings.Contains(processed.Text, "[Music]") {
		t.Errorf("processed text still contains music annotation: %q", processed.Text)
	}
	if strings.Contains(processed.Text, "applause") {
		t.Errorf("processed text still contains sound effect: %q", processed.Text)
	}
	if !processed.ProcessingFlags.Cleaned {
		t.Error("Cleaned flag not set")
	}
	if !processed.ProcessingFlags.Filtered {
		t.Error("Filtered flag not set despite a dropped empty segment")
	}
	if processed.WordCount == 0 {
		t.Error("WordCount is zero for non-empty transcript")
	}
}

func TestProcessForAnalysisDoesNotMutateInput(t *testing.T) {
	raw := rawTranscriptFor([]TranscriptSegment{
		{Start: 0, Duration: 2, Text: "[Music]"},
		{Start: 2, Duration: 3, Text: "some actual spoken words here in this segment"},
	})

	NewProcessor().ProcessForAnalysis(raw, DefaultProcessOptions())

	if raw.Segments[0].Text != "[Music]" {
		t.Errorf("input segment mutated: %q", raw.Segments[0].Text)
	}
}

func TestMergeShortSegments(t *testing.T) {
	segments := []TranscriptSegment{
		{Start: 0, Duration: 1, Text: "so"},
		{Start: 1, Duration: 2, Text: "today we talk about generics"},
		{Start: 3, Duration: 2, Text: "they landed in go one eighteen"},
		{Start: 5, Duration: 1, Text: "yeah"},
	}

	merged := mergeShortSegments(segments, 3)

	if len(merged) != 2 {
		t.Fatalf("mergeShortSegments produced %d segments; want 2: %+v", len(merged), merged)
	}

	// The first merged segment must span from the first short segment's start
	// through the end of what it absorbed.
	first := merged[0]
	if first.Start != 0 {
		t.Errorf("first segment start = %v; want 0", first.Start)
	}
	if got := first.End(); got != 3 {
		t.Errorf("first segment end = %v; want 3", got)
	}

	last := merged[1]
	if got := last.End(); got != 6 {
		t.Errorf("last segment end = %v; want 6", got)
	}
}

func TestMergeShortSegmentsCoversTimeSpan(t *testing.T) {
	segments := []TranscriptSegment{
		{Start: 0, Duration: 1, Text: "a"},
		{Start: 1, Duration: 1, Text: "b"},
		{Start: 2, Duration: 4, Text: "c"},
	}

	merged := mergeShortSegments(segments, 3)

	if len(merged) != 1 {
		t.Fatalf("mergeShortSegments produced %d segments; want 1", len(merged))
	}
	if merged[0].Start != 0 || merged[0].End() != 6 {
		t.Errorf("merged span [%v, %v]; want [0, 6]", merged[0].Start, merged[0].End())
	}
}

func TestCreateChunksOverlap(t *testing.T) {
	// 25 words split over segments, chunked into windows of 10 with overlap 2.
	words := make([]string, 25)
	for i := range words {
		words[i] = "word" + string(rune('a'+i))
	}
	segments := []TranscriptSegment{
		{Start: 0, Duration: 10, Text: strings.Join(words[:12], " ")},
		{Start: 10, Duration: 10, Text: strings.Join(words[12:], " ")},
	}

	processed := NewProcessor().ProcessForAnalysis(rawTranscriptFor(segments), ProcessOptions{})
	chunks := NewProcessor().CreateChunks(processed, 10, 2)

	if len(chunks) != 3 {
		t.Fatalf("CreateChunks produced %d chunks; want 3", len(chunks))
	}

	// Consecutive chunks share the overlap words.
	firstWords := strings.Fields(chunks[0].Text)
	secondWords := strings.Fields(chunks[1].Text)
	if firstWords[8] != secondWords[0] || firstWords[9] != secondWords[1] {
		t.Errorf("chunks do not overlap: first tail %v, second head %v", firstWords[8:], secondWords[:2])
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
		if c.WordCount > 10 {
			t.Errorf("chunk %d has %d words; want at most 10", i, c.WordCount)
		}
		if c.EndTime < c.StartTime {
			t.Errorf("chunk %d has EndTime %v before StartTime %v", i, c.EndTime, c.StartTime)
		}
	}
}

func TestCreateChunksEmpty(t *testing.T) {
	processed := &TranscriptForAnalysis{}
	if chunks := NewProcessor().CreateChunks(processed, 500, 50); chunks != nil {
		t.Errorf("CreateChunks on empty transcript = %v; want nil", chunks)
	}
}

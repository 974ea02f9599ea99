package internal

import (
	"strings"
)

// ProcessingFlags record which normalization passes ran.
type ProcessingFlags struct {
	Cleaned  bool `json:"cleaned"`
	Merged   bool `json:"merged"`
	Filtered bool `json:"filtered"`
}

// TranscriptForAnalysis is the processed, disposable projection of a raw
// transcript that the analyzer consumes. It is never persisted.
type TranscriptForAnalysis struct {
	Text              string              `json:"text"`
	Segments          []TranscriptSegment `json:"segments"`
	WordCount         int                 `json:"wordCount"`
	EstimatedReadTime int                 `json:"estimatedReadTime"` // minutes
	Quality           TranscriptQuality   `json:"quality"`
	ProcessingFlags   ProcessingFlags     `json:"processingFlags"`
}

// ProcessOptions configure transcript processing.
type ProcessOptions struct {
	CleanText          bool
	MergeShortSegments bool
	MinSegmentLength   int // words
	RemoveMusic        bool
	RemoveSoundEffects bool
}

// DefaultProcessOptions returns the standard processing configuration.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		CleanText:          true,
		MergeShortSegments: true,
		MinSegmentLength:   3,
		RemoveMusic:        true,
		RemoveSoundEffects: true,
	}
}

// Processor turns raw transcripts into model-ready text and chunks.
type Processor struct{}

// NewProcessor creates a transcript processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// readingWPM is the assumed reading speed for the estimated read time.
const readingWPM = 200

// ProcessForAnalysis cleans, merges and projects a raw transcript. The input
// is read-only; a fresh value is always returned.
func (p *Processor) ProcessForAnalysis(raw *RawTranscript, opts ProcessOptions) *TranscriptForAnalysis {
	segments := make([]TranscriptSegment, len(raw.Segments))
	copy(segments, raw.Segments)

	flags := ProcessingFlags{}

	if opts.CleanText {
		filtered := segments[:0]
		for _, seg := range segments {
			text := seg.Text
			if opts.RemoveMusic || opts.RemoveSoundEffects {
				text = CleanCaptionText(text)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				flags.Filtered = true
				continue
			}
			seg.Text = text
			filtered = append(filtered, seg)
		}
		segments = filtered
		flags.Cleaned = true
	}

	if opts.MergeShortSegments {
		minLen := opts.MinSegmentLength
		if minLen <= 0 {
			minLen = 3
		}
		segments = mergeShortSegments(segments, minLen)
		flags.Merged = true
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	text := strings.Join(texts, " ")
	wordCount := CountWords(text)

	readTime := wordCount / readingWPM
	if readTime < 1 && wordCount > 0 {
		readTime = 1
	}

	return &TranscriptForAnalysis{
		Text:              text,
		Segments:          segments,
		WordCount:         wordCount,
		EstimatedReadTime: readTime,
		Quality:           raw.Quality,
		ProcessingFlags:   flags,
	}
}

// mergeShortSegments walks segments in order, merging a segment into the
// running accumulator whenever either side is shorter than minWords. Greedy
// single pass: deterministic for a given segment order, not globally optimal.
// The merged sequence always covers the same time span as the input.
func mergeShortSegments(segments []TranscriptSegment, minWords int) []TranscriptSegment {
	if len(segments) == 0 {
		return segments
	}

	merged := make([]TranscriptSegment, 0, len(segments))
	acc := segments[0]

	for _, seg := range segments[1:] {
		if CountWords(acc.Text) < minWords || CountWords(seg.Text) < minWords {
			// Extend the accumulator to cover both spans.
			end := seg.End()
			if accEnd := acc.End(); accEnd > end {
				end = accEnd
			}
			acc.Duration = end - acc.Start
			acc.Text = acc.Text + " " + seg.Text
			continue
		}
		merged = append(merged, acc)
		acc = seg
	}

	return append(merged, acc)
}

// TranscriptChunk is one model-input window of a long transcript.
type TranscriptChunk struct {
	Index     int     `json:"index"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	WordCount int     `json:"wordCount"`
}

const (
	defaultChunkWords   = 500
	defaultOverlapWords = 50
)

// CreateChunks slices a processed transcript into overlapping word windows of
// at most maxWords, carrying overlapWords from the tail of each chunk into
// the next so context crossing a boundary is not lost. Timestamps come from
// the segments the window's words belong to.
func (p *Processor) CreateChunks(t *TranscriptForAnalysis, maxWords, overlapWords int) []TranscriptChunk {
	if maxWords <= 0 {
		maxWords = defaultChunkWords
	}
	if overlapWords < 0 || overlapWords >= maxWords {
		overlapWords = defaultOverlapWords
	}

	// Flatten to words with the timing of their source segment.
	type timedWord struct {
		word  string
		start float64
		end   float64
	}
	var words []timedWord
	for _, seg := range t.Segments {
		for _, w := range strings.Fields(seg.Text) {
			words = append(words, timedWord{word: w, start: seg.Start, end: seg.End()})
		}
	}
	if len(words) == 0 {
		return nil
	}

	var chunks []TranscriptChunk
	step := maxWords - overlapWords
	for start := 0; start < len(words); start += step {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}

		window := words[start:end]
		parts := make([]string, len(window))
		for i, tw := range window {
			parts[i] = tw.word
		}

		chunks = append(chunks, TranscriptChunk{
			Index:     len(chunks),
			Text:      strings.Join(parts, " "),
			StartTime: window[0].start,
			EndTime:   window[len(window)-1].end,
			WordCount: len(window),
		})

		if end == len(words) {
			break
		}
	}

	return chunks
}

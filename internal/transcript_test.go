package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeFetcher is a scripted TranscriptFetcher for extractor tests.
type fakeFetcher struct {
	tracks     []CaptionTrack
	segments   []TranscriptSegment
	listErrs   []error // consumed per call; nil means success
	listCalls  int
	fetchCalls int
}

func (f *fakeFetcher) ListTracks(ctx context.Context, videoID VideoID) ([]CaptionTrack, error) {
	call := f.listCalls
	f.listCalls++
	if call < len(f.listErrs) && f.listErrs[call] != nil {
		return nil, f.listErrs[call]
	}
	return f.tracks, nil
}

func (f *fakeFetcher) FetchTrack(ctx context.Context, track CaptionTrack) ([]TranscriptSegment, error) {
	f.fetchCalls++
	return f.segments, nil
}

func speechSegments() []TranscriptSegment {
	segments := make([]TranscriptSegment, 20)
	for i := range segments {
		segments[i] = TranscriptSegment{
			Start:    float64(i) * 3,
			Duration: 3,
			Text:     "some spoken words in this caption line",
		}
	}
	return segments
}

func TestExtractHappyPath(t *testing.T) {
	fetcher := &fakeFetcher{
		tracks:   []CaptionTrack{{BaseURL: "http://x", LanguageCode: "en", Name: "English"}},
		segments: speechSegments(),
	}

	raw, err := NewExtractor(fetcher, false).Extract(context.Background(), "dQw4w9WgXcQ", ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if raw.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q", raw.VideoID)
	}
	if raw.Language != "en" {
		t.Errorf("Language = %q; want en", raw.Language)
	}
	if raw.FullText == "" {
		t.Error("FullText is empty")
	}
	if len(raw.Segments) != 20 {
		t.Errorf("got %d segments; want 20", len(raw.Segments))
	}
	if raw.Source != "captions" {
		t.Errorf("Source = %q; want captions", raw.Source)
	}
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	fetcher := &fakeFetcher{
		tracks:   []CaptionTrack{{LanguageCode: "en"}},
		segments: speechSegments(),
		listErrs: []error{fmt.Errorf("connection reset"), nil},
	}

	raw, err := NewExtractor(fetcher, false).Extract(context.Background(), "dQw4w9WgXcQ", ExtractOptions{MaxRetries: 3})
	if err != nil {
		t.Fatalf("Extract returned error after retry: %v", err)
	}
	if raw == nil {
		t.Fatal("Extract returned nil transcript")
	}
	if fetcher.listCalls != 2 {
		t.Errorf("ListTracks called %d times; want 2", fetcher.listCalls)
	}
}

func TestExtractNoRetryOnMissingCaptions(t *testing.T) {
	fetcher := &fakeFetcher{
		listErrs: []error{ErrTranscriptsDisabled, ErrTranscriptsDisabled, ErrTranscriptsDisabled},
	}

	_, err := NewExtractor(fetcher, false).Extract(context.Background(), "dQw4w9WgXcQ", ExtractOptions{MaxRetries: 3})
	if err == nil {
		t.Fatal("Extract succeeded; want error")
	}
	if !errors.Is(err, ErrTranscriptsDisabled) {
		t.Errorf("error %v does not wrap ErrTranscriptsDisabled", err)
	}
	if fetcher.listCalls != 1 {
		t.Errorf("ListTracks called %d times; want 1 (no retry for disabled captions)", fetcher.listCalls)
	}
}

func TestExtractExhaustsRetries(t *testing.T) {
	netErr := fmt.Errorf("timeout")
	fetcher := &fakeFetcher{
		listErrs: []error{netErr, netErr},
	}

	_, err := NewExtractor(fetcher, false).Extract(context.Background(), "dQw4w9WgXcQ", ExtractOptions{MaxRetries: 2})
	if err == nil {
		t.Fatal("Extract succeeded; want error")
	}
	if !errors.Is(err, netErr) {
		t.Errorf("error %v does not wrap the last attempt's error", err)
	}
	if fetcher.listCalls != 2 {
		t.Errorf("ListTracks called %d times; want 2", fetcher.listCalls)
	}
}

func TestSelectTrack(t *testing.T) {
	tracks := []CaptionTrack{
		{LanguageCode: "de", IsGenerated: true},
		{LanguageCode: "fr", IsGenerated: false},
		{LanguageCode: "en-US", IsGenerated: false},
	}

	tests := []struct {
		name      string
		language  string
		fallbacks []string
		wantLang  string
	}{
		{
			name:     "explicit language",
			language: "fr",
			wantLang: "fr",
		},
		{
			name:      "fallback order",
			language:  "ja",
			fallbacks: []string{"ko", "de"},
			wantLang:  "de",
		},
		{
			name:     "english variant matched by prefix",
			language: "en",
			wantLang: "en-US",
		},
		{
			name:     "defaults to english when nothing requested",
			wantLang: "en-US",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectTrack(tracks, tt.language, tt.fallbacks)
			if got.LanguageCode != tt.wantLang {
				t.Errorf("selectTrack() = %q; want %q", got.LanguageCode, tt.wantLang)
			}
		})
	}
}

func TestSelectTrackPrefersHumanCaptions(t *testing.T) {
	tracks := []CaptionTrack{
		{LanguageCode: "ja", IsGenerated: true},
		{LanguageCode: "ko", IsGenerated: false},
	}
	got := selectTrack(tracks, "", nil)
	if got.LanguageCode != "ko" {
		t.Errorf("selectTrack() = %q; want ko (human-made over generated)", got.LanguageCode)
	}
}

func TestCleanCaptionText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "music annotation",
			in:   "[Music] hello world",
			want: "hello world",
		},
		{
			name: "sound cue in parentheses",
			in:   "so anyway (audience laughs) as I was saying",
			want: "so anyway as I was saying",
		},
		{
			name: "music glyphs",
			in:   "♪♪ never gonna give you up ♪",
			want: "never gonna give you up",
		},
		{
			name: "whitespace collapsed",
			in:   "too   many    spaces",
			want: "too many spaces",
		},
		{
			name: "annotation-only becomes empty",
			in:   "[Applause]",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCaptionText(tt.in); got != tt.want {
				t.Errorf("CleanCaptionText(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAssessTranscriptQuality(t *testing.T) {
	// Well-paced, dense transcript: ~140 wpm, ~7 words per segment, >500 words.
	var good []TranscriptSegment
	for i := 0; i < 80; i++ {
		good = append(good, TranscriptSegment{
			Start:    float64(i) * 3,
			Duration: 3,
			Text:     "seven words of normal spoken caption text",
		})
	}
	goodText := strings.TrimSpace(strings.Repeat("seven words of normal spoken caption text ", 80))

	if got := AssessTranscriptQuality(good, goodText); got != QualityHigh {
		t.Errorf("quality = %q; want high", got)
	}

	// Tiny fragment: almost no signal.
	poor := []TranscriptSegment{{Start: 0, Duration: 60, Text: "hi"}}
	if got := AssessTranscriptQuality(poor, "hi"); got != QualityLow {
		t.Errorf("quality = %q; want low", got)
	}
}

func TestParseCaptionTracks(t *testing.T) {
	page := `junk before "captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` +
		`{"baseUrl":"https://example.com/tt","languageCode":"en","kind":"asr","name":{"simpleText":"English (auto-generated)"}},` +
		`{"baseUrl":"https://example.com/tt2","languageCode":"de","name":{"simpleText":"German"}}` +
		`]}} trailing junk`

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		t.Fatalf("parseCaptionTracks returned error: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks; want 2", len(tracks))
	}
	if !tracks[0].IsGenerated {
		t.Error("asr track not marked generated")
	}
	if tracks[1].LanguageCode != "de" || tracks[1].IsGenerated {
		t.Errorf("unexpected second track: %+v", tracks[1])
	}
}

func TestParseCaptionTracksMissing(t *testing.T) {
	if _, err := parseCaptionTracks("<html>no captions object here</html>"); !errors.Is(err, ErrTranscriptsDisabled) {
		t.Errorf("error = %v; want ErrTranscriptsDisabled", err)
	}
}

package internal

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for transcript extraction.
var (
	ErrVideoUnavailable    = errors.New("video unavailable")
	ErrNoTranscript        = errors.New("no transcript available")
	ErrTranscriptsDisabled = errors.New("transcripts disabled for video")
)

// TranscriptSegment is one timed caption line. Segments are immutable once
// extracted.
type TranscriptSegment struct {
	Start    float64 `json:"start"`    // seconds
	Duration float64 `json:"duration"` // seconds
	Text     string  `json:"text"`
}

// End returns the segment's end time in seconds.
func (s TranscriptSegment) End() float64 {
	return s.Start + s.Duration
}

// RawTranscript is the extractor's output. A new value is produced for every
// re-extraction; nothing mutates it afterwards.
type RawTranscript struct {
	VideoID         VideoID             `json:"videoId"`
	Language        string              `json:"language"`
	IsAutoGenerated bool                `json:"isAutoGenerated"`
	Segments        []TranscriptSegment `json:"segments"`
	FullText        string              `json:"fullText"`
	Quality         TranscriptQuality   `json:"quality"`
	ExtractedAt     time.Time           `json:"extractedAt"`
	Source          string              `json:"source"`
}

// CaptionTrack describes one available caption track for a video.
type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	Name         string
	IsGenerated  bool
}

// TranscriptFetcher lists and downloads caption tracks. The HTTP
// implementation talks to YouTube; tests substitute fakes.
type TranscriptFetcher interface {
	ListTracks(ctx context.Context, videoID VideoID) ([]CaptionTrack, error)
	FetchTrack(ctx context.Context, track CaptionTrack) ([]TranscriptSegment, error)
}

// YouTubeTranscriptClient fetches caption tracks by scraping the watch page
// for the player's caption track list, then downloading the timedtext XML.
type YouTubeTranscriptClient struct {
	httpClient *http.Client
}

// NewYouTubeTranscriptClient creates a transcript client with a sane timeout.
func NewYouTubeTranscriptClient() *YouTubeTranscriptClient {
	return &YouTubeTranscriptClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// ListTracks fetches the watch page and extracts available caption tracks.
func (c *YouTubeTranscriptClient) ListTracks(ctx context.Context, videoID VideoID) ([]CaptionTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoID.WatchURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("building watch page request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: watch page returned %d", ErrVideoUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading watch page: %w", err)
	}

	return parseCaptionTracks(string(body))
}

// parseCaptionTracks extracts the captions JSON object embedded in the watch
// page and decodes the caption track list from it.
func parseCaptionTracks(pageHTML string) ([]CaptionTrack, error) {
	const marker = `"captions":`
	start := strings.Index(pageHTML, marker)
	if start == -1 {
		return nil, ErrTranscriptsDisabled
	}

	jsonStart := strings.Index(pageHTML[start:], "{")
	if jsonStart == -1 {
		return nil, fmt.Errorf("malformed captions data")
	}
	jsonStart += start

	// Walk to the matching closing brace.
	depth := 0
	jsonEnd := -1
	for i := jsonStart; i < len(pageHTML); i++ {
		switch pageHTML[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				jsonEnd = i + 1
			}
		}
		if jsonEnd != -1 {
			break
		}
	}
	if jsonEnd == -1 {
		return nil, fmt.Errorf("malformed captions data")
	}

	var captions struct {
		Renderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
				Kind         string `json:"kind"`
				Name         struct {
					SimpleText string `json:"simpleText"`
				} `json:"name"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	}
	if err := json.Unmarshal([]byte(pageHTML[jsonStart:jsonEnd]), &captions); err != nil {
		return nil, fmt.Errorf("parsing captions JSON: %w", err)
	}

	tracks := make([]CaptionTrack, 0, len(captions.Renderer.CaptionTracks))
	for _, t := range captions.Renderer.CaptionTracks {
		tracks = append(tracks, CaptionTrack{
			BaseURL:      t.BaseURL,
			LanguageCode: t.LanguageCode,
			Name:         t.Name.SimpleText,
			IsGenerated:  t.Kind == "asr",
		})
	}

	if len(tracks) == 0 {
		return nil, ErrNoTranscript
	}
	return tracks, nil
}

// FetchTrack downloads and parses one caption track's timedtext XML.
func (c *YouTubeTranscriptClient) FetchTrack(ctx context.Context, track CaptionTrack) ([]TranscriptSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building track request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching caption track: %w", err)
	}
	defer resp.Body.Close()

	var doc struct {
		XMLName xml.Name `xml:"transcript"`
		Texts   []struct {
			Start float64 `xml:"start,attr"`
			Dur   float64 `xml:"dur,attr"`
			Text  string  `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing caption XML: %w", err)
	}

	segments := make([]TranscriptSegment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		segments = append(segments, TranscriptSegment{
			Start:    t.Start,
			Duration: t.Dur,
			Text:     html.UnescapeString(t.Text),
		})
	}
	return segments, nil
}

// ExtractOptions configure one extraction.
type ExtractOptions struct {
	Language          string
	FallbackLanguages []string
	MaxRetries        int
}

// Extractor fetches, selects, cleans and quality-scores transcripts.
type Extractor struct {
	fetcher TranscriptFetcher
	verbose bool
}

// NewExtractor creates a transcript extractor.
func NewExtractor(fetcher TranscriptFetcher, verbose bool) *Extractor {
	return &Extractor{fetcher: fetcher, verbose: verbose}
}

const defaultMaxRetries = 3

// Extract fetches the best available transcript for a video, retrying with a
// linearly increasing delay. It fails only after all attempts are exhausted,
// wrapping the last error. A video with no captions is a failure, never an
// empty success.
func (e *Extractor) Extract(ctx context.Context, videoID VideoID, opts ExtractOptions) (*RawTranscript, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		raw, err := e.extractOnce(ctx, videoID, opts)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if e.verbose {
			fmt.Printf("Transcript extraction attempt %d/%d for %s failed: %v\n", attempt, maxRetries, videoID, err)
		}

		// Missing captions won't appear on retry.
		if errors.Is(err, ErrNoTranscript) || errors.Is(err, ErrTranscriptsDisabled) {
			break
		}

		if attempt < maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("extracting transcript for %s: %w", videoID, lastErr)
}

func (e *Extractor) extractOnce(ctx context.Context, videoID VideoID, opts ExtractOptions) (*RawTranscript, error) {
	tracks, err := e.fetcher.ListTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoTranscript
	}

	track := selectTrack(tracks, opts.Language, opts.FallbackLanguages)

	segments, err := e.fetcher.FetchTrack(ctx, track)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrNoTranscript
	}

	cleaned := make([]TranscriptSegment, 0, len(segments))
	var sb strings.Builder
	for _, seg := range segments {
		text := CleanCaptionText(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		cleaned = append(cleaned, seg)
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	if len(cleaned) == 0 {
		return nil, ErrNoTranscript
	}

	fullText := sb.String()
	return &RawTranscript{
		VideoID:         videoID,
		Language:        track.LanguageCode,
		IsAutoGenerated: track.IsGenerated,
		Segments:        cleaned,
		FullText:        fullText,
		Quality:         AssessTranscriptQuality(cleaned, fullText),
		ExtractedAt:     time.Now(),
		Source:          "captions",
	}, nil
}

// selectTrack picks a caption track: explicit language, then fallbacks in
// order, then English variants, then the first human-made track, then
// whatever is first.
func selectTrack(tracks []CaptionTrack, language string, fallbacks []string) CaptionTrack {
	findLang := func(lang string) *CaptionTrack {
		for i := range tracks {
			if tracks[i].LanguageCode == lang || strings.HasPrefix(tracks[i].LanguageCode, lang+"-") {
				return &tracks[i]
			}
		}
		return nil
	}

	if language != "" {
		if t := findLang(language); t != nil {
			return *t
		}
	}
	for _, lang := range fallbacks {
		if t := findLang(lang); t != nil {
			return *t
		}
	}
	if t := findLang("en"); t != nil {
		return *t
	}
	for i := range tracks {
		if !tracks[i].IsGenerated {
			return tracks[i]
		}
	}
	return tracks[0]
}

var (
	bracketedCuePattern   = regexp.MustCompile(`\[[^\]]*\]`)
	parentheticalPattern  = regexp.MustCompile(`\([^)]*\)`)
	musicGlyphPattern     = regexp.MustCompile(`[♪♫♬]+`)
	whitespaceRunPattern  = regexp.MustCompile(`\s+`)
)

// CleanCaptionText strips bracketed stage directions ("[Music]"),
// parenthetical sound cues and music-note glyphs, then collapses whitespace.
func CleanCaptionText(text string) string {
	text = bracketedCuePattern.ReplaceAllString(text, " ")
	text = parentheticalPattern.ReplaceAllString(text, " ")
	text = musicGlyphPattern.ReplaceAllString(text, " ")
	text = whitespaceRunPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// AssessTranscriptQuality scores a transcript 0-6 from pacing, segment
// density and overall length, then buckets it into low/medium/high.
func AssessTranscriptQuality(segments []TranscriptSegment, fullText string) TranscriptQuality {
	wordCount := CountWords(fullText)

	var totalDuration float64
	if n := len(segments); n > 0 {
		totalDuration = segments[n-1].End() - segments[0].Start
	}

	score := 0

	// Speaking pace: comfortable captions land between 100 and 200 wpm.
	if totalDuration > 0 {
		wpm := float64(wordCount) / (totalDuration / 60)
		switch {
		case wpm >= 100 && wpm <= 200:
			score += 2
		case wpm >= 50 && wpm <= 250:
			score++
		}
	}

	// Segment density: auto-captions fragment into tiny segments.
	if len(segments) > 0 {
		avgWords := float64(wordCount) / float64(len(segments))
		switch {
		case avgWords >= 3 && avgWords <= 10:
			score += 2
		case avgWords >= 2 && avgWords <= 15:
			score++
		}
	}

	if wordCount >= 100 {
		score++
	}
	if wordCount >= 500 {
		score++
	}

	switch {
	case score >= 5:
		return QualityHigh
	case score >= 3:
		return QualityMedium
	default:
		return QualityLow
	}
}

package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// AskUser is a variable that holds the function for asking user confirmation
// This allows it to be replaced in tests
var AskUser = func(message string) bool {
	fmt.Printf("%s (y/N): ", message)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		response := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return strings.HasPrefix(response, "y")
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
	return false
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour. Piped output gets
// plain text instead of ANSI styling.
func RenderMarkdown(content string) (string, error) {
	profile := termenv.EnvColorProfile()
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		profile = termenv.Ascii
	}

	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(profile),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// ValidateModel checks if the model is supported
func ValidateModel(model string) error {
	supportedModels := []string{modelPremium, modelCheap, modelEmergency}
	if slices.Contains(supportedModels, model) {
		return nil
	}
	return fmt.Errorf("unsupported model: %s (supported: %s)", model, strings.Join(supportedModels, ", "))
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if !FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsLikelyCommand checks if a string looks like it might be a mistyped command
func IsLikelyCommand(arg string) bool {
	return len(arg) <= 10 && !IsValidVideoID(arg)
}

// ValidateOpenAIAPIKey checks if the OpenAI API key is set and returns a standardized error if not
func ValidateOpenAIAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("OpenAI API key is required - set it in config.toml or OPENAI_API_KEY environment variable")
	}
	return nil
}

// ValidateYouTubeAPIKey checks if the YouTube Data API key is set
func ValidateYouTubeAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("YouTube API key is required - set it in config.toml or YOUTUBE_API_KEY environment variable")
	}
	return nil
}

// cachedTranscript is the on-disk shape of a saved transcript.
type cachedTranscript struct {
	RawTranscript
	CachedAt time.Time `json:"cachedAt"`
}

func transcriptCachePath(videoID VideoID, transcriptsDir string) string {
	return filepath.Join(transcriptsDir, string(videoID)+".json")
}

// SaveTranscript caches a raw transcript as JSON in the transcripts directory
func SaveTranscript(raw *RawTranscript, transcriptsDir string) error {
	if err := EnsureDirs(transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}

	cached := cachedTranscript{RawTranscript: *raw, CachedAt: time.Now()}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	if err := os.WriteFile(transcriptCachePath(raw.VideoID, transcriptsDir), data, 0644); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}

// LoadCachedTranscript loads a previously saved transcript
func LoadCachedTranscript(videoID VideoID, transcriptsDir string) (*RawTranscript, error) {
	path := transcriptCachePath(videoID, transcriptsDir)

	if !FileExists(path) {
		return nil, fmt.Errorf("transcript cache not found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript cache: %w", err)
	}

	var cached cachedTranscript
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parsing transcript cache: %w", err)
	}

	raw := cached.RawTranscript
	return &raw, nil
}

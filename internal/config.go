package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config holds application settings
type Config struct {
	// User configurable settings
	AnalysisDepth       Depth
	DailyCostLimit      float64
	PerRequestCostLimit float64
	QuotaBudget         int64
	RedisAddr           string
	RelevanceThreshold  float64
	Verbose             bool
	Quiet               bool
	MCPLogEnabled       bool
	OpenAIAPIKey        string
	YouTubeAPIKey       string

	// Fixed XDG paths (not configurable)
	ConfigDir      string
	DataDir        string
	CacheDir       string
	TranscriptsDir string
}

//go:embed config.toml
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Printf("Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// XDG standard directories
	configDir := filepath.Join(xdg.ConfigHome, "ytcurate")
	dataDir := filepath.Join(xdg.DataHome, "ytcurate")
	cacheDir := filepath.Join(xdg.CacheHome, "ytcurate")

	transcriptsDir := filepath.Join(dataDir, "transcripts")

	// Initialize viper
	v := viper.New()

	// Set default values for configurable settings
	v.SetDefault("analysis_depth", string(DepthStandard))
	v.SetDefault("daily_cost_limit", 5.0)
	v.SetDefault("per_request_cost_limit", 0.25)
	v.SetDefault("quota_budget", int64(10000))
	v.SetDefault("redis_addr", "")
	v.SetDefault("relevance_threshold", 70.0)
	v.SetDefault("verbose", false)
	v.SetDefault("mcp_log", false)

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("YTCURATE")
	v.AutomaticEnv()

	// API keys come from their conventional env vars as well
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("youtube_api_key", "YOUTUBE_API_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	depth := Depth(v.GetString("analysis_depth"))
	if !depth.IsValid() {
		fmt.Fprintf(os.Stderr, "Warning: unknown analysis depth %q, using %s\n", depth, DepthStandard)
		depth = DepthStandard
	}

	config := &Config{
		// User configurable settings
		AnalysisDepth:       depth,
		DailyCostLimit:      v.GetFloat64("daily_cost_limit"),
		PerRequestCostLimit: v.GetFloat64("per_request_cost_limit"),
		QuotaBudget:         v.GetInt64("quota_budget"),
		RedisAddr:           v.GetString("redis_addr"),
		RelevanceThreshold:  v.GetFloat64("relevance_threshold"),
		Verbose:             v.GetBool("verbose"),
		MCPLogEnabled:       v.GetBool("mcp_log"),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		YouTubeAPIKey:       v.GetString("youtube_api_key"),

		// Fixed XDG paths
		ConfigDir:      configDir,
		DataDir:        dataDir,
		CacheDir:       cacheDir,
		TranscriptsDir: transcriptsDir,
	}

	if config.Verbose {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}

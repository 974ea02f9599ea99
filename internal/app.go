package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// analysisConcurrency bounds how many videos are analyzed at once during
// batch operations, keeping API pressure predictable.
const analysisConcurrency = 3

// App holds the application state and dependencies
type App struct {
	config       *Config
	ui           UIManager
	store        *CategoryStore
	extractor    *Extractor
	processor    *Processor
	gateway      *Gateway
	orchestrator *Orchestrator
	scorer       *Scorer
	cache        *TieredCache
	enhancer     *QueryEnhancer
	filter       *FilterService

	searcherOnce sync.Once
	searcherErr  error
	searcher     VideoSearcher
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) (*App, error) {
	ui := NewUIManager(config.Verbose, config.Quiet)

	store, err := NewCategoryStore(config.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	tracker := NewUsageTracker(filepath.Join(config.DataDir, "usage.json"))
	if err := tracker.Load(); err != nil {
		ui.Warnf("Warning: could not load usage history: %v\n", err)
	}

	limits := CostLimits{
		DailyLimit:       config.DailyCostLimit,
		PerRequestLimit:  config.PerRequestCostLimit,
		WarningThreshold: DefaultCostLimits().WarningThreshold,
	}
	gateway := NewGateway(NewOpenAIClient(config.OpenAIAPIKey), tracker, limits, config.Verbose)

	generator := NewInsightsGenerator()
	analyzer := NewAnalyzer(gateway, generator, config.Verbose)
	scorer := NewScorerWithThreshold(config.RelevanceThreshold)

	tiers := []CacheTier{NewFileTier(filepath.Join(config.CacheDir, "analysis"))}
	if config.RedisAddr != "" {
		tiers = append(tiers, NewRedisTier(config.RedisAddr))
	}
	cache := NewTieredCache(tiers...)

	enhancer := NewQueryEnhancer()

	app := &App{
		config:       config,
		ui:           ui,
		store:        store,
		extractor:    NewExtractor(NewYouTubeTranscriptClient(), config.Verbose),
		processor:    NewProcessor(),
		gateway:      gateway,
		orchestrator: NewOrchestrator(analyzer, scorer, generator, cache, config.Verbose),
		scorer:       scorer,
		cache:        cache,
		enhancer:     enhancer,
	}
	app.filter = NewFilterService(nil, enhancer, config.Verbose)

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	return app, nil
}

// AppOption customizes App creation
type AppOption func(*App)

// WithExtractor sets a custom transcript extractor
func WithExtractor(extractor *Extractor) AppOption {
	return func(a *App) {
		a.extractor = extractor
	}
}

// WithSearcher sets a custom video searcher
func WithSearcher(searcher VideoSearcher) AppOption {
	return func(a *App) {
		a.searcher = searcher
		a.searcherOnce.Do(func() {})
		a.filter = NewFilterService(searcher, a.enhancer, a.config.Verbose)
	}
}

// WithGateway sets a custom model gateway
func WithGateway(gateway *Gateway) AppOption {
	return func(a *App) {
		a.gateway = gateway
	}
}

// Config exposes the loaded configuration
func (app *App) Config() *Config {
	return app.config
}

// Categories exposes the category store
func (app *App) Categories() *CategoryStore {
	return app.store
}

// Usage exposes the gateway's usage tracker
func (app *App) Usage() *UsageTracker {
	return app.gateway.Usage()
}

// Cache exposes the analysis cache
func (app *App) Cache() *TieredCache {
	return app.cache
}

// ensureSearcher lazily constructs the YouTube search client. Search is
// optional: analysis of known video IDs works without a YouTube API key.
func (app *App) ensureSearcher(ctx context.Context) (VideoSearcher, error) {
	app.searcherOnce.Do(func() {
		if err := ValidateYouTubeAPIKey(app.config.YouTubeAPIKey); err != nil {
			app.searcherErr = err
			return
		}
		client, err := NewYouTubeSearchClient(ctx, app.config.YouTubeAPIKey, app.config.QuotaBudget, app.config.Verbose)
		if err != nil {
			app.searcherErr = fmt.Errorf("creating search client: %w", err)
			return
		}
		app.searcher = client
		app.filter = NewFilterService(client, app.enhancer, app.config.Verbose)
	})
	return app.searcher, app.searcherErr
}

// GetTranscript returns the processed transcript for a video, using the local
// transcript cache when possible.
func (app *App) GetTranscript(ctx context.Context, videoID VideoID) (*RawTranscript, error) {
	if raw, err := LoadCachedTranscript(videoID, app.config.TranscriptsDir); err == nil {
		app.ui.Verbose("Using cached transcript for %s\n", videoID)
		return raw, nil
	}

	app.ui.Verbose("Fetching transcript for %s\n", videoID)
	raw, err := app.extractor.Extract(ctx, videoID, ExtractOptions{})
	if err != nil {
		return nil, err
	}

	if err := SaveTranscript(raw, app.config.TranscriptsDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return raw, nil
}

// AnalyzeVideo runs the full analysis workflow for one video: transcript,
// processing, model analysis, scoring.
func (app *App) AnalyzeVideo(ctx context.Context, videoID VideoID, categories []Category, depth Depth) (*AnalysisResult, error) {
	raw, err := app.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("getting transcript for %s: %w", videoID, err)
	}

	transcript := app.processor.ProcessForAnalysis(raw, DefaultProcessOptions())

	return app.orchestrator.AnalyzeVideo(ctx, AnalysisRequest{
		VideoID:    videoID,
		Transcript: transcript,
		Categories: categories,
		Depth:      depth,
	})
}

// BatchResult pairs a video with its analysis outcome.
type BatchResult struct {
	VideoID VideoID
	Result  *AnalysisResult
	Err     error
}

// AnalyzeVideos analyzes several videos with bounded concurrency, reporting
// progress. Individual failures don't stop the batch.
func (app *App) AnalyzeVideos(ctx context.Context, videoIDs []VideoID, categories []Category, depth Depth) []BatchResult {
	results := make([]BatchResult, len(videoIDs))

	bar := app.ui.NewProgressBar(len(videoIDs), "Analyzing videos")
	defer bar.Finish()

	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)
	for i, id := range videoIDs {
		g.Go(func() error {
			result, err := app.AnalyzeVideo(gctx, id, categories, depth)
			results[i] = BatchResult{VideoID: id, Result: result, Err: err}

			mu.Lock()
			done++
			bar.Set(done)
			mu.Unlock()

			// Cost limit errors are terminal for the whole batch; anything
			// else only fails this video.
			if IsCostLimitError(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i := range results {
			if results[i].Result == nil && results[i].Err == nil {
				results[i] = BatchResult{VideoID: videoIDs[i], Err: err}
			}
		}
	}

	return results
}

// SearchVideos runs a filtered search against YouTube.
func (app *App) SearchVideos(ctx context.Context, filters VideoFilters, sortSpec VideoSort) (*FilterExecutionResult, error) {
	if filters.Query != "" {
		if _, err := app.ensureSearcher(ctx); err != nil {
			return nil, err
		}
	}
	return app.filter.ApplyFilters(ctx, nil, filters, sortSpec, app.store.All())
}

// CuratedVideo is a search result enriched with analysis.
type CuratedVideo struct {
	Video    Video           `json:"video"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
}

// CurateVideos is the end-to-end pipeline: search, analyze each result
// against the given categories, keep the relevant ones, best first.
func (app *App) CurateVideos(ctx context.Context, filters VideoFilters, categories []Category, depth Depth, limit int) ([]CuratedVideo, error) {
	searchResult, err := app.SearchVideos(ctx, filters, VideoSort{Field: SortRelevance, Order: "desc"})
	if err != nil {
		return nil, err
	}
	if len(searchResult.Videos) == 0 {
		return nil, nil
	}

	videos := searchResult.Videos
	byID := make(map[VideoID]Video, len(videos))
	ids := make([]VideoID, 0, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	batch := app.AnalyzeVideos(ctx, ids, categories, depth)

	var curated []CuratedVideo
	for _, br := range batch {
		if br.Err != nil {
			app.ui.Warnf("Warning: skipping %s: %v\n", br.VideoID, br.Err)
			continue
		}
		video := byID[br.VideoID]
		video.Relevance = bestRelevance(br.Result)
		video.Categories = app.orchestrator.RelevantCategories(br.Result)
		if len(categories) > 0 && len(video.Categories) == 0 {
			continue
		}
		curated = append(curated, CuratedVideo{Video: video, Analysis: br.Result})
	}

	sort.SliceStable(curated, func(i, j int) bool {
		return curated[i].Video.Relevance > curated[j].Video.Relevance
	})
	if limit > 0 && len(curated) > limit {
		curated = curated[:limit]
	}
	return curated, nil
}

// bestRelevance picks the video's strongest category score.
func bestRelevance(result *AnalysisResult) float64 {
	var best float64
	for _, score := range result.RelevanceScores {
		if score > best {
			best = score
		}
	}
	return best
}

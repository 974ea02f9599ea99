package internal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator composes the analyzer, scorer and cache into the single
// AnalyzeVideo operation.
type Orchestrator struct {
	analyzer  *Analyzer
	scorer    *Scorer
	generator *InsightsGenerator
	cache     *TieredCache
	verbose   bool
}

// NewOrchestrator creates an analysis orchestrator.
func NewOrchestrator(analyzer *Analyzer, scorer *Scorer, generator *InsightsGenerator, cache *TieredCache, verbose bool) *Orchestrator {
	return &Orchestrator{
		analyzer:  analyzer,
		scorer:    scorer,
		generator: generator,
		cache:     cache,
		verbose:   verbose,
	}
}

// AnalyzeVideo runs the full analysis pipeline for one request: cache check,
// concurrent insight and relevance analysis, score calculation, cache write.
// The two analysis branches are independent and run in parallel; each one
// degrades transient faults internally, so only a cost-gate rejection fails
// the request. A cached result is returned verbatim, with no re-scoring.
func (o *Orchestrator) AnalyzeVideo(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	if req.VideoID == "" {
		return nil, fmt.Errorf("analysis request missing video ID")
	}
	if req.Transcript == nil {
		return nil, fmt.Errorf("analysis request missing transcript")
	}
	if req.Depth == "" {
		req.Depth = DepthStandard
	}
	if !req.Depth.IsValid() {
		return nil, fmt.Errorf("unknown analysis depth: %s", req.Depth)
	}

	categoryIDs := make([]CategoryID, len(req.Categories))
	for i, c := range req.Categories {
		categoryIDs[i] = c.ID
	}
	cacheKey := GenerateCacheKey(req.VideoID, categoryIDs, req.Depth)

	if cached := o.cache.Get(ctx, cacheKey); cached != nil {
		if o.verbose {
			fmt.Printf("Analysis cache hit for %s\n", req.VideoID)
		}
		return cached, nil
	}

	started := time.Now()

	var insights VideoInsights
	var categoryAnalysis CategoryAnalysis

	// Fan out and join. The analyzer degrades network and parse failures
	// internally; the only error a branch can return is a cost-gate
	// rejection, which aborts the whole analysis.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if req.SkipInsights {
			insights = o.generator.Generate(req.Transcript.Text)
			return nil
		}
		var err error
		insights, err = o.analyzer.AnalyzeContentInsights(gctx, req.Transcript, req.Depth)
		return err
	})
	g.Go(func() error {
		if req.SkipRelevance {
			categoryAnalysis = CategoryAnalysis{
				CategoryMatches:     []CategoryMatch{},
				SuggestedCategories: []CategoryID{},
				AutoAssignThreshold: o.scorer.Threshold(),
			}
			return nil
		}
		var err error
		categoryAnalysis, err = o.analyzer.AnalyzeCategoryRelevance(gctx, req.Transcript, req.Categories, req.Depth)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		VideoID:          req.VideoID,
		RelevanceScores:  o.scorer.CalculateRelevanceScores(categoryAnalysis),
		Insights:         insights,
		CategoryAnalysis: categoryAnalysis,
		ProcessingTime:   time.Since(started),
		Timestamp:        time.Now(),
		CacheKey:         cacheKey,
	}

	// The combined result is stored under the insight TTL; category matches
	// ride along rather than expiring on their own shorter schedule.
	o.cache.Set(ctx, cacheKey, result, InsightTTL)

	return result, nil
}

// RelevantCategories returns the category IDs whose score clears the
// threshold, for auto-assignment.
func (o *Orchestrator) RelevantCategories(result *AnalysisResult) []CategoryID {
	var relevant []CategoryID
	for id, score := range result.RelevanceScores {
		if o.scorer.IsRelevant(score) {
			relevant = append(relevant, id)
		}
	}
	return relevant
}

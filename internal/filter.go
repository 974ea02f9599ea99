package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Duration presets, in seconds. Matches the remote service's buckets so
// preset filters can be pushed down to the API.
const (
	shortMaxSeconds  = 240
	mediumMaxSeconds = 1200
)

// DurationFilter constrains video length, by preset or explicit bounds.
type DurationFilter struct {
	Preset string `json:"preset,omitempty"` // "short", "medium", "long"
	Min    int    `json:"min,omitempty"`    // seconds
	Max    int    `json:"max,omitempty"`    // seconds, 0 = unbounded
}

// ViewsFilter constrains view counts.
type ViewsFilter struct {
	Min int64 `json:"min,omitempty"`
	Max int64 `json:"max,omitempty"` // 0 = unbounded
}

// VideoFilters is a declarative filter specification. Every field is
// optional; an unset field means "no constraint". Applying the same filters
// to the same videos is deterministic, and each predicate is a pure set
// intersection, so the order filters are applied in never matters.
type VideoFilters struct {
	Query           string         `json:"query,omitempty"`
	Duration        *DurationFilter `json:"duration,omitempty"`
	PublishedAfter  *time.Time     `json:"publishedAfter,omitempty"`
	PublishedBefore *time.Time     `json:"publishedBefore,omitempty"`
	Views           *ViewsFilter   `json:"views,omitempty"`
	Qualities       []string       `json:"qualities,omitempty"`
	RequireCaptions *bool          `json:"requireCaptions,omitempty"`
	MinRelevance    *float64       `json:"minRelevance,omitempty"`
	MinEngagement   *float64       `json:"minEngagement,omitempty"`
	Languages       []string       `json:"languages,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Categories      []CategoryID   `json:"categories,omitempty"`
	Channels        []string       `json:"channels,omitempty"`
}

// SortField names a sortable video attribute.
type SortField string

const (
	SortRelevance   SortField = "relevance"
	SortPublishedAt SortField = "publishedAt"
	SortViewCount   SortField = "viewCount"
	SortDuration    SortField = "duration"
	SortTitle       SortField = "title"
	SortQuality     SortField = "quality"
	SortEngagement  SortField = "engagement"
)

// VideoSort is a sort specification.
type VideoSort struct {
	Field SortField `json:"field"`
	Order string    `json:"order"` // "asc" or "desc"
}

// qualityRank defines the total order over quality buckets.
var qualityRank = map[string]int{"excellent": 4, "high": 3, "medium": 2, "low": 1}

// FilterTimings breaks down where one invocation spent its time.
type FilterTimings struct {
	Validation  time.Duration `json:"validation"`
	API         time.Duration `json:"api"`
	LocalFilter time.Duration `json:"localFilter"`
	Sort        time.Duration `json:"sort"`
}

// FilterExecutionResult is the outcome of one ApplyFilters call.
type FilterExecutionResult struct {
	Videos   []Video       `json:"videos"`
	Total    int           `json:"total"`
	Source   string        `json:"source"` // "local" or "api"
	CacheHit bool          `json:"cacheHit"`
	Timings  FilterTimings `json:"timings"`
}

// FilterService applies compound filters and sorting to video collections,
// delegating to the remote search service when a live query is possible.
type FilterService struct {
	searcher VideoSearcher
	enhancer *QueryEnhancer
	verbose  bool

	mu          sync.Mutex
	resultCache map[string]cachedFilterResult
	metrics     []FilterTimings
}

type cachedFilterResult struct {
	result FilterExecutionResult
	expiry time.Time
}

// NewFilterService creates a filter service. A nil searcher disables the
// remote path; everything then filters locally.
func NewFilterService(searcher VideoSearcher, enhancer *QueryEnhancer, verbose bool) *FilterService {
	return &FilterService{
		searcher:    searcher,
		enhancer:    enhancer,
		verbose:     verbose,
		resultCache: make(map[string]cachedFilterResult),
	}
}

// metricsCap bounds the retained timing samples.
const metricsCap = 100

// ValidateFilters checks a filter spec, returning every problem at once.
func ValidateFilters(filters VideoFilters, sortSpec VideoSort) []error {
	var errs []error

	if d := filters.Duration; d != nil {
		switch d.Preset {
		case "", "short", "medium", "long":
		default:
			errs = append(errs, fmt.Errorf("unknown duration preset: %s", d.Preset))
		}
		if d.Min < 0 {
			errs = append(errs, fmt.Errorf("duration min must not be negative"))
		}
		if d.Max > 0 && d.Min > d.Max {
			errs = append(errs, fmt.Errorf("duration min %d exceeds max %d", d.Min, d.Max))
		}
	}

	if v := filters.Views; v != nil {
		if v.Min < 0 {
			errs = append(errs, fmt.Errorf("views min must not be negative"))
		}
		if v.Max > 0 && v.Min > v.Max {
			errs = append(errs, fmt.Errorf("views min %d exceeds max %d", v.Min, v.Max))
		}
	}

	if filters.PublishedAfter != nil && filters.PublishedBefore != nil &&
		filters.PublishedAfter.After(*filters.PublishedBefore) {
		errs = append(errs, fmt.Errorf("publishedAfter is later than publishedBefore"))
	}

	for _, q := range filters.Qualities {
		if _, ok := qualityRank[q]; !ok {
			errs = append(errs, fmt.Errorf("unknown quality: %s", q))
		}
	}

	if r := filters.MinRelevance; r != nil && (*r < 0 || *r > 100) {
		errs = append(errs, fmt.Errorf("minRelevance must be between 0 and 100"))
	}

	if sortSpec.Field != "" {
		switch sortSpec.Field {
		case SortRelevance, SortPublishedAt, SortViewCount, SortDuration, SortTitle, SortQuality, SortEngagement:
		default:
			errs = append(errs, fmt.Errorf("unknown sort field: %s", sortSpec.Field))
		}
	}
	switch sortSpec.Order {
	case "", "asc", "desc":
	default:
		errs = append(errs, fmt.Errorf("sort order must be asc or desc"))
	}

	return errs
}

// ApplyFilters filters and sorts videos. With a live query and a configured
// searcher it queries the remote service and post-filters locally; otherwise
// it filters the given collection. Validation failures are caller bugs and
// surface immediately, before any work.
func (s *FilterService) ApplyFilters(ctx context.Context, videos []Video, filters VideoFilters, sortSpec VideoSort, categories []Category) (*FilterExecutionResult, error) {
	var timings FilterTimings

	validationStart := time.Now()
	if errs := ValidateFilters(filters, sortSpec); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid filters: %s", strings.Join(msgs, "; "))
	}
	timings.Validation = time.Since(validationStart)

	useRemote := filters.Query != "" && s.searcher != nil

	// Result caching only applies to query-driven invocations; filtering a
	// caller-supplied collection is already cheap and collection-dependent.
	var cacheKey string
	if useRemote {
		cacheKey = filterCacheKey(filters, sortSpec)
		if cached, ok := s.cachedResult(cacheKey); ok {
			cached.CacheHit = true
			// Hits still count toward execution metrics; only validation
			// time was spent.
			s.recordTimings(timings)
			return &cached, nil
		}
	}

	var source string
	var working []Video
	if useRemote {
		apiStart := time.Now()
		remote, err := s.remoteSearch(ctx, filters, sortSpec, categories)
		timings.API = time.Since(apiStart)
		if err != nil {
			return nil, err
		}
		// Remote results still get the full local pass: dimensions the API
		// cannot express must not be silently dropped.
		working = remote
		source = "api"
	} else {
		working = videos
		source = "local"
	}

	filterStart := time.Now()
	filtered := applyLocalFilters(working, filters)
	timings.LocalFilter = time.Since(filterStart)

	sortStart := time.Now()
	sortVideos(filtered, sortSpec)
	timings.Sort = time.Since(sortStart)

	result := FilterExecutionResult{
		Videos:  filtered,
		Total:   len(filtered),
		Source:  source,
		Timings: timings,
	}

	if useRemote {
		s.storeResult(cacheKey, result)
	}
	s.recordTimings(timings)

	return &result, nil
}

// remoteSearch converts the filter spec into the remote service's native
// vocabulary and executes the query, enhanced by category keywords.
func (s *FilterService) remoteSearch(ctx context.Context, filters VideoFilters, sortSpec VideoSort, categories []Category) ([]Video, error) {
	query := SearchQuery{Query: filters.Query}

	if s.enhancer != nil && len(categories) > 0 {
		enhanced := s.enhancer.Enhance(filters.Query, categories)
		query.Query = enhanced.Query
		query.Duration = enhanced.Duration
		query.Order = enhanced.Order
		query.SafeSearch = enhanced.SafeSearch
		if s.verbose {
			fmt.Printf("Query enhanced (%s): %q\n", enhanced.Strategy, enhanced.Query)
		}
	}

	// Native pushdowns where the API vocabulary covers the filter.
	if d := filters.Duration; d != nil && d.Preset != "" {
		query.Duration = d.Preset
	}
	if filters.PublishedAfter != nil {
		query.PublishedAfter = *filters.PublishedAfter
	}
	if filters.RequireCaptions != nil && *filters.RequireCaptions {
		query.CaptionsOnly = true
	}
	if len(filters.Languages) == 1 {
		query.Language = filters.Languages[0]
	}
	switch sortSpec.Field {
	case SortPublishedAt:
		query.Order = "date"
	case SortViewCount:
		query.Order = "viewCount"
	}

	result, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return result.Videos, nil
}

// applyLocalFilters runs each predicate as an independent pass. Every
// predicate is a pure intersection, so pass order is irrelevant and adding a
// filter can only shrink the result.
func applyLocalFilters(videos []Video, f VideoFilters) []Video {
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		if matchesFilters(v, f) {
			out = append(out, v)
		}
	}
	return out
}

func matchesFilters(v Video, f VideoFilters) bool {
	if f.Query != "" && !matchesQuery(v, f.Query) {
		return false
	}
	if f.Duration != nil && !matchesDuration(v, f.Duration) {
		return false
	}
	if f.PublishedAfter != nil && v.PublishedAt.Before(*f.PublishedAfter) {
		return false
	}
	if f.PublishedBefore != nil && v.PublishedAt.After(*f.PublishedBefore) {
		return false
	}
	if f.Views != nil {
		if v.ViewCount < f.Views.Min {
			return false
		}
		if f.Views.Max > 0 && v.ViewCount > f.Views.Max {
			return false
		}
	}
	if len(f.Qualities) > 0 && !containsString(f.Qualities, v.Quality) {
		return false
	}
	if f.RequireCaptions != nil && *f.RequireCaptions && !v.HasCaptions {
		return false
	}
	if f.MinRelevance != nil && v.Relevance < *f.MinRelevance {
		return false
	}
	if f.MinEngagement != nil && v.Engagement < *f.MinEngagement {
		return false
	}
	if len(f.Languages) > 0 && !matchesLanguage(v.Language, f.Languages) {
		return false
	}
	if len(f.Tags) > 0 && !matchesAnyTag(v.Tags, f.Tags) {
		return false
	}
	if len(f.Categories) > 0 && !matchesAnyCategory(v.Categories, f.Categories) {
		return false
	}
	if len(f.Channels) > 0 && !matchesChannel(v, f.Channels) {
		return false
	}
	return true
}

func matchesQuery(v Video, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(v.Title), q) ||
		strings.Contains(strings.ToLower(v.Description), q) ||
		strings.Contains(strings.ToLower(v.ChannelTitle), q)
}

func matchesDuration(v Video, d *DurationFilter) bool {
	switch d.Preset {
	case "short":
		if v.Duration >= shortMaxSeconds {
			return false
		}
	case "medium":
		if v.Duration < shortMaxSeconds || v.Duration > mediumMaxSeconds {
			return false
		}
	case "long":
		if v.Duration <= mediumMaxSeconds {
			return false
		}
	}
	if v.Duration < d.Min {
		return false
	}
	if d.Max > 0 && v.Duration > d.Max {
		return false
	}
	return true
}

func matchesLanguage(lang string, wanted []string) bool {
	for _, w := range wanted {
		if lang == w || strings.HasPrefix(lang, w+"-") {
			return true
		}
	}
	return false
}

// matchesAnyTag is a substring-any match: a wanted tag matches if any video
// tag contains it.
func matchesAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		lw := strings.ToLower(w)
		for _, t := range tags {
			if strings.Contains(strings.ToLower(t), lw) {
				return true
			}
		}
	}
	return false
}

func matchesAnyCategory(have, wanted []CategoryID) bool {
	for _, w := range wanted {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func matchesChannel(v Video, channels []string) bool {
	for _, c := range channels {
		if v.ChannelID == c || strings.EqualFold(v.ChannelTitle, c) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// sortVideos sorts in place by the requested field. Quality and duration use
// their defined total orders; the default is relevance, descending.
func sortVideos(videos []Video, spec VideoSort) {
	field := spec.Field
	if field == "" {
		field = SortRelevance
	}
	descending := spec.Order != "asc"

	less := func(a, b Video) bool {
		switch field {
		case SortPublishedAt:
			return a.PublishedAt.Before(b.PublishedAt)
		case SortViewCount:
			return a.ViewCount < b.ViewCount
		case SortDuration:
			return a.Duration < b.Duration
		case SortTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortQuality:
			return qualityRank[a.Quality] < qualityRank[b.Quality]
		case SortEngagement:
			return a.Engagement < b.Engagement
		default:
			return a.Relevance < b.Relevance
		}
	}

	sort.SliceStable(videos, func(i, j int) bool {
		if descending {
			return less(videos[j], videos[i])
		}
		return less(videos[i], videos[j])
	})
}

// filterCacheKey serializes the invocation's parameters. JSON keeps the key
// stable for identical specs.
func filterCacheKey(filters VideoFilters, sortSpec VideoSort) string {
	payload, _ := json.Marshal(struct {
		Filters VideoFilters `json:"filters"`
		Sort    VideoSort    `json:"sort"`
	}{filters, sortSpec})
	return string(payload)
}

func (s *FilterService) cachedResult(key string) (FilterExecutionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.resultCache[key]
	if !ok || time.Now().After(cached.expiry) {
		delete(s.resultCache, key)
		return FilterExecutionResult{}, false
	}
	return cached.result, true
}

func (s *FilterService) storeResult(key string, result FilterExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultCache[key] = cachedFilterResult{result: result, expiry: time.Now().Add(searchCacheTTL)}
}

func (s *FilterService) recordTimings(t FilterTimings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, t)
	if len(s.metrics) > metricsCap {
		s.metrics = s.metrics[len(s.metrics)-metricsCap:]
	}
}

// Metrics returns a copy of the retained timing samples, newest last.
func (s *FilterService) Metrics() []FilterTimings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FilterTimings, len(s.metrics))
	copy(out, s.metrics)
	return out
}

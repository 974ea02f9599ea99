package internal

import (
	"context"
	"strings"
	"testing"
	"time"
)

// fakeSearcher returns a fixed collection and records the queries it saw.
type fakeSearcher struct {
	videos  []Video
	queries []SearchQuery
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &SearchResult{Videos: f.videos, TotalResults: int64(len(f.videos))}, nil
}

func filterTestVideos() []Video {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Video{
		{ID: "vid01-aaaaa", Title: "Python lists in 3 minutes", ChannelID: "ch1", ChannelTitle: "CodeShorts",
			PublishedAt: base, Duration: 180, ViewCount: 50000, Quality: "high", HasCaptions: true,
			Language: "en", Relevance: 80, Engagement: 4.5, Tags: []string{"python", "quick tip"}},
		{ID: "vid02-bbbbb", Title: "Complete Python course", ChannelID: "ch2", ChannelTitle: "LearnHub",
			PublishedAt: base.AddDate(0, 1, 0), Duration: 7200, ViewCount: 900000, Quality: "excellent", HasCaptions: true,
			Language: "en-US", Relevance: 95, Engagement: 6.1, Tags: []string{"python", "course"}},
		{ID: "vid03-ccccc", Title: "Go concurrency patterns", ChannelID: "ch3", ChannelTitle: "GopherTalks",
			PublishedAt: base.AddDate(0, 2, 0), Duration: 2400, ViewCount: 12000, Quality: "medium", HasCaptions: false,
			Language: "en", Relevance: 40, Engagement: 2.0, Tags: []string{"golang"}},
		{ID: "vid04-ddddd", Title: "Quick CSS trick", ChannelID: "ch4", ChannelTitle: "WebBits",
			PublishedAt: base.AddDate(0, 3, 0), Duration: 90, ViewCount: 300, Quality: "low", HasCaptions: false,
			Language: "es", Relevance: 20, Engagement: 1.2},
		{ID: "vid05-eeeee", Title: "Docker deep dive", ChannelID: "ch5", ChannelTitle: "OpsWorld",
			PublishedAt: base.AddDate(0, 4, 0), Duration: 3600, ViewCount: 45000, Quality: "high", HasCaptions: true,
			Language: "en", Relevance: 60, Engagement: 3.3, Categories: []CategoryID{"devops"}},
	}
}

func TestValidateFiltersAggregatesErrors(t *testing.T) {
	after := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bad := VideoFilters{
		Duration:        &DurationFilter{Preset: "gigantic", Min: 500, Max: 100},
		Views:           &ViewsFilter{Min: -1},
		PublishedAfter:  &after,
		PublishedBefore: &before,
		Qualities:       []string{"amazing"},
	}

	errs := ValidateFilters(bad, VideoSort{Field: "color", Order: "sideways"})
	if len(errs) != 7 {
		t.Errorf("got %d errors; want 7: %v", len(errs), errs)
	}
}

func TestValidateFiltersAcceptsEmpty(t *testing.T) {
	if errs := ValidateFilters(VideoFilters{}, VideoSort{}); len(errs) != 0 {
		t.Errorf("empty spec rejected: %v", errs)
	}
}

func TestApplyFiltersDurationPreset(t *testing.T) {
	svc := NewFilterService(nil, nil, false)
	videos := filterTestVideos()

	result, err := svc.ApplyFilters(context.Background(), videos,
		VideoFilters{Duration: &DurationFilter{Preset: "short"}}, VideoSort{}, nil)
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}

	if result.Total != 2 {
		t.Fatalf("got %d videos; want 2 under 240s", result.Total)
	}
	for _, v := range result.Videos {
		if v.Duration >= 240 {
			t.Errorf("video %s duration %ds leaked through the short preset", v.ID, v.Duration)
		}
	}
	if result.Source != "local" {
		t.Errorf("Source = %q; want local", result.Source)
	}
}

func TestApplyFiltersIntersectionShrinksOnly(t *testing.T) {
	svc := NewFilterService(nil, nil, false)
	videos := filterTestVideos()
	ctx := context.Background()

	captions := true
	steps := []VideoFilters{
		{},
		{Languages: []string{"en"}},
		{Languages: []string{"en"}, RequireCaptions: &captions},
		{Languages: []string{"en"}, RequireCaptions: &captions, Views: &ViewsFilter{Min: 40000}},
	}

	prev := len(videos) + 1
	for i, f := range steps {
		result, err := svc.ApplyFilters(ctx, videos, f, VideoSort{}, nil)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if result.Total > prev {
			t.Errorf("step %d grew the result: %d > %d", i, result.Total, prev)
		}
		prev = result.Total
	}
	if prev != 3 {
		t.Errorf("final result has %d videos; want 3", prev)
	}
}

func TestApplyFiltersOrderIndependent(t *testing.T) {
	svc := NewFilterService(nil, nil, false)
	ctx := context.Background()
	videos := filterTestVideos()
	minRel := 50.0

	a := VideoFilters{MinRelevance: &minRel, Qualities: []string{"high", "excellent"}}
	b := VideoFilters{Qualities: []string{"excellent", "high"}, MinRelevance: &minRel}

	ra, err := svc.ApplyFilters(ctx, videos, a, VideoSort{Field: SortTitle, Order: "asc"}, nil)
	if err != nil {
		t.Fatalf("first spec: %v", err)
	}
	rb, err := svc.ApplyFilters(ctx, videos, b, VideoSort{Field: SortTitle, Order: "asc"}, nil)
	if err != nil {
		t.Fatalf("second spec: %v", err)
	}

	if len(ra.Videos) != len(rb.Videos) {
		t.Fatalf("result sizes differ: %d vs %d", len(ra.Videos), len(rb.Videos))
	}
	for i := range ra.Videos {
		if ra.Videos[i].ID != rb.Videos[i].ID {
			t.Errorf("position %d differs: %s vs %s", i, ra.Videos[i].ID, rb.Videos[i].ID)
		}
	}
}

func TestMatchesLanguagePrefix(t *testing.T) {
	if !matchesLanguage("en-US", []string{"en"}) {
		t.Error("en-US should match wanted language en")
	}
	if matchesLanguage("es", []string{"en"}) {
		t.Error("es should not match wanted language en")
	}
}

func TestSortVideos(t *testing.T) {
	tests := []struct {
		name  string
		spec  VideoSort
		first VideoID
		last  VideoID
	}{
		{"relevance default desc", VideoSort{}, "vid02-bbbbb", "vid04-ddddd"},
		{"views asc", VideoSort{Field: SortViewCount, Order: "asc"}, "vid04-ddddd", "vid02-bbbbb"},
		{"duration desc", VideoSort{Field: SortDuration, Order: "desc"}, "vid02-bbbbb", "vid04-ddddd"},
		{"published asc", VideoSort{Field: SortPublishedAt, Order: "asc"}, "vid01-aaaaa", "vid05-eeeee"},
		{"title asc", VideoSort{Field: SortTitle, Order: "asc"}, "vid02-bbbbb", "vid04-ddddd"},
		{"quality desc", VideoSort{Field: SortQuality, Order: "desc"}, "vid02-bbbbb", "vid04-ddddd"},
		{"engagement desc", VideoSort{Field: SortEngagement, Order: "desc"}, "vid02-bbbbb", "vid04-ddddd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos := filterTestVideos()
			sortVideos(videos, tt.spec)
			if videos[0].ID != tt.first {
				t.Errorf("first = %s; want %s", videos[0].ID, tt.first)
			}
			if videos[len(videos)-1].ID != tt.last {
				t.Errorf("last = %s; want %s", videos[len(videos)-1].ID, tt.last)
			}
		})
	}
}

func TestSortVideosStable(t *testing.T) {
	videos := []Video{
		{ID: "vid0a-aaaaa", Quality: "high", Title: "first"},
		{ID: "vid0b-bbbbb", Quality: "high", Title: "second"},
		{ID: "vid0c-ccccc", Quality: "high", Title: "third"},
	}
	sortVideos(videos, VideoSort{Field: SortQuality, Order: "desc"})
	for i, want := range []VideoID{"vid0a-aaaaa", "vid0b-bbbbb", "vid0c-ccccc"} {
		if videos[i].ID != want {
			t.Errorf("equal-key order not preserved: position %d = %s", i, videos[i].ID)
		}
	}
}

func TestApplyFiltersRemotePathPostFilters(t *testing.T) {
	searcher := &fakeSearcher{videos: filterTestVideos()}
	svc := NewFilterService(searcher, nil, false)

	// Engagement has no API pushdown; the local pass must still enforce it.
	minEng := 3.0
	result, err := svc.ApplyFilters(context.Background(), nil,
		VideoFilters{Query: "python", MinEngagement: &minEng}, VideoSort{}, nil)
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}

	if len(searcher.queries) != 1 {
		t.Fatalf("searcher called %d times; want 1", len(searcher.queries))
	}
	if result.Source != "api" {
		t.Errorf("Source = %q; want api", result.Source)
	}
	for _, v := range result.Videos {
		if v.Engagement < minEng {
			t.Errorf("video %s engagement %v below the local filter", v.ID, v.Engagement)
		}
		if !strings.Contains(strings.ToLower(v.Title), "python") {
			t.Errorf("video %s does not match the query", v.ID)
		}
	}
}

func TestApplyFiltersResultCache(t *testing.T) {
	searcher := &fakeSearcher{videos: filterTestVideos()}
	svc := NewFilterService(searcher, nil, false)
	ctx := context.Background()
	filters := VideoFilters{Query: "python"}

	first, err := svc.ApplyFilters(ctx, nil, filters, VideoSort{}, nil)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.CacheHit {
		t.Error("first call reported a cache hit")
	}

	second, err := svc.ApplyFilters(ctx, nil, filters, VideoSort{}, nil)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.CacheHit {
		t.Error("second identical call missed the result cache")
	}
	if len(searcher.queries) != 1 {
		t.Errorf("searcher called %d times; want 1 (second call served from cache)", len(searcher.queries))
	}
	if got := len(svc.Metrics()); got != 2 {
		t.Errorf("metrics samples = %d; want 2 (cache hits count too)", got)
	}

	// A different spec is a different key.
	if _, err := svc.ApplyFilters(ctx, nil, VideoFilters{Query: "golang"}, VideoSort{}, nil); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if len(searcher.queries) != 2 {
		t.Errorf("searcher called %d times; want 2", len(searcher.queries))
	}
}

func TestApplyFiltersPushdown(t *testing.T) {
	searcher := &fakeSearcher{videos: filterTestVideos()}
	svc := NewFilterService(searcher, nil, false)

	captions := true
	after := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.ApplyFilters(context.Background(), nil, VideoFilters{
		Query:           "tutorials",
		Duration:        &DurationFilter{Preset: "long"},
		PublishedAfter:  &after,
		RequireCaptions: &captions,
		Languages:       []string{"en"},
	}, VideoSort{Field: SortViewCount}, nil)
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}

	q := searcher.queries[0]
	if q.Duration != "long" {
		t.Errorf("Duration = %q; want long", q.Duration)
	}
	if !q.PublishedAfter.Equal(after) {
		t.Errorf("PublishedAfter = %v; want %v", q.PublishedAfter, after)
	}
	if !q.CaptionsOnly {
		t.Error("CaptionsOnly not pushed down")
	}
	if q.Language != "en" {
		t.Errorf("Language = %q; want en", q.Language)
	}
	if q.Order != "viewCount" {
		t.Errorf("Order = %q; want viewCount", q.Order)
	}
}

func TestApplyFiltersLocalWithoutSearcher(t *testing.T) {
	svc := NewFilterService(nil, nil, false)

	result, err := svc.ApplyFilters(context.Background(), filterTestVideos(),
		VideoFilters{Query: "python"}, VideoSort{}, nil)
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if result.Source != "local" {
		t.Errorf("Source = %q; want local with nil searcher", result.Source)
	}
	if result.Total != 2 {
		t.Errorf("got %d videos; want 2 matching python", result.Total)
	}
}

func TestApplyFiltersRecordsMetrics(t *testing.T) {
	svc := NewFilterService(nil, nil, false)

	if _, err := svc.ApplyFilters(context.Background(), filterTestVideos(), VideoFilters{}, VideoSort{}, nil); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if got := len(svc.Metrics()); got != 1 {
		t.Errorf("metrics samples = %d; want 1", got)
	}
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Video is the filter engine's normalized view of a video: duration in
// seconds, engagement as a percentage, quality as a named bucket. Fields the
// remote service did not supply stay at their zero value.
type Video struct {
	ID           VideoID      `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ChannelID    string       `json:"channelId"`
	ChannelTitle string       `json:"channelTitle"`
	PublishedAt  time.Time    `json:"publishedAt"`
	Duration     int          `json:"duration"` // seconds
	ViewCount    int64        `json:"viewCount"`
	LikeCount    int64        `json:"likeCount"`
	Quality      string       `json:"quality"` // excellent|high|medium|low
	HasCaptions  bool         `json:"hasCaptions"`
	Language     string       `json:"language"`
	Tags         []string     `json:"tags,omitempty"`
	Categories   []CategoryID `json:"categories,omitempty"`
	Relevance    float64      `json:"relevance"`  // 0-100
	Engagement   float64      `json:"engagement"` // percent
}

// SearchErrorKind classifies remote search failures.
type SearchErrorKind string

const (
	SearchErrQuota     SearchErrorKind = "quota_exceeded"
	SearchErrRateLimit SearchErrorKind = "rate_limited"
	SearchErrNotFound  SearchErrorKind = "not_found"
	SearchErrNetwork   SearchErrorKind = "network"
	SearchErrServer    SearchErrorKind = "server_error"
)

// SearchError is a classified remote-search failure.
type SearchError struct {
	Kind    SearchErrorKind
	Message string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("video search: %s: %s", e.Kind, e.Message)
}

// SearchQuery is the request sent to the remote search service.
type SearchQuery struct {
	Query          string
	MaxResults     int64
	Duration       string // "", "short", "medium", "long"
	PublishedAfter time.Time
	Order          string // "", "relevance", "date", "viewCount", "rating"
	SafeSearch     string // "", "none", "moderate", "strict"
	CaptionsOnly   bool
	Language       string
}

// SearchResult is the remote service's reply converted to the internal shape.
type SearchResult struct {
	Videos        []Video `json:"videos"`
	TotalResults  int64   `json:"totalResults"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	QuotaCost     int64   `json:"quotaCost"`
}

// VideoSearcher abstracts the remote video-search service.
type VideoSearcher interface {
	Search(ctx context.Context, query SearchQuery) (*SearchResult, error)
}

// YouTube Data API unit costs.
const (
	searchQuotaCost = 100
	listQuotaCost   = 1
)

// QuotaTracker meters API units spent and refuses to spend past a budget
// (0 means unlimited).
type QuotaTracker struct {
	mu     sync.Mutex
	spent  int64
	budget int64
}

// NewQuotaTracker creates a tracker with the given unit budget.
func NewQuotaTracker(budget int64) *QuotaTracker {
	return &QuotaTracker{budget: budget}
}

// Reserve records cost units, refusing if the budget would be exceeded.
func (q *QuotaTracker) Reserve(cost int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.budget > 0 && q.spent+cost > q.budget {
		return &SearchError{
			Kind:    SearchErrQuota,
			Message: fmt.Sprintf("quota budget exhausted (%d of %d units spent)", q.spent, q.budget),
		}
	}
	q.spent += cost
	return nil
}

// Spent returns units spent so far.
func (q *QuotaTracker) Spent() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.spent
}

// YouTubeSearchClient implements VideoSearcher on the YouTube Data API.
type YouTubeSearchClient struct {
	service *youtube.Service
	quota   *QuotaTracker
	verbose bool
}

// NewYouTubeSearchClient creates a Data API client with the given key and
// quota budget.
func NewYouTubeSearchClient(ctx context.Context, apiKey string, quotaBudget int64, verbose bool) (*YouTubeSearchClient, error) {
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating YouTube service: %w", err)
	}
	return &YouTubeSearchClient{
		service: service,
		quota:   NewQuotaTracker(quotaBudget),
		verbose: verbose,
	}, nil
}

// Quota exposes the tracker for reporting.
func (c *YouTubeSearchClient) Quota() *QuotaTracker {
	return c.quota
}

// Search runs a search call and hydrates results with per-video details.
func (c *YouTubeSearchClient) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	if err := c.quota.Reserve(searchQuotaCost); err != nil {
		return nil, err
	}

	maxResults := query.MaxResults
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 25
	}

	call := c.service.Search.List([]string{"snippet"}).
		Q(query.Query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx)

	if query.Duration != "" {
		call = call.VideoDuration(query.Duration)
	}
	if !query.PublishedAfter.IsZero() {
		call = call.PublishedAfter(query.PublishedAfter.Format(time.RFC3339))
	}
	if query.Order != "" {
		call = call.Order(query.Order)
	}
	if query.SafeSearch != "" {
		call = call.SafeSearch(query.SafeSearch)
	}
	if query.CaptionsOnly {
		call = call.VideoCaption("closedCaption")
	}
	if query.Language != "" {
		call = call.RelevanceLanguage(query.Language)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classifySearchError(err)
	}

	ids := make([]VideoID, 0, len(resp.Items))
	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		v := Video{
			ID:           VideoID(item.Id.VideoId),
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelID:    item.Snippet.ChannelId,
			ChannelTitle: item.Snippet.ChannelTitle,
		}
		if t, perr := time.Parse(time.RFC3339, item.Snippet.PublishedAt); perr == nil {
			v.PublishedAt = t
		}
		videos = append(videos, v)
		ids = append(ids, v.ID)
	}

	quotaCost := int64(searchQuotaCost)
	detailCost, derr := c.hydrateDetails(ctx, ids, videos)
	quotaCost += detailCost
	if derr != nil && c.verbose {
		// Detail hydration failing leaves partially-filled videos; the
		// search itself still succeeded.
		fmt.Printf("Video detail fetch incomplete: %v\n", derr)
	}

	result := &SearchResult{
		Videos:    videos,
		QuotaCost: quotaCost,
	}
	if resp.PageInfo != nil {
		result.TotalResults = resp.PageInfo.TotalResults
	}
	result.NextPageToken = resp.NextPageToken
	return result, nil
}

// detailGroupSize bounds how many videos one details call covers; groups run
// sequentially with a short delay to stay friendly to the API.
const (
	detailGroupSize  = 3
	detailGroupDelay = 200 * time.Millisecond
)

// hydrateDetails fills duration, statistics and caption info for the given
// videos, in fixed-size groups with an inter-group delay.
func (c *YouTubeSearchClient) hydrateDetails(ctx context.Context, ids []VideoID, videos []Video) (int64, error) {
	byID := make(map[VideoID]*Video, len(videos))
	for i := range videos {
		byID[videos[i].ID] = &videos[i]
	}

	var cost int64
	for start := 0; start < len(ids); start += detailGroupSize {
		end := start + detailGroupSize
		if end > len(ids) {
			end = len(ids)
		}

		if start > 0 {
			select {
			case <-time.After(detailGroupDelay):
			case <-ctx.Done():
				return cost, ctx.Err()
			}
		}

		if err := c.quota.Reserve(listQuotaCost); err != nil {
			return cost, err
		}
		cost += listQuotaCost

		group := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			group = append(group, string(id))
		}

		resp, err := c.service.Videos.List([]string{"contentDetails", "statistics", "snippet"}).
			Id(group...).
			Context(ctx).
			Do()
		if err != nil {
			return cost, classifySearchError(err)
		}

		for _, item := range resp.Items {
			v, ok := byID[VideoID(item.Id)]
			if !ok {
				continue
			}
			if item.ContentDetails != nil {
				v.Duration = ParseISODuration(item.ContentDetails.Duration)
				v.HasCaptions = item.ContentDetails.Caption == "true"
				v.Quality = qualityFromDefinition(item.ContentDetails.Definition)
			}
			if item.Statistics != nil {
				v.ViewCount = int64(item.Statistics.ViewCount)
				v.LikeCount = int64(item.Statistics.LikeCount)
				v.Engagement = engagementRate(v.LikeCount, v.ViewCount)
			}
			if item.Snippet != nil {
				v.Tags = item.Snippet.Tags
				if item.Snippet.DefaultAudioLanguage != "" {
					v.Language = item.Snippet.DefaultAudioLanguage
				} else {
					v.Language = item.Snippet.DefaultLanguage
				}
			}
		}
	}

	return cost, nil
}

// engagementRate is likes per hundred views.
func engagementRate(likes, views int64) float64 {
	if views == 0 {
		return 0
	}
	return float64(likes) / float64(views) * 100
}

func qualityFromDefinition(definition string) string {
	if definition == "hd" {
		return "high"
	}
	return "medium"
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO 8601 duration like "PT4M13S" to seconds.
// Unparseable input yields 0.
func ParseISODuration(iso string) int {
	m := isoDurationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	return atoi(m[1])*86400 + atoi(m[2])*3600 + atoi(m[3])*60 + atoi(m[4])
}

// classifySearchError maps Data API and transport failures onto the search
// error taxonomy.
func classifySearchError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 403 && hasReason(apiErr, "quotaExceeded", "dailyLimitExceeded"):
			return &SearchError{Kind: SearchErrQuota, Message: "daily API quota exceeded"}
		case apiErr.Code == 403 && hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded"),
			apiErr.Code == 429:
			return &SearchError{Kind: SearchErrRateLimit, Message: "rate limited"}
		case apiErr.Code == 404:
			return &SearchError{Kind: SearchErrNotFound, Message: "not found"}
		case apiErr.Code >= 500:
			return &SearchError{Kind: SearchErrServer, Message: fmt.Sprintf("server error %d", apiErr.Code)}
		}
		return &SearchError{Kind: SearchErrServer, Message: apiErr.Message}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &SearchError{Kind: SearchErrNetwork, Message: urlErr.Error()}
	}
	if strings.Contains(err.Error(), "no such host") {
		return &SearchError{Kind: SearchErrNetwork, Message: err.Error()}
	}

	return fmt.Errorf("video search: %w", err)
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

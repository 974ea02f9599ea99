package internal

import (
	"strings"
	"sync"
)

// maxEnhancedQueryLength is a hard cap; the remote service truncates longer
// queries itself, so we stay under it deliberately.
const maxEnhancedQueryLength = 100

// Keyword budget per source field. Name keywords are the strongest signal,
// so they get priority in the exclusion chain.
const (
	nameKeywordLimit        = 5
	descriptionKeywordLimit = 8
	criteriaKeywordLimit    = 6
)

// CategoryKeywords holds the keyword tiers extracted from one category.
type CategoryKeywords struct {
	Primary   []string // from the category name
	Secondary []string // from the description
	Criteria  []string // from the match criteria
}

// All returns every keyword across tiers, primary first.
func (k CategoryKeywords) All() []string {
	out := make([]string, 0, len(k.Primary)+len(k.Secondary)+len(k.Criteria))
	out = append(out, k.Primary...)
	out = append(out, k.Secondary...)
	out = append(out, k.Criteria...)
	return out
}

// EnhancedQuery is the outcome of query enhancement: the rewritten query plus
// search parameters derived from category semantics.
type EnhancedQuery struct {
	Query      string `json:"query"`
	Strategy   string `json:"strategy"` // category_filter, keyword_boost, query_expansion
	Duration   string `json:"duration,omitempty"`
	Order      string `json:"order,omitempty"`
	SafeSearch string `json:"safeSearch,omitempty"`
}

// QueryEnhancer rewrites search queries using category vocabulary. Keyword
// extraction per category is memoized; InvalidateCategory must be called when
// a category definition changes.
type QueryEnhancer struct {
	mu       sync.Mutex
	keywords map[CategoryID]CategoryKeywords
}

func NewQueryEnhancer() *QueryEnhancer {
	return &QueryEnhancer{keywords: make(map[CategoryID]CategoryKeywords)}
}

// KeywordsFor extracts (or returns memoized) keyword tiers for a category.
// Each tier excludes everything already claimed by stronger tiers, so the
// tiers never overlap.
func (e *QueryEnhancer) KeywordsFor(category Category) CategoryKeywords {
	e.mu.Lock()
	defer e.mu.Unlock()
	if kw, ok := e.keywords[category.ID]; ok {
		return kw
	}

	exclude := make(map[string]struct{})
	primary := KeywordsFromText(category.Name, 3, nameKeywordLimit, exclude)
	for _, w := range primary {
		exclude[w] = struct{}{}
	}
	secondary := KeywordsFromText(category.Description, 4, descriptionKeywordLimit, exclude)
	for _, w := range secondary {
		exclude[w] = struct{}{}
	}
	criteria := KeywordsFromText(category.Criteria, 4, criteriaKeywordLimit, exclude)

	kw := CategoryKeywords{Primary: primary, Secondary: secondary, Criteria: criteria}
	e.keywords[category.ID] = kw
	return kw
}

// InvalidateCategory drops the memoized keywords for one category.
func (e *QueryEnhancer) InvalidateCategory(id CategoryID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.keywords, id)
}

// InvalidateAll drops every memoized keyword set.
func (e *QueryEnhancer) InvalidateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keywords = make(map[CategoryID]CategoryKeywords)
}

// Enhance rewrites a query using the given categories' vocabulary and derives
// search parameters from their semantics. Without categories (or when the
// primary category yields no name keywords) the query passes through
// unchanged; otherwise the top primary keywords are appended, plus one
// criteria keyword when the query already looks specific.
func (e *QueryEnhancer) Enhance(query string, categories []Category) EnhancedQuery {
	query = normalizeWhitespace(query)

	enhanced := EnhancedQuery{Query: truncateQuery(query), Strategy: "category_filter", Order: "relevance"}
	if len(categories) == 0 {
		return enhanced
	}

	kw := e.KeywordsFor(categories[0])
	if len(kw.Primary) == 0 {
		// Nothing to boost with; only the semantic parameters apply.
		applyCategorySemantics(&enhanced, categories)
		return enhanced
	}

	var terms []string
	if query != "" {
		terms = append(terms, query)
	}
	lower := strings.ToLower(query)
	for _, p := range firstN(kw.Primary, 2) {
		if !strings.Contains(lower, p) {
			terms = append(terms, p)
		}
	}
	enhanced.Strategy = "keyword_boost"

	// Specific queries carry enough intent to sharpen with a criteria term.
	if isSpecificQuery(query) && len(kw.Criteria) > 0 {
		if c := kw.Criteria[0]; !strings.Contains(lower, c) {
			terms = append(terms, c)
		}
		enhanced.Strategy = "query_expansion"
	}

	enhanced.Query = truncateQuery(normalizeWhitespace(strings.Join(terms, " ")))
	applyCategorySemantics(&enhanced, categories)
	return enhanced
}

// isSpecificQuery reports whether a query looks intentional enough to expand
// rather than boost: at least two words, one of them substantial.
func isSpecificQuery(query string) bool {
	words := strings.Fields(query)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if len(w) > 4 {
			return true
		}
	}
	return false
}

// applyCategorySemantics maps category vocabulary to search parameters:
// format hints set the duration bucket, recency hints set the sort order.
func applyCategorySemantics(q *EnhancedQuery, categories []Category) {
	text := strings.ToLower(categoryText(categories))

	switch {
	case strings.Contains(text, "quick tip") || strings.Contains(text, "quick-tip") || strings.Contains(text, "demo"):
		q.Duration = "short"
	case strings.Contains(text, "tutorial") || strings.Contains(text, "course") || strings.Contains(text, "lecture"):
		q.Duration = "medium"
	}

	switch {
	case strings.Contains(text, "trending") || strings.Contains(text, "news") || strings.Contains(text, "latest"):
		q.Order = "date"
	case strings.Contains(text, "popular") || strings.Contains(text, "beginner"):
		q.Order = "viewCount"
	default:
		q.Order = "relevance"
	}

	if strings.Contains(text, "kids") || strings.Contains(text, "children") {
		q.SafeSearch = "strict"
	}
}

func categoryText(categories []Category) string {
	var b strings.Builder
	for _, c := range categories {
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.Description)
		b.WriteByte(' ')
		b.WriteString(strings.Join(c.Tags, " "))
		b.WriteByte(' ')
	}
	return b.String()
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateQuery enforces the hard length cap, cutting at a word boundary
// when one is close enough.
func truncateQuery(q string) string {
	if len(q) <= maxEnhancedQueryLength {
		return q
	}
	cut := q[:maxEnhancedQueryLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > maxEnhancedQueryLength/2 {
		cut = cut[:idx]
	}
	return cut
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package internal

import (
	"regexp"
	"sort"
	"strings"
)

// Shared word-level text analysis used by the heuristic insights generator and
// the query enhancer. One stop-word set for both so their notion of a
// "meaningful" word never drifts apart.

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
		"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
		"how", "man", "new", "now", "old", "see", "two", "way", "who", "its",
		"did", "yes", "your", "with", "this", "that", "from", "they", "will",
		"have", "been", "were", "said", "each", "which", "their", "them",
		"then", "than", "when", "what", "where", "there", "these", "those",
		"here", "just", "like", "more", "most", "some", "such", "very",
		"into", "over", "also", "only", "about", "after", "before", "while",
		"because", "through", "during", "between", "under", "above", "again",
		"going", "really", "actually", "basically", "gonna", "want", "know",
		"think", "make", "made", "well", "okay", "right", "thing", "things",
		"video", "today", "welcome", "channel", "subscribe",
	} {
		stopWords[w] = struct{}{}
	}
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9'_-]*`)

// IsStopWord reports whether a word carries no topical signal.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// ExtractWords returns the lowercase words of at least minLength characters
// with stop words removed, in order of appearance.
func ExtractWords(text string, minLength int) []string {
	var words []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if len(w) < minLength || IsStopWord(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

// TopWordsByFrequency counts words of at least minLength characters and
// returns up to limit of them, most frequent first. Ties break
// alphabetically so the result is deterministic.
func TopWordsByFrequency(text string, minLength, limit int) []string {
	counts := make(map[string]int)
	for _, w := range ExtractWords(text, minLength) {
		counts[w]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

var (
	allCapsPattern   = regexp.MustCompile(`\b[A-Z]{2,}[0-9]*\b`)
	camelCasePattern = regexp.MustCompile(`\b[a-z]+(?:[A-Z][a-z0-9]+)+\b|\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)
)

// commonAcronyms that show up in transcripts without being technical terms.
var commonAcronyms = map[string]struct{}{
	"OK": {}, "TV": {}, "USA": {}, "AKA": {}, "ASAP": {}, "FYI": {}, "DIY": {},
}

// ExtractTechnicalTerms pulls ALL-CAPS tokens and CamelCase tokens out of the
// text, deduplicated in order of first appearance, capped at limit.
func ExtractTechnicalTerms(text string, limit int) []string {
	seen := make(map[string]struct{})
	var terms []string

	add := func(term string) {
		if _, common := commonAcronyms[term]; common {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, t := range allCapsPattern.FindAllString(text, -1) {
		add(t)
	}
	for _, t := range camelCasePattern.FindAllString(text, -1) {
		add(t)
	}

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// KeywordsFromText extracts unique non-stop-words of at least minLength
// characters, sorted longest first as a cheap specificity proxy, capped at
// limit. The exclude set filters words already claimed by a higher tier.
func KeywordsFromText(text string, minLength, limit int, exclude map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range ExtractWords(text, minLength) {
		if _, skip := exclude[w]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// clampScore bounds a score to the 0-100 range used everywhere in the
// analysis pipeline.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

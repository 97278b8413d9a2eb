// Package textmatch cleans search terms and scores fuzzy title and author
// matches the way Postgres pg_trgm does, for stores that cannot run it in SQL.
package textmatch

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultThreshold mirrors pg_trgm.similarity_threshold.
const DefaultThreshold = 0.3

var (
	allowed    = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)
	disallowed = regexp.MustCompile(`[^A-Za-z0-9 ]`)
	nonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Sanitize strips every character outside [A-Za-z0-9 ] from term. The second
// result is true when the raw term was not already clean, including when it
// was empty.
func Sanitize(term string) (string, bool) {
	if allowed.MatchString(term) {
		return term, false
	}
	return disallowed.ReplaceAllString(term, ""), true
}

// Similarity returns the share of trigrams a and b have in common, in [0, 1].
func Similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(ta)+len(tb)-common)
}

// Matches reports whether candidate is a hit for query: a case-insensitive
// substring, a substring once everything but letters and digits is dropped
// from both, or a trigram similarity at or above DefaultThreshold.
func Matches(candidate, query string) bool {
	c, q := strings.ToLower(candidate), strings.ToLower(query)
	if strings.Contains(c, q) {
		return true
	}
	if strings.Contains(nonAlnum.ReplaceAllString(c, ""), nonAlnum.ReplaceAllString(q, "")) {
		return true
	}
	return Similarity(candidate, query) >= DefaultThreshold
}

// Rank keeps the items whose key matches query and orders them by
// descending similarity. Ties keep their input order.
func Rank[T any](items []T, query string, key func(T) string) []T {
	type scored struct {
		item  T
		score float64
	}

	hits := make([]scored, 0, len(items))
	for _, it := range items {
		k := key(it)
		if !Matches(k, query) {
			continue
		}
		hits = append(hits, scored{item: it, score: Similarity(k, query)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}

// trigrams splits s into lower-cased alphanumeric words, pads each with two
// leading spaces and one trailing space, and collects the distinct trigrams.
func trigrams(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

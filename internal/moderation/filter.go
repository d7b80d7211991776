// Package moderation flags user-supplied profile text that contains blocked
// keywords.
package moderation

import (
	"sort"
	"strings"
	"unicode"
)

var defaultKeywords = []string{
	"casino",
	"crypto giveaway",
	"escort",
	"free money",
	"viagra",
	"xxx",
}

// Filter matches whole words or phrases, ignoring case and punctuation.
type Filter struct {
	keywords []string
}

// NewFilter builds a filter from the default list plus extra keywords.
// Blank and duplicate entries are dropped.
func NewFilter(extra []string) *Filter {
	seen := make(map[string]struct{})
	var kws []string
	for _, kw := range append(append([]string{}, defaultKeywords...), extra...) {
		n := normalize(kw)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		kws = append(kws, n)
	}
	sort.Strings(kws)
	return &Filter{keywords: kws}
}

// Check returns the keywords found in text, in sorted order.
func (f *Filter) Check(text string) []string {
	if f == nil || text == "" {
		return nil
	}
	// Padding turns whole-word matching into a substring search.
	haystack := " " + normalize(text) + " "
	var hits []string
	for _, kw := range f.keywords {
		if strings.Contains(haystack, " "+kw+" ") {
			hits = append(hits, kw)
		}
	}
	return hits
}

// normalize lowercases s and collapses every run of non-alphanumerics to a
// single space.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

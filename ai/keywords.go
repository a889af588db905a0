package ai

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Stop words dropped before picking search terms
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "it": true, "its": true,
	"they": true, "them": true, "not": true, "you": true, "said": true,
	"into": true, "over": true, "after": true, "about": true, "than": true,
}

// minKeywordLen is the shortest word kept as a search term, exclusive.
const minKeywordLen = 3

// normalizeText folds compatibility characters (ligatures, full-width
// forms) and collapses whitespace.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// HeuristicKeywords extracts up to max search terms from free text:
// lowercase, letters and digits only, longer than three characters,
// no stop words, first occurrence wins.
func HeuristicKeywords(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxKeywords
	}
	words := strings.Fields(strings.ToLower(normalizeText(text)))
	out := make([]string, 0, max)
	seen := make(map[string]bool, len(words))

	for _, word := range words {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, word)

		// Skip stop words, short words and repeats
		if len([]rune(cleaned)) <= minKeywordLen || stopWords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
		if len(out) == max {
			break
		}
	}
	return out
}

// CleanKeywords lowercases, trims and de-duplicates extracted terms,
// dropping anything too short or too long to be a search phrase.
func CleanKeywords(terms []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxKeywords
	}
	out := make([]string, 0, max)
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(normalizeText(t))
		if n := len([]rune(t)); n <= 2 || n >= 50 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}

// HeuristicExtractor is a KeywordExtractor that needs no model.
type HeuristicExtractor struct{}

var _ KeywordExtractor = HeuristicExtractor{}

// ExtractKeywords implements KeywordExtractor.
func (HeuristicExtractor) ExtractKeywords(_ context.Context, title, summary string, max int) ([]string, error) {
	text := title
	if summary != "" {
		text += " " + summary
	}
	return HeuristicKeywords(text, max), nil
}

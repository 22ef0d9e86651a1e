// Package wordcloud turns free-text answers into a ranked list of salient
// words for the word cloud view.
package wordcloud

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

const (
	// MaxEntries caps the number of words returned by Aggregate.
	MaxEntries = 50
	// MinWordLength is the shortest token that survives filtering.
	MinWordLength = 3
)

// WordEntry is a word and the number of times it appeared.
type WordEntry struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"to": {}, "of": {}, "is": {}, "am": {}, "are": {}, "was": {}, "were": {},
	"it": {}, "i": {}, "you": {}, "he": {}, "she": {}, "they": {}, "we": {},
	"and": {}, "or": {}, "but": {},
}

// IsStopWord reports whether word is excluded from the cloud regardless of
// its frequency.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Aggregate counts the salient words across all answers. Entries are
// ordered by descending count; equal counts keep the order in which each
// word was first seen. At most MaxEntries entries are returned.
func Aggregate(answers []string) []WordEntry {
	counts := make(map[string]int)
	var order []string

	for _, answer := range answers {
		for _, token := range strings.Fields(strings.ToLower(answer)) {
			word := clean(token)
			if len(word) < MinWordLength || IsStopWord(word) {
				continue
			}
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	entries := lo.Map(order, func(word string, _ int) WordEntry {
		return WordEntry{Text: word, Value: counts[word]}
	})
	slices.SortStableFunc(entries, func(a, b WordEntry) int {
		return b.Value - a.Value
	})
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

// clean drops every rune that is not a lowercase ASCII letter.
func clean(token string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, token)
}

// Tier maps a count to one of five emphasis tiers, 1 being the plainest.
func Tier(value int) int {
	switch {
	case value > 5:
		return 5
	case value > 3:
		return 4
	case value > 2:
		return 3
	case value > 1:
		return 2
	default:
		return 1
	}
}

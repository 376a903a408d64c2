package classify

import (
	"context"
	"strings"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
)

// keywordRelevance is the fixed score assigned by offline keyword matching.
const keywordRelevance = 0.8

// KeywordMatcher is the deterministic offline classifier: case-insensitive
// substring matching of topic keywords against title and summary. It never
// calls the classification service and is used in dry-run mode and degraded
// operation.
type KeywordMatcher struct{}

func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{}
}

// Classify matches each item against the topics in order; the first topic
// with a keyword hit wins with a fixed relevance of 0.8.
func (m *KeywordMatcher) Classify(_ context.Context, items []feed.Item, topics []config.Topic) []Match {
	var matches []Match
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.Summary)
		for _, topic := range topics {
			if matchesKeywords(text, topic.Keywords) {
				matches = append(matches, Match{
					Item:      item,
					Topic:     topic,
					Relevance: keywordRelevance,
				})
				break
			}
		}
	}
	return matches
}

func matchesKeywords(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

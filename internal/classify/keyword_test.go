package classify

import (
	"context"
	"testing"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
)

func TestKeywordMatcher(t *testing.T) {
	topics := []config.Topic{
		{Name: "coding tools", Keywords: []string{"claude code", "copilot"}, Priority: config.PriorityHigh},
		{Name: "models", Keywords: []string{"llm", "gpt"}, Priority: config.PriorityLow},
	}

	items := []feed.Item{
		{Title: "Claude Code v2 released", URL: "https://example.com/1", Summary: "big update"},
		{Title: "Random gardening tips", URL: "https://example.com/2", Summary: "tomatoes"},
		{Title: "Benchmarks", URL: "https://example.com/3", Summary: "a new LLM beat the old one"},
	}

	m := NewKeywordMatcher()
	matches := m.Classify(context.Background(), items, topics)

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}

	// Title match is case-insensitive.
	if matches[0].Item.URL != "https://example.com/1" || matches[0].Topic.Name != "coding tools" {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
	// Summary text also counts.
	if matches[1].Item.URL != "https://example.com/3" || matches[1].Topic.Name != "models" {
		t.Errorf("unexpected second match: %+v", matches[1])
	}

	for _, match := range matches {
		if match.Relevance != 0.8 {
			t.Errorf("relevance = %v, want fixed 0.8", match.Relevance)
		}
	}
}

func TestKeywordMatcherFirstTopicWins(t *testing.T) {
	topics := []config.Topic{
		{Name: "one", Keywords: []string{"shared"}},
		{Name: "two", Keywords: []string{"shared"}},
	}
	items := []feed.Item{{Title: "shared keyword here", URL: "https://example.com/x"}}

	matches := NewKeywordMatcher().Classify(context.Background(), items, topics)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (first topic wins, no duplicates)", len(matches))
	}
	if matches[0].Topic.Name != "one" {
		t.Errorf("topic = %q, want the first configured topic", matches[0].Topic.Name)
	}
}

package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
)

const summaryPreviewLen = 200

// buildFilterPrompt renders the quick-filter prompt: the full topic catalog
// plus one batch of items, both with zero-based indices the response must
// refer to.
func buildFilterPrompt(topics []config.Topic, batch []feed.Item, threshold float64) string {
	var b strings.Builder

	b.WriteString("You are a news screening assistant. Decide which of the articles below are relevant to the user's topics of interest.\n\n")

	b.WriteString("## Topics\n")
	for i, t := range topics {
		fmt.Fprintf(&b, "[%d] %s (%s): %s\n    Keywords: %s\n",
			i, t.Name, t.Priority, t.Description, strings.Join(t.Keywords, ", "))
	}

	b.WriteString("\n## Articles\n")
	for i, item := range batch {
		fmt.Fprintf(&b, "[%d] %q (%s)\n    %s\n\n", i, item.Title, item.SourceName, preview(item.Summary))
	}

	b.WriteString("## Output\n")
	b.WriteString("Return a JSON array containing only the matching articles. Each element:\n")
	b.WriteString(`{"index": article index, "topicIndex": matched topic index, "relevance": 0.0-1.0}` + "\n")
	fmt.Fprintf(&b, "Return an empty array [] if nothing matches. Only include results with relevance >= %.1f. Output only the JSON, nothing else.\n", threshold)

	return b.String()
}

// preview truncates the summary to summaryPreviewLen characters, counting
// runes so multi-byte scripts keep a full-length preview.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= summaryPreviewLen {
		return s
	}
	return string([]rune(s)[:summaryPreviewLen])
}

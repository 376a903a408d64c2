package analyze

import (
	"fmt"
	"strings"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
)

// buildAnalysisPrompt renders the deep-analysis prompt for one matched item,
// anchored to the topic it matched.
func buildAnalysisPrompt(item feed.Item, topic config.Topic, content string) string {
	var b strings.Builder

	b.WriteString("You are a technology news analyst. Analyze the article below with a focus on its relevance to the user's topic of interest.\n\n")

	b.WriteString("## Topic of interest\n")
	fmt.Fprintf(&b, "Name: %s\nDescription: %s\n\n", topic.Name, topic.Description)

	b.WriteString("## Article\n")
	fmt.Fprintf(&b, "Title: %s\nSource: %s\nContent:\n%s\n\n", item.Title, item.SourceName, content)

	b.WriteString("## Output\n")
	b.WriteString("Return JSON only, no other text:\n")
	b.WriteString(`{
  "title": "the article title, cleaned up for display",
  "summary": "summary in at most 150 words, highlighting what matters for the topic of interest",
  "keyPoints": ["key point 1", "key point 2", "key point 3"],
  "actionable": true or false (does this require immediate action, like a version upgrade or a feature to try),
  "recommendation": "one-sentence recommended action, empty string when actionable is false"
}`)

	return b.String()
}

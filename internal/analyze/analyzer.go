// Package analyze implements the second pipeline stage: producing a
// structured analysis for every matched item.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
	"github.com/kalambet/newsdigest/internal/llm"
)

// maxSummaryLen bounds the stored summary regardless of what the service
// returns.
const maxSummaryLen = 500

// Analysis is the enrichment record attached to a matched item.
type Analysis struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"keyPoints"`
	Actionable     bool     `json:"actionable"`
	Recommendation string   `json:"recommendation"`
}

// Completer is the interface for text completion via the generation service.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Analyzer produces an Analysis per matched item using a completion service.
type Analyzer struct {
	llm   Completer
	model string
}

func NewAnalyzer(client Completer, model string) *Analyzer {
	return &Analyzer{llm: client, model: model}
}

// Analyze generates the deep analysis for one matched item. content is the
// extracted page text; pass "" to analyze from the feed summary instead.
//
// Analyze never fails: any error from the generation call or response parsing
// yields a well-formed record whose summary carries the error detail, so the
// item is still persisted and reported, visibly degraded.
func (a *Analyzer) Analyze(ctx context.Context, item feed.Item, topic config.Topic, content string) Analysis {
	if content == "" {
		content = item.Summary
	}

	prompt := buildAnalysisPrompt(item, topic, content)

	raw, err := a.llm.Complete(ctx, a.model, prompt)
	if err != nil {
		slog.Warn("deep analysis call failed", "item", item.Title, "error", err)
		return failedAnalysis(item, err)
	}

	jsonText, err := llm.FirstJSONObject(raw)
	if err != nil {
		slog.Warn("deep analysis response had no JSON object", "item", item.Title, "error", err)
		return failedAnalysis(item, err)
	}

	var result Analysis
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		slog.Warn("deep analysis response malformed", "item", item.Title, "error", err)
		return failedAnalysis(item, err)
	}

	if result.Title == "" {
		result.Title = item.Title
	}
	result.Summary = truncate(result.Summary, maxSummaryLen)
	if !result.Actionable {
		result.Recommendation = ""
	}
	return result
}

// Offline is the deterministic analyzer used in dry-run mode: it delegates to
// Fallback and never touches the network.
type Offline struct{}

func (Offline) Analyze(_ context.Context, item feed.Item, topic config.Topic, _ string) Analysis {
	return Fallback(item, topic)
}

// Fallback synthesizes an Analysis from the item's own summary and topic
// metadata without calling any external service. Used in dry-run mode.
func Fallback(item feed.Item, topic config.Topic) Analysis {
	summary := truncate(item.Summary, 150)
	if summary == "" {
		summary = "(feed summary empty; full analysis requires the generation service)"
	}

	actionable := topic.Priority == config.PriorityHigh
	recommendation := ""
	if actionable {
		recommendation = "High-priority topic match, worth a closer look"
	}

	return Analysis{
		Title:   item.Title,
		Summary: summary,
		KeyPoints: []string{
			"Source: " + item.SourceName,
			"Keyword match: " + topic.Name,
		},
		Actionable:     actionable,
		Recommendation: recommendation,
	}
}

func failedAnalysis(item feed.Item, err error) Analysis {
	return Analysis{
		Title:      item.Title,
		Summary:    fmt.Sprintf("analysis failed: %v", err),
		KeyPoints:  nil,
		Actionable: false,
	}
}

// truncate cuts s to at most maxLen characters, counting runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

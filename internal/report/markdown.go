// Package report renders pipeline results into per-day markdown files.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/pipeline"
)

var priorityOrder = []string{config.PriorityHigh, config.PriorityMedium, config.PriorityLow}

var priorityLabels = map[string]string{
	config.PriorityHigh:   "HIGH",
	config.PriorityMedium: "MED",
	config.PriorityLow:    "LOW",
}

// Writer materializes a markdown report per calendar day. Re-running on the
// same day appends an update section instead of overwriting earlier output;
// a run with no results writes nothing at all.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Report writes (or appends) the day's report. Implements pipeline.Reporter.
func (w *Writer) Report(results []pipeline.Result, stats pipeline.Stats) error {
	if len(results) == 0 {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating reports directory: %w", err)
	}

	now := w.now()
	path := filepath.Join(w.dir, now.Format("2006-01-02")+".md")
	body := renderBody(results, stats)

	var content string
	if _, err := os.Stat(path); err == nil {
		content = fmt.Sprintf("\n\n---\n\n## Update (%s)\n\n%s", now.Format("15:04:05"), body)
	} else if os.IsNotExist(err) {
		content = renderHeader(stats, now) + body
	} else {
		return fmt.Errorf("checking report file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	slog.Info("report written", "path", path, "results", len(results))
	return nil
}

func renderHeader(stats pipeline.Stats, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# News digest — %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "> %d sources | %d items fetched | %d new | generated %s\n\n",
		stats.SourceCount, stats.TotalFetched, stats.NewCount, now.Format("15:04:05"))
	b.WriteString("---\n\n")
	return b.String()
}

func renderBody(results []pipeline.Result, stats pipeline.Stats) string {
	grouped := make(map[string][]pipeline.Result)
	for _, r := range results {
		grouped[r.Match.Topic.Priority] = append(grouped[r.Match.Topic.Priority], r)
	}

	var b strings.Builder
	for _, priority := range priorityOrder {
		for _, r := range grouped[priority] {
			writeResult(&b, priority, r)
		}
	}
	return b.String()
}

func writeResult(b *strings.Builder, priority string, r pipeline.Result) {
	fmt.Fprintf(b, "## [%s] %s\n\n", priorityLabels[priority], r.Match.Topic.Name)
	fmt.Fprintf(b, "### %s\n\n", r.Analysis.Title)
	fmt.Fprintf(b, "**Source**: %s | **Relevance**: %.2f\n\n", r.Match.Item.SourceName, r.Match.Relevance)

	if r.Analysis.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", r.Analysis.Summary)
	}
	if len(r.Analysis.KeyPoints) > 0 {
		for _, point := range r.Analysis.KeyPoints {
			fmt.Fprintf(b, "- %s\n", point)
		}
		b.WriteString("\n")
	}
	if r.Analysis.Actionable && r.Analysis.Recommendation != "" {
		fmt.Fprintf(b, "> **Recommendation**: %s\n\n", r.Analysis.Recommendation)
	}

	fmt.Fprintf(b, "[Read original](%s)\n\n---\n\n", r.Match.Item.URL)
}

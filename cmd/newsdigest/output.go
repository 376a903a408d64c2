package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/pipeline"
	"github.com/kalambet/newsdigest/internal/report"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Println(colorize(colorGreen, "✓ ")+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ ")+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(colorize(colorYellow, "! ")+fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Println(colorize(colorCyan, "→ ")+fmt.Sprintf(format, args...))
}

func priorityTag(priority string) string {
	switch priority {
	case config.PriorityHigh:
		return colorize(colorRed, "[HIGH]")
	case config.PriorityLow:
		return colorize(colorDim, "[LOW]")
	default:
		return colorize(colorYellow, "[MED]")
	}
}

// printResults renders matched items grouped by topic priority, highest
// first, mirroring the ordering of the markdown report.
func printResults(results []pipeline.Result) {
	if len(results) == 0 {
		fmt.Println(colorize(colorDim, "No items matched your topics this run."))
		return
	}

	order := []string{config.PriorityHigh, config.PriorityMedium, config.PriorityLow}
	for _, priority := range order {
		for _, r := range results {
			p := r.Match.Topic.Priority
			if p == "" {
				p = config.PriorityMedium
			}
			if p != priority {
				continue
			}
			printResult(priority, r)
		}
	}
}

func printResult(priority string, r pipeline.Result) {
	fmt.Printf("%s %s\n", priorityTag(priority), colorize(colorBold, r.Analysis.Title))
	fmt.Printf("  %s | %s | relevance %.2f\n",
		colorize(colorCyan, r.Match.Topic.Name), r.Match.Item.SourceName, r.Match.Relevance)
	if r.Analysis.Summary != "" {
		fmt.Printf("  %s\n", r.Analysis.Summary)
	}
	for _, kp := range r.Analysis.KeyPoints {
		fmt.Printf("  %s %s\n", colorize(colorDim, "•"), kp)
	}
	if r.Analysis.Actionable && r.Analysis.Recommendation != "" {
		fmt.Printf("  %s %s\n", colorize(colorGreen, "⚡"), r.Analysis.Recommendation)
	}
	fmt.Printf("  %s\n\n", colorize(colorDim, r.Match.Item.URL))
}

// runReporter fans one result set out to the terminal and the markdown
// report directory.
type runReporter struct {
	terminal bool
	writer   *report.Writer
}

func (r *runReporter) Report(results []pipeline.Result, stats pipeline.Stats) error {
	if r.terminal {
		printResults(results)
	}
	if r.writer != nil {
		if err := r.writer.Report(results, stats); err != nil {
			return err
		}
	}
	return nil
}

func summaryLine(stats pipeline.Stats) string {
	parts := []string{
		fmt.Sprintf("%d sources", stats.SourceCount),
		fmt.Sprintf("%d fetched", stats.TotalFetched),
		fmt.Sprintf("%d new", stats.NewCount),
		fmt.Sprintf("%d matched", stats.MatchedCount),
	}
	return strings.Join(parts, " | ")
}

// Package pipeline sequences one batch pass: fetch, deduplicate, classify,
// enrich, analyze, persist, report.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/newsdigest/internal/analyze"
	"github.com/kalambet/newsdigest/internal/classify"
	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
	"github.com/kalambet/newsdigest/internal/storage"
)

// extractParallelism bounds concurrent content fetches so a large matched set
// does not open an unbounded number of outbound connections.
const extractParallelism = 4

// ItemFetcher retrieves the merged, capped item list from all sources.
type ItemFetcher interface {
	FetchAll(ctx context.Context, sources []config.Source, maxItems int) []feed.Item
}

// Ledger is the persistent record of processed items and completed runs.
type Ledger interface {
	HasProcessed(url string) (bool, error)
	MarkProcessed(a storage.ProcessedArticle) error
	RecordRun(r storage.Run) error
}

// Matcher is the first classification stage.
type Matcher interface {
	Classify(ctx context.Context, items []feed.Item, topics []config.Topic) []classify.Match
}

// ContentExtractor fetches an item's full text; "" means extraction failed
// and the feed summary is used instead.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) string
}

// ItemAnalyzer is the second classification stage.
type ItemAnalyzer interface {
	Analyze(ctx context.Context, item feed.Item, topic config.Topic, content string) analyze.Analysis
}

// Reporter receives the final ordered result set plus run statistics.
type Reporter interface {
	Report(results []Result, stats Stats) error
}

// Result is one matched item with its analysis, as handed to reporting.
type Result struct {
	Match    classify.Match
	Analysis analyze.Analysis
}

// Stats summarizes a run for reporting and the run-history table.
type Stats struct {
	RunID        string
	StartedAt    time.Time
	SourceCount  int
	TotalFetched int
	NewCount     int
	MatchedCount int
}

// Pipeline wires all stages together. Construct with New; all fields except
// extractor and reporter are required (a nil extractor skips content
// enrichment, a nil reporter skips reporting).
type Pipeline struct {
	cfg       config.Config
	fetcher   ItemFetcher
	ledger    Ledger
	matcher   Matcher
	extractor ContentExtractor
	analyzer  ItemAnalyzer
	reporter  Reporter
}

func New(cfg config.Config, fetcher ItemFetcher, ledger Ledger, matcher Matcher, extractor ContentExtractor, analyzer ItemAnalyzer, reporter Reporter) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		ledger:    ledger,
		matcher:   matcher,
		extractor: extractor,
		analyzer:  analyzer,
		reporter:  reporter,
	}
}

// Run executes one full pass. Zero fetched items or zero unseen items are
// valid terminal outcomes, not errors. By the time Run returns, every unseen
// item has been marked processed exactly once, matched or not.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	stats := Stats{
		RunID:       uuid.New().String(),
		StartedAt:   time.Now().UTC(),
		SourceCount: len(p.cfg.Sources),
	}

	// 1. Fetch all sources concurrently.
	items := p.fetcher.FetchAll(ctx, p.cfg.Sources, p.cfg.Classifier.MaxArticlesPerRun)
	stats.TotalFetched = len(items)
	if len(items) == 0 {
		slog.Info("no items fetched", "sources", stats.SourceCount)
		p.recordRun(stats)
		return stats, nil
	}

	// 2. Deduplicate against the ledger.
	unseen := p.filterUnseen(items)
	stats.NewCount = len(unseen)
	slog.Info("deduplicated batch", "fetched", len(items), "new", len(unseen))
	if len(unseen) == 0 {
		p.recordRun(stats)
		p.report(nil, stats)
		return stats, nil
	}

	// 3. Stage 1: relevance classification.
	matches := dedupeByURL(p.matcher.Classify(ctx, unseen, p.cfg.Topics))
	stats.MatchedCount = len(matches)
	slog.Info("classified batch", "candidates", len(matches))

	// 4. Stage 2: enrich candidates concurrently, then analyze and persist
	// sequentially so writes stay ordered through the single ledger writer.
	contents := p.extractAll(ctx, matches)
	matched := make(map[string]bool, len(matches))
	results := make([]Result, 0, len(matches))
	for i, m := range matches {
		a := p.analyzer.Analyze(ctx, m.Item, m.Topic, contents[i])

		analysisJSON, err := json.Marshal(a)
		if err != nil {
			slog.Error("encoding analysis", "item", m.Item.Title, "error", err)
			analysisJSON = nil
		}

		p.mark(storage.ProcessedArticle{
			URL:          m.Item.URL,
			Title:        m.Item.Title,
			SourceName:   m.Item.SourceName,
			MatchedTopic: m.Topic.Name,
			AnalysisJSON: string(analysisJSON),
		})
		matched[m.Item.URL] = true
		results = append(results, Result{Match: m, Analysis: a})
	}

	// 5. Mark the unmatched remainder (unseen minus matched) with no
	// analysis so the next run never re-offers these items.
	for _, item := range unseen {
		if matched[item.URL] {
			continue
		}
		p.mark(storage.ProcessedArticle{
			URL:        item.URL,
			Title:      item.Title,
			SourceName: item.SourceName,
		})
	}

	// 6. Persist run statistics and hand off to reporting.
	p.recordRun(stats)
	p.report(results, stats)
	return stats, nil
}

// extractAll fetches full text for every candidate with bounded parallelism.
// The result is index-aligned with matches; failed extractions stay "".
func (p *Pipeline) extractAll(ctx context.Context, matches []classify.Match) []string {
	contents := make([]string, len(matches))
	if p.extractor == nil {
		return contents
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractParallelism)
	for i, m := range matches {
		g.Go(func() error {
			contents[i] = p.extractor.Extract(gctx, m.Item.URL)
			return nil
		})
	}
	_ = g.Wait()
	return contents
}

// filterUnseen drops items already present in the ledger, preserving input
// order. A ledger read error is reported and the item treated as unseen;
// marking is idempotent, so over-offering is safe while silent loss is not.
func (p *Pipeline) filterUnseen(items []feed.Item) []feed.Item {
	unseen := make([]feed.Item, 0, len(items))
	for _, item := range items {
		seen, err := p.ledger.HasProcessed(item.URL)
		if err != nil {
			slog.Error("ledger read failed, treating item as unseen", "url", item.URL, "error", err)
		}
		if !seen {
			unseen = append(unseen, item)
		}
	}
	return unseen
}

// dedupeByURL keeps the first match per item URL, preserving order.
func dedupeByURL(matches []classify.Match) []classify.Match {
	seen := make(map[string]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if seen[m.Item.URL] {
			continue
		}
		seen[m.Item.URL] = true
		out = append(out, m)
	}
	return out
}

func (p *Pipeline) mark(a storage.ProcessedArticle) {
	if err := p.ledger.MarkProcessed(a); err != nil {
		slog.Error("marking item processed", "url", a.URL, "error", err)
	}
}

func (p *Pipeline) recordRun(stats Stats) {
	run := storage.Run{
		ID:           stats.RunID,
		StartedAt:    stats.StartedAt,
		FinishedAt:   time.Now().UTC(),
		SourceCount:  stats.SourceCount,
		TotalFetched: stats.TotalFetched,
		NewCount:     stats.NewCount,
		MatchedCount: stats.MatchedCount,
	}
	if err := p.ledger.RecordRun(run); err != nil {
		slog.Warn("recording run statistics", "run_id", run.ID, "error", err)
	}
}

func (p *Pipeline) report(results []Result, stats Stats) {
	if p.reporter == nil {
		return
	}
	if err := p.reporter.Report(results, stats); err != nil {
		slog.Warn("reporting failed", "error", err)
	}
}

package feed

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/newsdigest/internal/config"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "newsdigest/1.0"
)

// Item is one entry retrieved from a source feed. Items are immutable after
// creation; only their processed-marker is ever persisted.
type Item struct {
	Title       string
	URL         string
	Summary     string
	PublishedAt *time.Time
	SourceName  string
}

// Fetcher retrieves items from configured feed sources. Each source is fetched
// independently; one source failing never affects the others.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewFetcher creates a Fetcher with the given per-source timeout.
// A timeout <= 0 defaults to 15s.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	p := gofeed.NewParser()
	p.UserAgent = defaultUserAgent
	return &Fetcher{parser: p, timeout: timeout}
}

// FetchAll fetches every source concurrently, merges the results sorted by
// publication time descending (items without a timestamp sort as oldest), and
// truncates to maxItems. The cap is applied after the merge, not per source.
//
// Source failures (timeout, malformed payload, network error) are logged and
// contribute an empty result; FetchAll itself never fails.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source, maxItems int) []Item {
	perSource := make([][]Item, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			items, err := f.fetchOne(gCtx, src)
			if err != nil {
				slog.Warn("feed fetch failed", "source", src.Name, "error", err)
				return nil
			}
			perSource[i] = items
			return nil
		})
	}
	// Errors are contained per source; Wait only observes ctx cancellation.
	_ = g.Wait()

	var items []Item
	for _, batch := range perSource {
		items = append(items, batch...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return publishedUnix(items[i]) > publishedUnix(items[j])
	})

	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (f *Fetcher) fetchOne(ctx context.Context, src config.Source) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}
		items = append(items, Item{
			Title:       entry.Title,
			URL:         entry.Link,
			Summary:     coalesce(entry.Description, entry.Content),
			PublishedAt: entry.PublishedParsed,
			SourceName:  src.Name,
		})
	}

	slog.Debug("feed fetched", "source", src.Name, "items", len(items))
	return items, nil
}

// publishedUnix maps a missing timestamp below every representable time so
// undated items always sort oldest, even against pre-1970 dates.
func publishedUnix(item Item) int64 {
	if item.PublishedAt == nil {
		return math.MinInt64
	}
	return item.PublishedAt.Unix()
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

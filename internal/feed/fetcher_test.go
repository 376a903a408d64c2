package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/newsdigest/internal/config"
)

func rssFeed(titlePrefix string, n int, start time.Time) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>test</title>`)
	for i := 0; i < n; i++ {
		pub := start.Add(-time.Duration(i) * time.Hour)
		fmt.Fprintf(&b, `<item><title>%s %d</title><link>https://example.com/%s/%d</link>`+
			`<description>summary %d</description><pubDate>%s</pubDate></item>`,
			titlePrefix, i, titlePrefix, i, i, pub.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func serveXML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllMergesAndSorts(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	srvA := serveXML(t, rssFeed("a", 5, now))
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srvB.Close)
	srvC := serveXML(t, rssFeed("c", 3, now.Add(-30*time.Minute)))

	f := NewFetcher(5 * time.Second)
	items := f.FetchAll(context.Background(), []config.Source{
		{Name: "A", URL: srvA.URL},
		{Name: "B", URL: srvB.URL},
		{Name: "C", URL: srvC.URL},
	}, 50)

	if len(items) != 8 {
		t.Fatalf("got %d items, want 8 (failing source contributes nothing)", len(items))
	}

	// Sorted by publication time descending.
	for i := 1; i < len(items); i++ {
		if publishedUnix(items[i-1]) < publishedUnix(items[i]) {
			t.Fatalf("items not sorted descending at index %d", i)
		}
	}

	if items[0].SourceName != "A" {
		t.Errorf("newest item should come from source A, got %q", items[0].SourceName)
	}
}

func TestFetchAllSoftCap(t *testing.T) {
	srv := serveXML(t, rssFeed("x", 10, time.Now()))

	f := NewFetcher(5 * time.Second)
	items := f.FetchAll(context.Background(), []config.Source{{Name: "X", URL: srv.URL}}, 4)

	if len(items) != 4 {
		t.Fatalf("got %d items, want soft cap of 4", len(items))
	}
	// The cap keeps the newest items.
	if items[0].Title != "x 0" {
		t.Errorf("first item = %q, want newest (x 0)", items[0].Title)
	}
}

func TestFetchAllMissingTimestampSortsOldest(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>` +
		`<item><title>dated</title><link>https://example.com/dated</link>` +
		`<pubDate>` + time.Now().Format(time.RFC1123Z) + `</pubDate></item>` +
		`<item><title>undated</title><link>https://example.com/undated</link></item>` +
		`</channel></rss>`
	srv := serveXML(t, body)

	f := NewFetcher(5 * time.Second)
	items := f.FetchAll(context.Background(), []config.Source{{Name: "S", URL: srv.URL}}, 10)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[len(items)-1].Title != "undated" {
		t.Errorf("item without timestamp should sort last, got order %q, %q", items[0].Title, items[1].Title)
	}
}

func TestFetchAllUndatedSortsBelowPre1970(t *testing.T) {
	old := time.Date(1965, time.March, 1, 12, 0, 0, 0, time.UTC)
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>` +
		`<item><title>pre-epoch</title><link>https://example.com/old</link>` +
		`<pubDate>` + old.Format(time.RFC1123Z) + `</pubDate></item>` +
		`<item><title>undated</title><link>https://example.com/undated</link></item>` +
		`</channel></rss>`
	srv := serveXML(t, body)

	f := NewFetcher(5 * time.Second)
	items := f.FetchAll(context.Background(), []config.Source{{Name: "S", URL: srv.URL}}, 10)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "pre-epoch" || items[1].Title != "undated" {
		t.Errorf("undated item should sort below a pre-1970 date, got order %q, %q",
			items[0].Title, items[1].Title)
	}
}

func TestFetchAllMalformedFeedIsolated(t *testing.T) {
	good := serveXML(t, rssFeed("ok", 2, time.Now()))
	bad := serveXML(t, "this is not xml at all")

	f := NewFetcher(5 * time.Second)
	items := f.FetchAll(context.Background(), []config.Source{
		{Name: "good", URL: good.URL},
		{Name: "bad", URL: bad.URL},
	}, 50)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 from the healthy source", len(items))
	}
	for _, item := range items {
		if item.SourceName != "good" {
			t.Errorf("unexpected item from failed source: %+v", item)
		}
	}
}

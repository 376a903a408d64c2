// Package extract fetches article pages and pulls out their readable text for
// the deep-analysis stage.
package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	defaultTimeout = 15 * time.Second
	defaultMaxLen  = 3000
	minContentLen  = 200
	maxBodyBytes   = 2 << 20
	userAgent      = "Mozilla/5.0 (compatible; newsdigest/1.0)"
)

// Extractor retrieves a page and extracts its main text content. Extraction
// is strictly best-effort: every failure degrades to an empty string so the
// caller can fall back to the item's feed summary.
type Extractor struct {
	httpClient *http.Client
	maxLen     int
}

// NewExtractor creates an Extractor with the given fetch timeout.
// A timeout <= 0 defaults to 15s.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		maxLen:     defaultMaxLen,
	}
}

// Extract fetches pageURL and returns its readable text, collapsed to single
// spaces and truncated to 3000 characters. Any failure (timeout, non-success
// status, parse error) returns "".
func (e *Extractor) Extract(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		slog.Debug("content fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("content fetch non-200", "url", pageURL, "status", resp.StatusCode)
		return ""
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ""
	}

	return e.FromHTML(string(html), pageURL)
}

// extractStrategy is one way of locating the main content region. Strategies
// are tried in order until one yields text of at least minContentLen.
type extractStrategy func(html, pageURL string) string

// FromHTML extracts readable text from an already-fetched document. The
// strategies run most-specific first: readability's article detection, then
// the page's main region, then the whole body.
func (e *Extractor) FromHTML(html, pageURL string) string {
	strategies := []extractStrategy{
		readableArticle,
		mainRegion,
		wholeBody,
	}

	for _, strategy := range strategies {
		text := collapseWhitespace(strategy(html, pageURL))
		if utf8.RuneCountInString(text) >= minContentLen {
			return truncate(text, e.maxLen)
		}
	}
	return ""
}

// readableArticle runs go-readability's content detection.
func readableArticle(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return article.TextContent
}

// mainRegion strips non-content markup and returns the text of the page's
// main element.
func mainRegion(html, _ string) string {
	doc := cleanedDocument(html)
	if doc == nil {
		return ""
	}
	return doc.Find("main, [role=main]").First().Text()
}

// wholeBody strips non-content markup and returns the full body text.
func wholeBody(html, _ string) string {
	doc := cleanedDocument(html)
	if doc == nil {
		return ""
	}
	return doc.Find("body").Text()
}

func cleanedDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style, nav, header, footer, aside, iframe").Remove()
	return doc
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most maxLen characters. Lengths count runes, not
// bytes, so multi-byte scripts get the same amount of content as ASCII.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

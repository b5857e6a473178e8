package extract

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"newspulse/internal/models"
)

const maxConcurrentFeeds = 5

var htmlTagPattern = regexp.MustCompile("<[^>]*>")

// RSSConfig configures the RSS article source.
type RSSConfig struct {
	// FeedURLs lists the RSS/Atom feeds to pull from.
	FeedURLs []string

	// Query filters and caps the combined item set the same way the
	// NewsAPI source does: keyword match, lookback window, result cap.
	Query Query

	// ScrapeMissingDescriptions fetches a readable-text snippet for
	// items that carry no description. Costs one HTTP request per bare
	// item, so it is off by default.
	ScrapeMissingDescriptions bool
}

// RSSSource pulls articles from a set of RSS/Atom feeds. It is the fallback
// source for operators without a NewsAPI key.
type RSSSource struct {
	cfg    RSSConfig
	client *http.Client
	now    func() time.Time
}

// NewRSSSource creates an RSSSource with a shared HTTP client configured
// with a 30-second timeout and browser-like headers.
func NewRSSSource(cfg RSSConfig) *RSSSource {
	return &RSSSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &headerTransport{
				base: http.DefaultTransport,
			},
		},
		now: time.Now,
	}
}

// headerTransport wraps an http.RoundTripper to inject browser-like headers
// on every request. Some feed hosts reject requests without them.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newspulse/1.0)")
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
	return t.base.RoundTrip(req)
}

// Fetch pulls all configured feeds concurrently with at most five parallel
// requests, maps matching items to RawArticle, and returns the combined
// batch sorted newest-first and capped at the query's result limit.
// Individual feed failures are logged and skipped; only when every feed
// fails does Fetch return ErrSourceUnavailable.
func (s *RSSSource) Fetch(ctx context.Context) ([]models.RawArticle, error) {
	var (
		articles []models.RawArticle
		failed   int
		mu       sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)

	for _, feedURL := range s.cfg.FeedURLs {
		feedURL := feedURL
		g.Go(func() error {
			items, err := s.fetchFeed(ctx, feedURL)
			if err != nil {
				slog.Warn("failed to fetch feed", "url", feedURL, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil // skip failures, don't fail the batch
			}

			mu.Lock()
			articles = append(articles, items...)
			mu.Unlock()

			slog.Info("fetched feed", "url", feedURL, "items", len(items))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching feeds: %w", err)
	}

	if failed == len(s.cfg.FeedURLs) && failed > 0 {
		return nil, fmt.Errorf("%w: all %d feeds failed", ErrSourceUnavailable, failed)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if s.cfg.Query.MaxResults > 0 && len(articles) > s.cfg.Query.MaxResults {
		articles = articles[:s.cfg.Query.MaxResults]
	}

	return articles, nil
}

// fetchFeed retrieves and parses a single feed, returning the items that
// match the query's keywords and lookback window.
func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string) ([]models.RawArticle, error) {
	fp := gofeed.NewParser()
	fp.Client = s.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", feedURL, err)
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.Query.LookbackDays)

	var articles []models.RawArticle
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}

		art := models.RawArticle{
			Title:          item.Title,
			Description:    stripHTML(item.Description),
			URL:            item.Link,
			SourceName:     feed.Title,
			ContentSnippet: stripHTML(item.Content),
		}
		if item.PublishedParsed != nil {
			art.PublishedAt = item.PublishedParsed.UTC()
		}

		if !matchesKeywords(art, s.cfg.Query.Keywords) {
			continue
		}

		if art.Description == "" && s.cfg.ScrapeMissingDescriptions {
			if snippet, err := readableSnippet(item.Link, httpTimeout); err != nil {
				slog.Warn("snippet extraction failed", "url", item.Link, "error", err)
			} else {
				art.Description = snippet.Excerpt
				if art.ContentSnippet == "" {
					art.ContentSnippet = snippet.Text
				}
			}
		}

		articles = append(articles, art)
	}

	return articles, nil
}

// matchesKeywords reports whether any keyword occurs in the article's title
// or description, case-insensitively. An empty keyword set matches
// everything.
func matchesKeywords(art models.RawArticle, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(art.Title + " " + art.Description)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// stripHTML removes HTML tags from s and unescapes HTML entities.
func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(clean))
}

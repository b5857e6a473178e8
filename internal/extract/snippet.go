package extract

import (
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const snippetMaxWords = 60

// Snippet holds the readable text pulled from an article page.
type Snippet struct {
	Excerpt string
	Text    string
}

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newspulse/1.0)")
}

// readableSnippet fetches the page at the given URL and extracts its main
// readable content using go-readability. The text is truncated to a short
// snippet; this backfills feed items that ship without a description.
func readableSnippet(url string, timeout time.Duration) (*Snippet, error) {
	article, err := fetchArticle(url, timeout, browserHeaders)
	if err != nil {
		return nil, fmt.Errorf("readability extraction: %w", err)
	}

	return &Snippet{
		Excerpt: strings.TrimSpace(article.Excerpt),
		Text:    truncateWords(article.TextContent, snippetMaxWords),
	}, nil
}

// fetchArticle mirrors readability.FromURL but applies request modifiers
// before sending, which the pinned go-readability version does not support
// in FromURL itself.
func fetchArticle(pageURL string, timeout time.Duration, reqModifiers ...func(*http.Request)) (readability.Article, error) {
	parsedURL, err := nurl.ParseRequestURI(pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("failed to parse URL: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return readability.Article{}, fmt.Errorf("failed to build request: %v", err)
	}
	for _, modify := range reqModifiers {
		modify(req)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return readability.Article{}, fmt.Errorf("failed to fetch the page: %v", err)
	}
	defer resp.Body.Close()

	cp := resp.Header.Get("Content-Type")
	if !strings.Contains(cp, "text/html") {
		return readability.Article{}, fmt.Errorf("URL is not a HTML document")
	}

	return readability.FromReader(resp.Body, parsedURL)
}

// truncateWords returns the first maxWords whitespace-delimited words from
// s. If s contains fewer than maxWords words, it is returned unchanged.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}

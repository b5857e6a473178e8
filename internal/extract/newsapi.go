// Package extract pulls raw article batches from remote news sources.
//
// Two sources are provided: a NewsAPI search client and an RSS feed source.
// Both return untrusted RawArticle records; no per-article validation
// happens here. Deciding what is usable is the validator's job.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newspulse/internal/models"
)

// ErrSourceUnavailable is returned when the remote source cannot deliver any
// results after the client's retry budget is exhausted.
var ErrSourceUnavailable = errors.New("news source unavailable")

const (
	httpTimeout  = 30 * time.Second
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Query specifies what to search for.
type Query struct {
	// Keywords are OR-ed together into the search expression.
	Keywords []string

	// LookbackDays sets the lower bound of the date range.
	LookbackDays int

	// MaxResults caps the number of returned articles.
	MaxResults int
}

// NewsAPIClient fetches articles from the NewsAPI "everything" endpoint.
type NewsAPIClient struct {
	endpoint string
	apiKey   string
	query    Query
	client   *http.Client
	now      func() time.Time
}

// NewNewsAPIClient creates a client bound to the given endpoint, API key,
// and query specification.
func NewNewsAPIClient(endpoint, apiKey string, query Query) *NewsAPIClient {
	return &NewsAPIClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		query:    query,
		client:   &http.Client{Timeout: httpTimeout},
		now:      time.Now,
	}
}

// apiArticle mirrors the JSON shape NewsAPI returns per article. Optional
// fields decode to empty values rather than failing the batch.
type apiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Fetch runs the search query and returns the raw articles from the first
// result page. Transport errors, 5xx responses, and 429 rate limits are
// retried with backoff; after the retry budget is exhausted the error wraps
// ErrSourceUnavailable. A response that fails mid-body still yields the
// successfully decoded prefix rather than discarding it.
func (c *NewsAPIClient) Fetch(ctx context.Context) ([]models.RawArticle, error) {
	reqURL := c.buildURL()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := retryBackoff << (attempt - 2)
			slog.Warn("retrying news fetch", "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, ctx.Err())
			}
		}

		articles, retryable, err := c.fetchOnce(ctx, reqURL)
		if err == nil {
			return articles, nil
		}
		if !retryable {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrSourceUnavailable, maxAttempts, lastErr)
}

// fetchOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (c *NewsAPIClient) fetchOnce(ctx context.Context, reqURL string) ([]models.RawArticle, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("requesting %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, true, fmt.Errorf("server returned %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return c.decodeResponse(resp.Body)
}

// decodeResponse streams the response object token by token so that a body
// that breaks partway through the articles array still yields the decoded
// prefix. The top-level keys can arrive in any order; status is checked if
// it precedes the articles array (the documented layout).
func (c *NewsAPIClient) decodeResponse(body io.Reader) ([]models.RawArticle, bool, error) {
	dec := json.NewDecoder(body)

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, true, fmt.Errorf("decoding response: %w", err)
	}

	var articles []models.RawArticle
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, true, fmt.Errorf("decoding response: %w", err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "status":
			var status string
			if err := dec.Decode(&status); err != nil {
				return nil, true, fmt.Errorf("decoding status: %w", err)
			}
			if status == "error" {
				// Keep reading to surface the API's message.
				code, msg := drainAPIError(dec)
				if code == "rateLimited" {
					return nil, true, fmt.Errorf("api rate limited: %s", msg)
				}
				return nil, false, fmt.Errorf("api error %s: %s", code, msg)
			}
		case "articles":
			arrTok, err := dec.Token()
			if err != nil {
				return nil, true, fmt.Errorf("decoding articles array: %w", err)
			}
			if delim, ok := arrTok.(json.Delim); !ok || delim != '[' {
				return articles, false, nil // null or absent array: empty batch
			}
			for dec.More() {
				var a apiArticle
				if err := dec.Decode(&a); err != nil {
					// Partial page: keep what we have.
					slog.Warn("articles array truncated, keeping prefix",
						"decoded", len(articles), "error", err)
					return articles, false, nil
				}
				articles = append(articles, toRawArticle(a))
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				slog.Warn("articles array truncated, keeping prefix",
					"decoded", len(articles), "error", err)
				return articles, false, nil
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, true, fmt.Errorf("decoding %q: %w", key, err)
			}
		}
	}

	return articles, false, nil
}

// drainAPIError reads the remaining code/message fields of an error
// response. Decode failures here just truncate the diagnostics.
func drainAPIError(dec *json.Decoder) (code, message string) {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return code, message
		}
		key, _ := keyTok.(string)

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return code, message
		}
		switch key {
		case "code":
			json.Unmarshal(val, &code) //nolint:errcheck
		case "message":
			json.Unmarshal(val, &message) //nolint:errcheck
		}
	}
	return code, message
}

// toRawArticle maps an API record to the pipeline's raw schema. Timestamps
// that fail to parse map to the zero time; the stale gate rejects them
// downstream instead of failing the batch here.
func toRawArticle(a apiArticle) models.RawArticle {
	var publishedAt time.Time
	if a.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			publishedAt = t.UTC()
		}
	}

	return models.RawArticle{
		Title:          a.Title,
		Description:    a.Description,
		URL:            a.URL,
		SourceName:     a.Source.Name,
		PublishedAt:    publishedAt,
		ContentSnippet: a.Content,
	}
}

// buildURL assembles the NewsAPI everything query: keywords OR-ed together,
// a from/to date range covering the lookback window, English only, sorted
// by publication time.
func (c *NewsAPIClient) buildURL() string {
	to := c.now()
	from := to.AddDate(0, 0, -c.query.LookbackDays)

	params := url.Values{}
	params.Set("q", strings.Join(c.query.Keywords, " OR "))
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(c.query.MaxResults))
	params.Set("apiKey", c.apiKey)

	return c.endpoint + "?" + params.Encode()
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newspulse/internal/models"
	"newspulse/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

func seedArticles(t *testing.T, store *storage.Store) {
	t.Helper()
	ctx := context.Background()

	runID, err := store.CreateRun(ctx, time.Now())
	if err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}

	published := time.Date(2026, 8, 19, 9, 30, 0, 0, time.UTC)
	batch := []models.EnrichedArticle{
		{
			CleanArticle: models.CleanArticle{RawArticle: models.RawArticle{
				Title:       "Markets rally on upbeat earnings",
				Description: "Stocks climbed across the board.",
				URL:         "https://example.com/rally",
				SourceName:  "Test Wire",
				PublishedAt: published,
			}},
			SentimentCompound: 0.6,
			SentimentPositive: 0.5,
			SentimentNeutral:  0.5,
			SentimentLabel:    models.LabelPositive,
			PublishedDate:     "2026-08-19",
			PublishedHour:     9,
			PublishedWeekday:  "Wednesday",
		},
		{
			CleanArticle: models.CleanArticle{RawArticle: models.RawArticle{
				Title:       "Selloff deepens into the close",
				Description: "Losses mounted through the afternoon.",
				URL:         "https://example.com/selloff",
				SourceName:  "Test Wire",
				PublishedAt: published.Add(time.Hour),
			}},
			SentimentCompound: -0.6,
			SentimentNegative: 0.5,
			SentimentNeutral:  0.5,
			SentimentLabel:    models.LabelNegative,
			PublishedDate:     "2026-08-19",
			PublishedHour:     10,
			PublishedWeekday:  "Wednesday",
		},
	}
	if _, err := store.LoadBatch(ctx, runID, batch); err != nil {
		t.Fatalf("LoadBatch() error: %v", err)
	}

	finished := time.Now()
	if err := store.FinishRun(ctx, models.RunRecord{
		ID:          runID,
		StartedAt:   finished.Add(-2 * time.Second),
		FinishedAt:  &finished,
		State:       "done",
		InputCount:  2,
		CleanCount:  2,
		LoadedCount: 2,
	}); err != nil {
		t.Fatalf("FinishRun() error: %v", err)
	}
}

func doRequest(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetArticles(t *testing.T) {
	store := newTestStore(t)
	seedArticles(t, store)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/articles")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var articles []storage.StoredArticle
	if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("article count = %d, want 2", len(articles))
	}
	// Most recently published first.
	if articles[0].URL != "https://example.com/selloff" {
		t.Errorf("first article = %q, want the newest", articles[0].URL)
	}
}

func TestGetArticles_LabelFilter(t *testing.T) {
	store := newTestStore(t)
	seedArticles(t, store)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/articles?label=positive")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var articles []storage.StoredArticle
	if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("article count = %d, want 1", len(articles))
	}
	if articles[0].SentimentLabel != models.LabelPositive {
		t.Errorf("label = %q, want positive", articles[0].SentimentLabel)
	}
}

func TestGetArticles_InvalidLabel(t *testing.T) {
	store := newTestStore(t)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/articles?label=ecstatic")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] == "" {
		t.Error("error message missing from response body")
	}
}

func TestGetArticles_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/articles")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// An empty store serves [], not null.
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)
	seedArticles(t, store)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Store struct {
			TotalArticles int `json:"total_articles"`
		} `json:"store"`
		Sentiment []storage.LabelStat `json:"sentiment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Store.TotalArticles != 2 {
		t.Errorf("total_articles = %d, want 2", body.Store.TotalArticles)
	}
	if len(body.Sentiment) != 2 {
		t.Errorf("sentiment buckets = %d, want 2", len(body.Sentiment))
	}
}

func TestGetRuns(t *testing.T) {
	store := newTestStore(t)
	seedArticles(t, store)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var runs []models.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("run count = %d, want 1", len(runs))
	}
	if runs[0].State != "done" || runs[0].LoadedCount != 2 {
		t.Errorf("run = %+v, want done with 2 loaded", runs[0])
	}
}

func TestGetRunByID(t *testing.T) {
	store := newTestStore(t)
	seedArticles(t, store)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/runs/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var run models.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if run.ID != 1 || run.State != "done" {
		t.Errorf("run = %+v, want id 1 state done", run)
	}

	if rec := doRequest(t, router, "/api/runs/999"); rec.Code != http.StatusNotFound {
		t.Errorf("status for missing run = %d, want 404", rec.Code)
	}
	if rec := doRequest(t, router, "/api/runs/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("status for non-numeric id = %d, want 400", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	store := newTestStore(t)
	router := NewRouter(store)

	rec := doRequest(t, router, "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

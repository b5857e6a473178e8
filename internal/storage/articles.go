package storage

import (
	"context"
	"database/sql"
	"fmt"

	"newspulse/internal/models"
)

// expectedColumns is the column set of news_sentiment that the loader
// writes. VerifySchema compares the live table against this list.
var expectedColumns = []string{
	"id", "run_id", "title", "description", "url", "source_name",
	"content_snippet", "published_at", "published_date", "published_hour",
	"published_weekday", "sentiment_compound", "sentiment_positive",
	"sentiment_neutral", "sentiment_negative", "sentiment_label", "loaded_at",
}

const timeLayout = "2006-01-02 15:04:05"

// VerifySchema checks that the news_sentiment table exists and carries
// exactly the columns the loader expects. A database whose schema was
// created or altered outside the migration path fails with
// ErrSchemaConflict before any row is written.
func (s *Store) VerifySchema(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(news_sentiment)`)
	if err != nil {
		return fmt.Errorf("reading news_sentiment table info: %w", err)
	}
	defer rows.Close()

	live := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &primaryKey); err != nil {
			return fmt.Errorf("scanning table info: %w", err)
		}
		live[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating table info: %w", err)
	}

	if len(live) == 0 {
		return fmt.Errorf("%w: table news_sentiment does not exist", ErrSchemaConflict)
	}

	for _, col := range expectedColumns {
		if !live[col] {
			return fmt.Errorf("%w: missing column %q", ErrSchemaConflict, col)
		}
	}
	if len(live) != len(expectedColumns) {
		for name := range live {
			found := false
			for _, col := range expectedColumns {
				if col == name {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: unexpected column %q", ErrSchemaConflict, name)
			}
		}
	}

	return nil
}

// LoadBatch appends the enriched batch to news_sentiment in input order,
// inside a single transaction: the whole batch commits or none of it does.
// Rows whose URL was already persisted by an earlier run are skipped (the
// table is append-only with a unique URL guarantee); in-run duplicates
// never reach the loader, so a skip always means cross-run overlap.
//
// The returned LoadResult carries the counts and per-label distribution of
// the rows actually inserted, which VerifyBatch later recomputes from the
// store.
func (s *Store) LoadBatch(ctx context.Context, runID int64, articles []models.EnrichedArticle) (*models.LoadResult, error) {
	result := &models.LoadResult{Labels: make(map[models.SentimentLabel]int)}
	if len(articles) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", ErrWriteFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO news_sentiment (
			run_id, title, description, url, source_name, content_snippet,
			published_at, published_date, published_hour, published_weekday,
			sentiment_compound, sentiment_positive, sentiment_neutral,
			sentiment_negative, sentiment_label
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing insert: %w", ErrWriteFailure, err)
	}
	defer stmt.Close()

	for i := range articles {
		a := &articles[i]

		res, err := stmt.ExecContext(ctx,
			runID, a.Title, a.Description, a.URL,
			nullableString(a.SourceName), nullableString(a.ContentSnippet),
			a.PublishedAt.UTC().Format(timeLayout),
			a.PublishedDate, a.PublishedHour, a.PublishedWeekday,
			a.SentimentCompound, a.SentimentPositive, a.SentimentNeutral,
			a.SentimentNegative, string(a.SentimentLabel),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: inserting %q: %w", ErrWriteFailure, a.URL, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: reading rows affected: %w", ErrWriteFailure, err)
		}
		if affected == 0 {
			result.Skipped++
			continue
		}
		result.Inserted++
		result.Labels[a.SentimentLabel]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing batch: %w", ErrWriteFailure, err)
	}

	return result, nil
}

// VerifyBatch recomputes the run's row count and sentiment-label
// distribution from the store and compares them against the figures the
// load reported. Any mismatch is an ErrIntegrity: the run's data cannot be
// trusted and the run must fail.
func (s *Store) VerifyBatch(ctx context.Context, runID int64, want *models.LoadResult) error {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news_sentiment WHERE run_id = ?`, runID,
	).Scan(&count); err != nil {
		return fmt.Errorf("recounting run rows: %w", err)
	}

	if count != want.Inserted {
		return fmt.Errorf("%w: store has %d rows for run %d, batch loaded %d",
			ErrIntegrity, count, runID, want.Inserted)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment_label, COUNT(*)
		 FROM news_sentiment
		 WHERE run_id = ?
		 GROUP BY sentiment_label`, runID)
	if err != nil {
		return fmt.Errorf("recomputing label distribution: %w", err)
	}
	defer rows.Close()

	stored := make(map[models.SentimentLabel]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return fmt.Errorf("scanning label count: %w", err)
		}
		stored[models.SentimentLabel(label)] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating label counts: %w", err)
	}

	for label, n := range want.Labels {
		if stored[label] != n {
			return fmt.Errorf("%w: label %q has %d stored rows, batch loaded %d",
				ErrIntegrity, label, stored[label], n)
		}
	}
	for label, n := range stored {
		if want.Labels[label] != n {
			return fmt.Errorf("%w: label %q has %d stored rows, batch loaded %d",
				ErrIntegrity, label, n, want.Labels[label])
		}
	}

	return nil
}

// StoredArticle is an enriched article as read back from the store.
type StoredArticle struct {
	ID       int64  `json:"id"`
	RunID    int64  `json:"run_id"`
	LoadedAt string `json:"loaded_at"`
	models.EnrichedArticle
}

// RecentArticles returns up to limit articles ordered by publication time,
// newest first. A non-empty label restricts the result to one sentiment
// bucket.
func (s *Store) RecentArticles(ctx context.Context, limit int, label models.SentimentLabel) ([]StoredArticle, error) {
	query := `
		SELECT id, run_id, title, description, url,
		       COALESCE(source_name, ''), COALESCE(content_snippet, ''),
		       published_at, published_date, published_hour, published_weekday,
		       sentiment_compound, sentiment_positive, sentiment_neutral,
		       sentiment_negative, sentiment_label, loaded_at
		FROM news_sentiment`
	args := []any{}
	if label != "" {
		query += ` WHERE sentiment_label = ?`
		args = append(args, string(label))
	}
	query += ` ORDER BY published_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent articles: %w", err)
	}
	defer rows.Close()

	var articles []StoredArticle
	for rows.Next() {
		var (
			a           StoredArticle
			publishedAt string
			labelStr    string
		)
		if err := rows.Scan(
			&a.ID, &a.RunID, &a.Title, &a.Description, &a.URL,
			&a.SourceName, &a.ContentSnippet,
			&publishedAt, &a.PublishedDate, &a.PublishedHour, &a.PublishedWeekday,
			&a.SentimentCompound, &a.SentimentPositive, &a.SentimentNeutral,
			&a.SentimentNegative, &labelStr, &a.LoadedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning article row: %w", err)
		}
		a.PublishedAt = parseTime(publishedAt)
		a.SentimentLabel = models.SentimentLabel(labelStr)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating article rows: %w", err)
	}

	return articles, nil
}

// LabelStat is one sentiment bucket's share of the stored articles.
type LabelStat struct {
	Label       models.SentimentLabel `json:"label"`
	Count       int                   `json:"count"`
	AvgCompound float64               `json:"avg_compound"`
}

// SentimentSummary returns the per-label article counts and average
// compound score over the whole store, largest bucket first.
func (s *Store) SentimentSummary(ctx context.Context) ([]LabelStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment_label, COUNT(*), ROUND(AVG(sentiment_compound), 3)
		 FROM news_sentiment
		 GROUP BY sentiment_label
		 ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sentiment summary: %w", err)
	}
	defer rows.Close()

	var stats []LabelStat
	for rows.Next() {
		var (
			label string
			stat  LabelStat
		)
		if err := rows.Scan(&label, &stat.Count, &stat.AvgCompound); err != nil {
			return nil, fmt.Errorf("scanning sentiment summary: %w", err)
		}
		stat.Label = models.SentimentLabel(label)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sentiment summary: %w", err)
	}

	return stats, nil
}

// StoreStats summarizes the whole store for the query API.
type StoreStats struct {
	TotalArticles int     `json:"total_articles"`
	DaysCovered   int     `json:"days_covered"`
	OldestArticle *string `json:"oldest_article,omitempty"`
	NewestArticle *string `json:"newest_article,omitempty"`
}

// Stats returns total article count, distinct days covered, and the oldest
// and newest publication timestamps in the store.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	var (
		stats  StoreStats
		oldest sql.NullString
		newest sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT published_date),
		        MIN(published_at), MAX(published_at)
		 FROM news_sentiment`,
	).Scan(&stats.TotalArticles, &stats.DaysCovered, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("querying store stats: %w", err)
	}

	if oldest.Valid {
		stats.OldestArticle = &oldest.String
	}
	if newest.Valid {
		stats.NewestArticle = &newest.String
	}

	return &stats, nil
}

// nullableString converts an empty string to a NULL-able value so optional
// columns store NULL instead of "".
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

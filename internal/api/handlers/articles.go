package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"newspulse/internal/models"
	"newspulse/internal/storage"
)

const defaultArticleLimit = 20

// GetArticles handles GET /api/articles?limit={n}&label={label}. It returns
// the most recently published articles, optionally filtered to one
// sentiment bucket.
func GetArticles(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit := defaultArticleLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		label := models.SentimentLabel(r.URL.Query().Get("label"))
		switch label {
		case "", models.LabelPositive, models.LabelNeutral, models.LabelNegative:
			// valid
		default:
			writeError(w, http.StatusBadRequest, "label must be positive, neutral, or negative")
			return
		}

		articles, err := store.RecentArticles(ctx, limit, label)
		if err != nil {
			slog.Error("failed to query articles", "error", err)
			writeError(w, http.StatusInternalServerError, "Query failed")
			return
		}
		if articles == nil {
			articles = []storage.StoredArticle{}
		}

		writeJSON(w, http.StatusOK, articles)
	}
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"newspulse/internal/models"
	"newspulse/internal/storage"
)

const defaultRunLimit = 20

// statsResponse bundles whole-store totals with the per-label sentiment
// breakdown.
type statsResponse struct {
	Store     *storage.StoreStats `json:"store"`
	Sentiment []storage.LabelStat `json:"sentiment"`
}

// GetStats handles GET /api/stats. It returns total article counts, the
// covered date range, and the sentiment-label distribution.
func GetStats(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stats, err := store.Stats(ctx)
		if err != nil {
			slog.Error("failed to query store stats", "error", err)
			writeError(w, http.StatusInternalServerError, "Query failed")
			return
		}

		sentiment, err := store.SentimentSummary(ctx)
		if err != nil {
			slog.Error("failed to query sentiment summary", "error", err)
			writeError(w, http.StatusInternalServerError, "Query failed")
			return
		}
		if sentiment == nil {
			sentiment = []storage.LabelStat{}
		}

		writeJSON(w, http.StatusOK, statsResponse{Store: stats, Sentiment: sentiment})
	}
}

// GetRuns handles GET /api/runs?limit={n}. It returns the run history,
// most recent first.
func GetRuns(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit := defaultRunLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		runs, err := store.ListRuns(ctx, limit)
		if err != nil {
			slog.Error("failed to query runs", "error", err)
			writeError(w, http.StatusInternalServerError, "Query failed")
			return
		}
		if runs == nil {
			runs = []models.RunRecord{}
		}

		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun handles GET /api/runs/{id}. It returns one run record or 404.
func GetRun(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "run id must be an integer")
			return
		}

		run, err := store.Run(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			slog.Error("failed to query run", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Query failed")
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

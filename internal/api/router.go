// Package api exposes a read-only query surface over the analytical store.
// The pipeline's loader remains the sole writer; serve mode never mutates
// article data.
package api

import (
	"github.com/go-chi/chi/v5"

	"newspulse/internal/api/handlers"
	"newspulse/internal/storage"
)

// NewRouter creates and configures the HTTP router with all query routes.
func NewRouter(store *storage.Store) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Route("/api", func(api chi.Router) {
		api.Get("/articles", handlers.GetArticles(store))
		api.Get("/stats", handlers.GetStats(store))
		api.Get("/runs", handlers.GetRuns(store))
		api.Get("/runs/{id}", handlers.GetRun(store))
	})

	return r
}

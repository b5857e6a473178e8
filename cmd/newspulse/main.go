package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"newspulse/internal/api"
	"newspulse/internal/config"
	"newspulse/internal/extract"
	"newspulse/internal/models"
	"newspulse/internal/pipeline"
	"newspulse/internal/storage"
	"newspulse/internal/validate"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	serve := flag.Bool("serve", false, "serve the query API instead of running the pipeline")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = filepath.Join(*dataDir, "newspulse.db")
	}

	// Open database with WAL mode and pragmas, then migrate.
	db, err := storage.OpenDatabase(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	// Refuse to touch a database whose schema drifted from the loader's
	// expectations.
	if err := store.VerifySchema(context.Background()); err != nil {
		slog.Error("schema verification failed", "error", err)
		os.Exit(1)
	}

	if *serve {
		runServer(store, cfg)
		return
	}

	if err := runPipeline(store, cfg); err != nil {
		os.Exit(1)
	}
}

// runPipeline executes one ETL pass and logs the run summary.
func runPipeline(store *storage.Store, cfg *config.Config) error {
	query := extract.Query{
		Keywords:     cfg.Source.Keywords,
		LookbackDays: cfg.Source.LookbackDays,
		MaxResults:   cfg.Source.MaxResults,
	}

	var source pipeline.Source
	switch cfg.Source.Provider {
	case "rss":
		source = extract.NewRSSSource(extract.RSSConfig{
			FeedURLs:                  cfg.Source.Feeds,
			Query:                     query,
			ScrapeMissingDescriptions: cfg.Source.ScrapeMissingDescriptions,
		})
	default:
		source = extract.NewNewsAPIClient(cfg.Source.Endpoint, cfg.Source.APIKey, query)
	}

	rules := validate.Config{
		MaxAgeDays:       cfg.Validation.MaxAgeDays,
		MinContentLength: cfg.Validation.MinContentLength,
	}

	controller := pipeline.New(source, store, rules)

	summary, err := controller.Run(context.Background())
	if err != nil {
		slog.Error("pipeline failed",
			"run_id", summary.RunID,
			"state", summary.State,
			"elapsed", summary.Elapsed.String(),
			"error", err,
		)
		return err
	}

	slog.Info("pipeline completed",
		"run_id", summary.RunID,
		"state", summary.State,
		"elapsed", summary.Elapsed.String(),
		"input", summary.Quality.InputCount,
		"clean", summary.Quality.OutputCount,
		"removal_rate", fmt.Sprintf("%.1f%%", summary.Quality.RemovalRate*100),
		"loaded", summary.Loaded,
		"skipped", summary.Skipped,
		"avg_compound", fmt.Sprintf("%.3f", summary.Sentiment.AvgCompound),
		"positive", summary.Sentiment.Labels[models.LabelPositive],
		"neutral", summary.Sentiment.Labels[models.LabelNeutral],
		"negative", summary.Sentiment.Labels[models.LabelNegative],
	)
	return nil
}

// runServer starts the read-only query API (localhost only).
func runServer(store *storage.Store, cfg *config.Config) {
	router := api.NewRouter(store)
	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)

	slog.Info("starting query API", "addr", "http://"+addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

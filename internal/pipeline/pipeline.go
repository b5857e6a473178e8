// Package pipeline sequences the four ETL stages: extract, validate,
// transform, load.
//
// Each stage consumes only the previous stage's output, passed by value;
// there is no shared mutable batch state. An empty intermediate result is
// not an error: the controller carries it through to a zero-row load and a
// normal Done state. Only the fatal conditions a stage signals (source
// unavailable, schema conflict, write failure, integrity mismatch) abort
// the run, with the failing stage attributed on the error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspulse/internal/enrich"
	"newspulse/internal/models"
	"newspulse/internal/validate"
)

// State is a pipeline controller state.
type State string

const (
	StateExtracting   State = "extracting"
	StateValidating   State = "validating"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// StageError attributes a fatal condition to the stage that raised it, so
// operators can tell "no articles found" apart from "store unavailable".
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Source pulls a raw article batch from a remote news source.
type Source interface {
	Fetch(ctx context.Context) ([]models.RawArticle, error)
}

// Store is the analytical store the load stage writes to.
type Store interface {
	CreateRun(ctx context.Context, startedAt time.Time) (int64, error)
	LoadBatch(ctx context.Context, runID int64, articles []models.EnrichedArticle) (*models.LoadResult, error)
	VerifyBatch(ctx context.Context, runID int64, want *models.LoadResult) error
	FinishRun(ctx context.Context, rec models.RunRecord) error
}

// RunSummary is the operator-facing outcome of one pipeline run.
type RunSummary struct {
	RunID     int64                 `json:"run_id"`
	State     State                 `json:"state"`
	StartedAt time.Time             `json:"started_at"`
	Elapsed   time.Duration         `json:"elapsed"`
	Quality   *models.QualityReport `json:"quality,omitempty"`
	Sentiment enrich.BatchStats     `json:"sentiment"`
	Loaded    int                   `json:"loaded"`
	Skipped   int                   `json:"skipped"`
}

// Controller runs the staged pipeline once per invocation.
type Controller struct {
	source   Source
	store    Store
	enricher *enrich.Enricher
	rules    validate.Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Controller over the given source, store, and validation
// thresholds.
func New(source Source, store Store, rules validate.Config) *Controller {
	return &Controller{
		source:   source,
		store:    store,
		enricher: enrich.New(),
		rules:    rules,
		now:      time.Now,
	}
}

// Run executes one full pipeline pass. The returned summary is always
// non-nil; on failure its State is StateFailed and the error is a
// *StageError naming the stage that aborted the run.
func (c *Controller) Run(ctx context.Context) (*RunSummary, error) {
	start := c.now()
	summary := &RunSummary{StartedAt: start}

	runID, err := c.store.CreateRun(ctx, start)
	if err != nil {
		return c.fail(ctx, summary, StateLoading, fmt.Errorf("creating run record: %w", err))
	}
	summary.RunID = runID

	// Extract.
	summary.State = StateExtracting
	raw, err := c.source.Fetch(ctx)
	if err != nil {
		return c.fail(ctx, summary, StateExtracting, err)
	}
	slog.Info("extracted articles", "count", len(raw))

	// Validate. The run start time anchors the freshness window so a
	// slow run cannot reclassify rows mid-batch.
	summary.State = StateValidating
	clean, report := validate.Partition(raw, c.rules, start)
	summary.Quality = report
	slog.Info("validated articles",
		"input", report.InputCount,
		"clean", report.OutputCount,
		"removal_rate", fmt.Sprintf("%.1f%%", report.RemovalRate*100),
		"missing_field", report.Rejected[models.ReasonMissingField],
		"duplicate", report.Rejected[models.ReasonDuplicate],
		"stale", report.Rejected[models.ReasonStale],
		"too_short", report.Rejected[models.ReasonTooShort],
	)

	// Transform. Enrichment is total: it cannot fail for rows the
	// validator let through, and an empty clean set just flows on.
	summary.State = StateTransforming
	enriched, stats := c.enricher.Batch(clean)
	summary.Sentiment = stats
	slog.Info("enriched articles",
		"count", len(enriched),
		"avg_compound", fmt.Sprintf("%.3f", stats.AvgCompound),
		"positive", stats.Labels[models.LabelPositive],
		"neutral", stats.Labels[models.LabelNeutral],
		"negative", stats.Labels[models.LabelNegative],
	)

	// Load, then verify what landed.
	summary.State = StateLoading
	result, err := c.store.LoadBatch(ctx, runID, enriched)
	if err != nil {
		return c.fail(ctx, summary, StateLoading, err)
	}
	if err := c.store.VerifyBatch(ctx, runID, result); err != nil {
		return c.fail(ctx, summary, StateLoading, err)
	}
	summary.Loaded = result.Inserted
	summary.Skipped = result.Skipped
	slog.Info("loaded articles", "inserted", result.Inserted, "skipped", result.Skipped)

	summary.State = StateDone
	summary.Elapsed = c.now().Sub(start)

	if err := c.store.FinishRun(ctx, c.runRecord(summary, "")); err != nil {
		slog.Warn("failed to record run outcome", "run_id", runID, "error", err)
	}

	return summary, nil
}

// fail marks the summary failed, best-effort records the outcome, and wraps
// the stage error. Remaining stages are never invoked.
func (c *Controller) fail(ctx context.Context, summary *RunSummary, stage State, err error) (*RunSummary, error) {
	summary.State = StateFailed
	summary.Elapsed = c.now().Sub(summary.StartedAt)

	stageErr := &StageError{Stage: stage, Err: err}
	slog.Error("pipeline run failed", "stage", stage, "error", err)

	if summary.RunID != 0 {
		if ferr := c.store.FinishRun(ctx, c.runRecord(summary, stageErr.Error())); ferr != nil {
			slog.Warn("failed to record run outcome", "run_id", summary.RunID, "error", ferr)
		}
	}

	return summary, stageErr
}

// runRecord flattens a summary into the persisted run row.
func (c *Controller) runRecord(summary *RunSummary, errMsg string) models.RunRecord {
	finished := summary.StartedAt.Add(summary.Elapsed)

	rec := models.RunRecord{
		ID:           summary.RunID,
		StartedAt:    summary.StartedAt,
		FinishedAt:   &finished,
		State:        string(summary.State),
		LoadedCount:  summary.Loaded,
		SkippedCount: summary.Skipped,
		AvgCompound:  summary.Sentiment.AvgCompound,
		Error:        errMsg,
	}
	if summary.Quality != nil {
		rec.InputCount = summary.Quality.InputCount
		rec.CleanCount = summary.Quality.OutputCount
		rec.RemovalRate = summary.Quality.RemovalRate
	}
	return rec
}

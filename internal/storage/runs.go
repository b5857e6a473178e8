package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newspulse/internal/models"
)

// CreateRun inserts a new pipeline_runs row in the "running" state and
// returns its ID. Article rows loaded later reference this ID, which is
// what scopes post-load verification to a single run.
func (s *Store) CreateRun(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (started_at, state) VALUES (?, 'running')`,
		startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("creating run record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting run id: %w", err)
	}
	return id, nil
}

// FinishRun records a run's final state and summary counters.
func (s *Store) FinishRun(ctx context.Context, rec models.RunRecord) error {
	finishedAt := time.Now().UTC()
	if rec.FinishedAt != nil {
		finishedAt = rec.FinishedAt.UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET finished_at = ?, state = ?, input_count = ?, clean_count = ?,
		     loaded_count = ?, skipped_count = ?, removal_rate = ?,
		     avg_compound = ?, error = ?
		 WHERE id = ?`,
		finishedAt.Format(timeLayout), rec.State, rec.InputCount, rec.CleanCount,
		rec.LoadedCount, rec.SkippedCount, rec.RemovalRate,
		rec.AvgCompound, nullableString(rec.Error), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", rec.ID, err)
	}
	return nil
}

// Run returns a single run record by ID, or ErrNotFound.
func (s *Store) Run(ctx context.Context, id int64) (*models.RunRecord, error) {
	var (
		rec        models.RunRecord
		startedAt  string
		finishedAt *string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, state, input_count, clean_count,
		        loaded_count, skipped_count, removal_rate, avg_compound,
		        COALESCE(error, '')
		 FROM pipeline_runs
		 WHERE id = ?`, id,
	).Scan(
		&rec.ID, &startedAt, &finishedAt, &rec.State,
		&rec.InputCount, &rec.CleanCount, &rec.LoadedCount,
		&rec.SkippedCount, &rec.RemovalRate, &rec.AvgCompound, &rec.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", id, err)
	}

	rec.StartedAt = parseTime(startedAt)
	rec.FinishedAt = parseTimePtr(finishedAt)
	return &rec, nil
}

// ListRuns returns up to limit run records, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, state, input_count, clean_count,
		        loaded_count, skipped_count, removal_rate, avg_compound,
		        COALESCE(error, '')
		 FROM pipeline_runs
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var (
			rec        models.RunRecord
			startedAt  string
			finishedAt *string
		)
		if err := rows.Scan(
			&rec.ID, &startedAt, &finishedAt, &rec.State,
			&rec.InputCount, &rec.CleanCount, &rec.LoadedCount,
			&rec.SkippedCount, &rec.RemovalRate, &rec.AvgCompound, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		rec.StartedAt = parseTime(startedAt)
		rec.FinishedAt = parseTimePtr(finishedAt)
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}

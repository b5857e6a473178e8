package models

import "time"

// RejectReason identifies the single quality gate a rejected article failed.
// Gates run in a fixed order, so each rejected row is attributed to exactly
// one reason: the first gate it did not pass.
type RejectReason string

const (
	ReasonMissingField RejectReason = "missing_field"
	ReasonDuplicate    RejectReason = "duplicate"
	ReasonStale        RejectReason = "stale"
	ReasonTooShort     RejectReason = "too_short"
)

// QualityReport summarizes one validation pass over a raw batch. It is
// produced once per run and consumed for run-level logging; it is not
// persisted beyond the run.
type QualityReport struct {
	InputCount  int     `json:"input_count"`
	OutputCount int     `json:"output_count"`
	RemovalRate float64 `json:"removal_rate"` // fraction in [0,1], 0 for empty input

	Rejected map[RejectReason]int `json:"rejected"`

	// Freshness window bounds used for the stale gate.
	ReferenceTime   time.Time `json:"reference_time"`
	FreshnessCutoff time.Time `json:"freshness_cutoff"`
}

// RejectedTotal sums the per-reason rejection buckets. It always equals
// InputCount - OutputCount.
func (r *QualityReport) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// RunRecord is the persisted outcome of a single pipeline run, as stored in
// the pipeline_runs table and served by the query API.
type RunRecord struct {
	ID           int64      `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	State        string     `json:"state"`
	InputCount   int        `json:"input_count"`
	CleanCount   int        `json:"clean_count"`
	LoadedCount  int        `json:"loaded_count"`
	SkippedCount int        `json:"skipped_count"`
	RemovalRate  float64    `json:"removal_rate"`
	AvgCompound  float64    `json:"avg_compound"`
	Error        string     `json:"error,omitempty"`
}

// LoadResult reports what a batch load actually wrote: rows inserted, rows
// skipped because an earlier run already persisted the same URL, and the
// sentiment-label counts of the inserted rows. Post-load verification
// recomputes the same figures from the store and compares.
type LoadResult struct {
	Inserted int                    `json:"inserted"`
	Skipped  int                    `json:"skipped"`
	Labels   map[SentimentLabel]int `json:"labels"`
}

// Package validate applies the pipeline's quality gates to a raw article
// batch, partitioning it into clean rows and counted rejections.
//
// The gates run in a fixed order: missing-field, duplicate, stale,
// too-short. A rejected row is attributed to exactly one gate, the first it
// fails, so the QualityReport's per-reason buckets are deterministic and
// always sum to input minus output. Changing the order changes the counts;
// do not reorder.
package validate

import (
	"strings"
	"time"
	"unicode/utf8"

	"newspulse/internal/models"
)

// Config holds the quality-gate thresholds.
type Config struct {
	// MaxAgeDays is the freshness window: articles published more than
	// this many days before the reference time are rejected as stale.
	MaxAgeDays int

	// MinContentLength is the minimum combined character count of title
	// and description.
	MinContentLength int
}

// Partition applies all quality gates to the raw batch and returns the
// surviving rows, order preserved and values untouched, together with a
// QualityReport. The reference time anchors the freshness window; callers
// pass the run start time so a slow run cannot reclassify rows mid-batch.
//
// Malformed rows are never an error here: they are rejected and counted.
func Partition(raw []models.RawArticle, cfg Config, reference time.Time) ([]models.CleanArticle, *models.QualityReport) {
	cutoff := reference.AddDate(0, 0, -cfg.MaxAgeDays)

	report := &models.QualityReport{
		InputCount:      len(raw),
		Rejected:        make(map[models.RejectReason]int),
		ReferenceTime:   reference,
		FreshnessCutoff: cutoff,
	}

	seen := make(map[string]bool, len(raw))
	clean := make([]models.CleanArticle, 0, len(raw))

	for _, art := range raw {
		if reason, ok := firstFailure(art, cfg, cutoff, seen); !ok {
			report.Rejected[reason]++
			continue
		}
		seen[art.URL] = true
		clean = append(clean, models.CleanArticle{RawArticle: art})
	}

	report.OutputCount = len(clean)
	if report.InputCount > 0 {
		report.RemovalRate = float64(report.InputCount-report.OutputCount) / float64(report.InputCount)
	}

	return clean, report
}

// firstFailure runs the gates in their fixed order and returns the first
// one the article fails, or ok=true if it passes all four.
func firstFailure(art models.RawArticle, cfg Config, cutoff time.Time, seen map[string]bool) (models.RejectReason, bool) {
	if isBlank(art.Title) || isBlank(art.Description) || isBlank(art.URL) {
		return models.ReasonMissingField, false
	}

	// First occurrence of a URL wins; later ones are duplicates. The
	// check is scoped to this batch only, never across runs.
	if seen[art.URL] {
		return models.ReasonDuplicate, false
	}

	// A zero timestamp means the source never supplied one; it cannot be
	// inside the freshness window.
	if art.PublishedAt.IsZero() || art.PublishedAt.Before(cutoff) {
		return models.ReasonStale, false
	}

	if utf8.RuneCountInString(art.Title)+utf8.RuneCountInString(art.Description) < cfg.MinContentLength {
		return models.ReasonTooShort, false
	}

	return "", true
}

// isBlank reports whether s is empty after trimming whitespace.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

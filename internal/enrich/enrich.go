// Package enrich computes sentiment scores and temporal features for clean
// articles.
//
// Scoring uses the VADER lexicon (via govader), the same rule-based scorer
// family the store's historical rows were produced with. Enrichment is a
// pure function of the article: identical text and timestamp always yield
// identical output, and no input can make it fail.
package enrich

import (
	"strings"

	"github.com/jonreiter/govader"

	"newspulse/internal/models"
)

// Label thresholds on the compound score. These are business-visible: they
// decide the sentiment distribution operators see, so both boundaries are
// inclusive exactly as written.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Enricher scores article text and derives temporal features.
type Enricher struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// New creates an Enricher with a fresh VADER analyzer.
func New() *Enricher {
	return &Enricher{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Article enriches a single clean article. The scored text is the title and
// description joined by a space, matching how the store's historical scores
// were computed.
func (e *Enricher) Article(art models.CleanArticle) models.EnrichedArticle {
	scores := e.score(art.Title + " " + art.Description)

	enriched := models.EnrichedArticle{
		CleanArticle:      art,
		SentimentCompound: scores.Compound,
		SentimentPositive: scores.Positive,
		SentimentNeutral:  scores.Neutral,
		SentimentNegative: scores.Negative,
		SentimentLabel:    LabelFor(scores.Compound),
	}

	published := art.PublishedAt.UTC()
	enriched.PublishedDate = published.Format("2006-01-02")
	enriched.PublishedHour = published.Hour()
	enriched.PublishedWeekday = published.Weekday().String()

	return enriched
}

// BatchStats summarizes the sentiment of an enriched batch for the run
// report.
type BatchStats struct {
	Labels      map[models.SentimentLabel]int `json:"labels"`
	AvgCompound float64                       `json:"avg_compound"`
}

// Batch enriches every article in order and computes the batch's label
// distribution and average compound score. An empty input yields an empty
// output and zeroed stats.
func (e *Enricher) Batch(clean []models.CleanArticle) ([]models.EnrichedArticle, BatchStats) {
	stats := BatchStats{Labels: make(map[models.SentimentLabel]int)}

	enriched := make([]models.EnrichedArticle, 0, len(clean))
	var sum float64
	for _, art := range clean {
		row := e.Article(art)
		enriched = append(enriched, row)
		stats.Labels[row.SentimentLabel]++
		sum += row.SentimentCompound
	}

	if len(enriched) > 0 {
		stats.AvgCompound = sum / float64(len(enriched))
	}

	return enriched, stats
}

// score runs the VADER analyzer with a defensive neutral fallback. Blank
// text should not survive validation, but if it arrives anyway the result
// is the neutral score rather than a panic or a degenerate all-zero vector;
// the pos/neu/neg sub-scores always sum to 1.
func (e *Enricher) score(text string) govader.Sentiment {
	if strings.TrimSpace(text) == "" {
		return neutralScore()
	}

	s := e.analyzer.PolarityScores(text)
	if s.Positive+s.Neutral+s.Negative == 0 {
		// Text with no scorable tokens (pure punctuation, emoji-only).
		return neutralScore()
	}
	return s
}

func neutralScore() govader.Sentiment {
	return govader.Sentiment{Negative: 0, Neutral: 1, Positive: 0, Compound: 0}
}

// LabelFor maps a compound score to its sentiment label: >= 0.05 positive,
// <= -0.05 negative, neutral in between.
func LabelFor(compound float64) models.SentimentLabel {
	switch {
	case compound >= positiveThreshold:
		return models.LabelPositive
	case compound <= negativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

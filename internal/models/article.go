package models

import "time"

// RawArticle is an article exactly as returned by a news source. Nothing
// about it is trusted yet: optional fields may be empty and no uniqueness
// or freshness guarantees hold until the validator has seen it.
type RawArticle struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	SourceName     string    `json:"source_name"`
	PublishedAt    time.Time `json:"published_at"`
	ContentSnippet string    `json:"content_snippet,omitempty"`
}

// CleanArticle is a RawArticle that passed every quality gate. Field values
// are carried over verbatim; validation filters rows, it never edits them.
type CleanArticle struct {
	RawArticle
}

// SentimentLabel classifies an article's compound score into one of three
// business-visible buckets.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNeutral  SentimentLabel = "neutral"
	LabelNegative SentimentLabel = "negative"
)

// EnrichedArticle is a CleanArticle augmented with sentiment scores and
// temporal features derived from the publication timestamp.
type EnrichedArticle struct {
	CleanArticle

	SentimentCompound float64        `json:"sentiment_compound"`
	SentimentPositive float64        `json:"sentiment_positive"`
	SentimentNeutral  float64        `json:"sentiment_neutral"`
	SentimentNegative float64        `json:"sentiment_negative"`
	SentimentLabel    SentimentLabel `json:"sentiment_label"`

	PublishedDate    string `json:"published_date"`    // YYYY-MM-DD, UTC
	PublishedHour    int    `json:"published_hour"`    // 0-23, UTC
	PublishedWeekday string `json:"published_weekday"` // English day name
}

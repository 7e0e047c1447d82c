package model

import "time"

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Article is one news item as delivered by a news source.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_date"`
}

// SentimentSummary is the aggregate keyword sentiment of a set of articles.
type SentimentSummary struct {
	Overall          string  `json:"overall_sentiment"`
	Score            float64 `json:"sentiment_score"` // 0 ~ 10
	PositiveCount    int     `json:"positive_count"`
	NegativeCount    int     `json:"negative_count"`
	NeutralCount     int     `json:"neutral_count"`
	Confidence       float64 `json:"confidence"` // 0 ~ 1
	ArticlesAnalyzed int     `json:"articles_analyzed"`
}

// NeutralSentiment is the summary used when no articles are available.
func NeutralSentiment() SentimentSummary {
	return SentimentSummary{Overall: SentimentNeutral, Score: 5.0}
}

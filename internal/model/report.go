package model

import "time"

// Price sources used when no live quote could be fetched.
const (
	PriceSourceCache     = "cache"
	PriceSourceLastClose = "last_close"
)

// Report bundles everything produced by one analysis run.
type Report struct {
	Symbol         string           `json:"symbol"`
	CurrentPrice   float64          `json:"current_price"`
	PriceSource    string           `json:"price_source"`
	BarsAnalyzed   int              `json:"bars_analyzed"`
	Indicators     IndicatorSet     `json:"technical_analysis"`
	Trend          TrendAnalysis    `json:"trend_analysis"`
	Volume         VolumeAnalysis   `json:"volume_analysis"`
	Risk           RiskAssessment   `json:"risk_assessment"`
	Sentiment      SentimentSummary `json:"news_sentiment"`
	Recommendation Recommendation   `json:"recommendation"`
	Summary        string           `json:"summary"`
	Timestamp      time.Time        `json:"analysis_timestamp"`

	Valid        bool   `json:"valid"`         // false when no price history could be obtained
	Degraded     bool   `json:"degraded"`      // built from cached or fallback inputs
	StaleHistory bool   `json:"stale_history"` // bars came from the cache after a failed fetch
	Error        string `json:"error,omitempty"`
}

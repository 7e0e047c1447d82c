// Package recorder keeps a history of analysis reports for later review.
package recorder

import (
	"context"
	"time"

	"MarketAnalyst/internal/model"
)

// ReportRecord is one stored analysis outcome.
type ReportRecord struct {
	Symbol      string
	Timestamp   time.Time
	Price       float64
	PriceSource string
	Action      model.Action
	Tier        model.Tier
	Score       int
	Confidence  float64
	RSI         float64
	Sentiment   string
	Valid       bool
	Degraded    bool
	Factors     []model.Factor
	Error       string
}

// Recorder persists analysis reports.
type Recorder interface {
	RecordReport(ctx context.Context, rep model.Report) error
	// RecentReports returns up to limit records for symbol, newest first.
	RecentReports(ctx context.Context, symbol string, limit int) ([]ReportRecord, error)
	Close() error
}

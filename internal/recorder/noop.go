package recorder

import (
	"context"

	"MarketAnalyst/internal/model"
)

// NoopRecorder is used when report history is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReport(context.Context, model.Report) error { return nil }
func (n *NoopRecorder) RecentReports(context.Context, string, int) ([]ReportRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }

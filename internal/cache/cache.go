// Package cache stores OHLCV bars, quotes and fetch bookkeeping per symbol.
package cache

import (
	"context"
	"fmt"
	"time"

	"MarketAnalyst/internal/model"
)

// Cache persists time series and quotes keyed by symbol. Every write call is
// all-or-nothing: a failed call leaves previously stored data untouched.
type Cache interface {
	// Bars returns stored bars dated within the last minDays calendar days,
	// oldest first. minDays <= 0 returns everything. The result may be empty.
	Bars(ctx context.Context, symbol string, minDays int) (model.Series, error)
	// UpsertBars merges bars by date, overwriting bars for existing dates.
	UpsertBars(ctx context.Context, symbol string, bars model.Series) error
	// LatestQuote returns the most recent quote, or nil if none is stored.
	LatestQuote(ctx context.Context, symbol string) (*model.Quote, error)
	// RecordQuote appends a quote; quotes are never overwritten.
	RecordQuote(ctx context.Context, symbol string, q model.Quote) error
	// Tracking returns fetch bookkeeping, or nil if the symbol was never fetched.
	Tracking(ctx context.Context, symbol string) (*model.FetchTracking, error)
	// IsFresh reports whether the symbol was fetched less than maxAge ago.
	IsFresh(ctx context.Context, symbol string, maxAge time.Duration) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
	// PurgeQuotes deletes quotes stamped before cutoff and returns how many went.
	PurgeQuotes(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Coverage describes the stored bar range for one symbol.
type Coverage struct {
	Symbol    string
	Bars      int
	FirstDate time.Time
	LastDate  time.Time
}

// Stats is a snapshot of cache contents.
type Stats struct {
	TotalQuotes  int
	QuoteSymbols int
	Coverage     []Coverage
	Tracking     []model.FetchTracking
}

// Option configures a cache implementation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func fresh(tr *model.FetchTracking, now time.Time, maxAge time.Duration) bool {
	if tr == nil || tr.LastFetchTime.IsZero() {
		return false
	}
	return now.Sub(tr.LastFetchTime) < maxAge
}

func windowStart(now time.Time, minDays int) time.Time {
	return model.Day(now.AddDate(0, 0, -minDays))
}

func validateBars(symbol string, bars model.Series) error {
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("upsert %s: %w", symbol, err)
		}
	}
	return nil
}

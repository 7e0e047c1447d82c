// Package collector fetches quotes and daily bars from upstream market data
// sources and keeps the local cache filled.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MarketAnalyst/internal/model"
)

var (
	// ErrDataUnavailable means no source produced data and the cache had none.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrNotFound means a source does not know the symbol. It is never retried.
	ErrNotFound = errors.New("symbol not found")
	// ErrRateLimited means a source refused the call because of its quota.
	ErrRateLimited = errors.New("rate limited")
)

// SourceError is a failure reported by a single upstream source.
type SourceError struct {
	Source string
	Symbol string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source fetches market data for a symbol from one upstream provider.
type Source interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
	// FetchDailyBars returns bars covering at least the last days calendar
	// days, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, days int) (model.Series, error)
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// statusError maps an HTTP status to a SourceError.
func statusError(source, symbol string, status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return &SourceError{Source: source, Symbol: symbol, Err: ErrNotFound}
	case http.StatusTooManyRequests:
		return &SourceError{Source: source, Symbol: symbol, Err: ErrRateLimited}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return &SourceError{Source: source, Symbol: symbol, Err: fmt.Errorf("status %d, body: %s", status, string(body))}
}

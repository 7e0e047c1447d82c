package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"MarketAnalyst/internal/cache"
	"MarketAnalyst/internal/model"
)

const (
	DefaultLookbackDays = 90
	// coverageSlackDays absorbs weekends and holidays at either end of a
	// cached window.
	coverageSlackDays = 5
)

// GatewayConfig tunes fetching and caching behaviour.
type GatewayConfig struct {
	RateLimitDelay time.Duration // minimum gap between outbound calls
	MaxRetries     int           // retries per source call after the first attempt
	RetryInterval  time.Duration // initial backoff interval
	MaxAge         time.Duration // cached history younger than this is served as is
	FetchInterval  time.Duration // Refresh skips symbols fetched more recently
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 500 * time.Millisecond
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.FetchInterval <= 0 {
		c.FetchInterval = 15 * time.Minute
	}
	return c
}

// Gateway serves quotes and history from the cache, falling back through an
// ordered chain of sources when the cache is stale or missing.
type Gateway struct {
	sources  []Source
	cache    cache.Cache
	throttle *Throttle
	cfg      GatewayConfig
	log      *zap.Logger
	now      func() time.Time

	locks sync.Map // symbol -> *sync.Mutex
}

// NewGateway builds a gateway that tries sources in the given order.
func NewGateway(c cache.Cache, sources []Source, cfg GatewayConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Gateway{
		sources:  sources,
		cache:    c,
		throttle: NewThrottle(cfg.RateLimitDelay),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides time.Now for freshness and window decisions.
func (g *Gateway) SetClock(now func() time.Time) { g.now = now }

// Cache exposes the underlying cache for read-only fallbacks.
func (g *Gateway) Cache() cache.Cache { return g.cache }

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (g *Gateway) lockFor(symbol string) *sync.Mutex {
	v, _ := g.locks.LoadOrStore(symbol, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// call runs fn against the throttle with exponential backoff. ErrNotFound and
// context cancellation end the retries early.
func (g *Gateway) call(ctx context.Context, src Source, symbol, what string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.cfg.MaxRetries)), ctx)

	op := func() error {
		if err := g.throttle.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := fn()
		if err != nil && (errors.Is(err, ErrNotFound) || ctx.Err() != nil) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		g.log.Warn("source call failed, retrying",
			zap.String("source", src.Name()),
			zap.String("symbol", symbol),
			zap.String("op", what),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
	return backoff.RetryNotify(op, policy, notify)
}

// GetQuote returns a live quote from the first source that answers and
// records it in the cache.
func (g *Gateway) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return model.Quote{}, fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}

	var errs []error
	for _, src := range g.sources {
		var q model.Quote
		err := g.call(ctx, src, symbol, "quote", func() error {
			var err error
			q, err = src.FetchQuote(ctx, symbol)
			return err
		})
		if err == nil && q.Price <= 0 {
			err = &SourceError{Source: src.Name(), Symbol: symbol, Err: errors.New("non-positive price")}
		}
		if err != nil {
			g.log.Warn("quote source failed", zap.String("source", src.Name()), zap.String("symbol", symbol), zap.Error(err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		q.Symbol = symbol
		if q.Source == "" {
			q.Source = src.Name()
		}
		if q.Timestamp.IsZero() {
			q.Timestamp = g.now().UTC()
		}
		if err := g.cache.RecordQuote(ctx, symbol, q); err != nil {
			g.log.Warn("record quote failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return q, nil
	}
	return model.Quote{}, fmt.Errorf("%w: quote %s: %w", ErrDataUnavailable, symbol, errors.Join(errs...))
}

// GetHistory returns daily bars for the last lookbackDays calendar days.
// Fresh cached data is served without network access; when fetching fails,
// any cached data is returned instead.
func (g *Gateway) GetHistory(ctx context.Context, symbol string, lookbackDays int, forceRefresh bool) (model.Series, error) {
	series, _, err := g.GetHistoryStatus(ctx, symbol, lookbackDays, forceRefresh)
	return series, err
}

// GetHistoryStatus is GetHistory that also reports whether the result was
// served from the cache after every source failed.
func (g *Gateway) GetHistoryStatus(ctx context.Context, symbol string, lookbackDays int, force bool) (model.Series, bool, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, false, fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	mu := g.lockFor(symbol)
	mu.Lock()
	defer mu.Unlock()

	cached, err := g.cache.Bars(ctx, symbol, lookbackDays)
	if err != nil {
		g.log.Warn("read cached bars failed", zap.String("symbol", symbol), zap.Error(err))
		cached = nil
	}
	if !force && len(cached) > 0 {
		fresh, err := g.cache.IsFresh(ctx, symbol, g.cfg.MaxAge)
		if err == nil && fresh && g.covers(cached, lookbackDays) {
			g.log.Debug("serving cached history", zap.String("symbol", symbol), zap.Int("bars", len(cached)))
			return cached, false, nil
		}
	}

	fetched, fetchErr := g.fetchBars(ctx, symbol, lookbackDays)
	if fetchErr == nil {
		if err := g.cache.UpsertBars(ctx, symbol, fetched); err != nil {
			g.log.Warn("cache upsert failed", zap.String("symbol", symbol), zap.Error(err))
		}
		if window := fetched.Since(g.windowStart(lookbackDays)); len(window) > 0 {
			return window, false, nil
		}
		return fetched, false, nil
	}

	if len(cached) == 0 {
		if all, err := g.cache.Bars(ctx, symbol, 0); err == nil {
			cached = all
		}
	}
	if len(cached) > 0 {
		g.log.Warn("history fetch failed, using cached data",
			zap.String("symbol", symbol), zap.Int("bars", len(cached)), zap.Error(fetchErr))
		return cached, true, nil
	}
	return nil, false, fmt.Errorf("%w: history %s: %w", ErrDataUnavailable, symbol, fetchErr)
}

func (g *Gateway) windowStart(lookbackDays int) time.Time {
	return model.Day(g.now().AddDate(0, 0, -lookbackDays))
}

// covers reports whether cached reaches back to the window start and forward
// to the present, both within coverageSlackDays.
func (g *Gateway) covers(cached model.Series, lookbackDays int) bool {
	first, last := cached[0].Date, cached[len(cached)-1].Date
	if first.After(g.windowStart(lookbackDays).AddDate(0, 0, coverageSlackDays)) {
		return false
	}
	return !last.Before(model.Day(g.now()).AddDate(0, 0, -coverageSlackDays))
}

// fetchBars walks the source chain and returns the first non-empty, validated
// series.
func (g *Gateway) fetchBars(ctx context.Context, symbol string, lookbackDays int) (model.Series, error) {
	var errs []error
	for _, src := range g.sources {
		var bars model.Series
		err := g.call(ctx, src, symbol, "history", func() error {
			var err error
			bars, err = src.FetchDailyBars(ctx, symbol, lookbackDays)
			return err
		})
		if err == nil {
			bars = g.sanitize(src.Name(), symbol, bars)
			if len(bars) == 0 {
				err = &SourceError{Source: src.Name(), Symbol: symbol, Err: errors.New("no valid bars")}
			}
		}
		if err != nil {
			g.log.Warn("history source failed", zap.String("source", src.Name()), zap.String("symbol", symbol), zap.Error(err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		g.log.Info("history fetched", zap.String("source", src.Name()), zap.String("symbol", symbol), zap.Int("bars", len(bars)))
		return bars, nil
	}
	if len(errs) == 0 {
		return nil, errors.New("no sources configured")
	}
	return nil, errors.Join(errs...)
}

// sanitize drops bars that fail validation and collapses duplicate days.
func (g *Gateway) sanitize(source, symbol string, bars model.Series) model.Series {
	valid := make(model.Series, 0, len(bars))
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			g.log.Debug("dropping invalid bar", zap.String("source", source), zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		valid = append(valid, b)
	}
	return model.MergeBars(nil, valid)
}

// QuoteResult is one symbol's outcome in a batch quote request.
type QuoteResult struct {
	Quote model.Quote
	Err   error
}

// GetQuotes fetches quotes for symbols in order. Failures are reported per
// symbol and do not stop the batch.
func (g *Gateway) GetQuotes(ctx context.Context, symbols []string) map[string]QuoteResult {
	out := make(map[string]QuoteResult, len(symbols))
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		q, err := g.GetQuote(ctx, s)
		out[normalize(s)] = QuoteResult{Quote: q, Err: err}
	}
	return out
}

// RefreshSummary reports what a bulk refresh did.
type RefreshSummary struct {
	Fetched []string
	Skipped []string
	Failed  map[string]error
}

// Refresh pulls a quote and fresh history for each symbol. Symbols fetched
// within the configured fetch interval are skipped unless force is set.
func (g *Gateway) Refresh(ctx context.Context, symbols []string, lookbackDays int, force bool) RefreshSummary {
	sum := RefreshSummary{Failed: make(map[string]error)}
	var due []string
	for _, raw := range symbols {
		symbol := normalize(raw)
		if symbol == "" {
			continue
		}
		if !force && g.recentlyFetched(ctx, symbol) {
			sum.Skipped = append(sum.Skipped, symbol)
			continue
		}
		due = append(due, symbol)
	}

	quotes := g.GetQuotes(ctx, due)
	for _, symbol := range due {
		if ctx.Err() != nil {
			break
		}
		res, ok := quotes[symbol]
		if !ok {
			continue
		}
		if res.Err != nil {
			sum.Failed[symbol] = res.Err
			continue
		}
		if _, degraded, err := g.GetHistoryStatus(ctx, symbol, lookbackDays, true); err != nil {
			sum.Failed[symbol] = err
			continue
		} else if degraded {
			sum.Failed[symbol] = fmt.Errorf("history %s: served from cache after fetch failure", symbol)
			continue
		}
		sum.Fetched = append(sum.Fetched, symbol)
	}
	g.log.Info("refresh complete",
		zap.Int("fetched", len(sum.Fetched)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failed)))
	return sum
}

func (g *Gateway) recentlyFetched(ctx context.Context, symbol string) bool {
	tr, err := g.cache.Tracking(ctx, symbol)
	if err != nil || tr == nil {
		return false
	}
	return g.now().Sub(tr.LastFetchTime) < g.cfg.FetchInterval
}

package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketAnalyst/internal/model"
)

// MemoryCache is an in-process Cache used when no database is configured.
// Writers build the merged series aside and swap it in under the lock, so
// readers only ever see whole series.
type MemoryCache struct {
	mu       sync.RWMutex
	bars     map[string]model.Series
	quotes   map[string][]model.Quote
	tracking map[string]model.FetchTracking
	now      func() time.Time
}

func NewMemoryCache(opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	return &MemoryCache{
		bars:     make(map[string]model.Series),
		quotes:   make(map[string][]model.Quote),
		tracking: make(map[string]model.FetchTracking),
		now:      o.now,
	}
}

func (m *MemoryCache) Bars(_ context.Context, symbol string, minDays int) (model.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.bars[symbol]
	if minDays > 0 {
		s = s.Since(windowStart(m.now(), minDays))
	}
	out := make(model.Series, len(s))
	copy(out, s)
	return out, nil
}

func (m *MemoryCache) UpsertBars(_ context.Context, symbol string, bars model.Series) error {
	if len(bars) == 0 {
		return nil
	}
	if err := validateBars(symbol, bars); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := model.MergeBars(m.bars[symbol], bars)
	m.bars[symbol] = merged

	tr := m.tracking[symbol]
	tr.Symbol = symbol
	tr.LastFetchTime = m.now()
	if last := merged[len(merged)-1].Date; last.After(tr.LastHistoricalDate) {
		tr.LastHistoricalDate = last
	}
	tr.FetchCount++
	m.tracking[symbol] = tr
	return nil
}

func (m *MemoryCache) LatestQuote(_ context.Context, symbol string) (*model.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qs := m.quotes[symbol]
	if len(qs) == 0 {
		return nil, nil
	}
	latest := qs[0]
	for _, q := range qs[1:] {
		if !q.Timestamp.Before(latest.Timestamp) {
			latest = q
		}
	}
	return &latest, nil
}

func (m *MemoryCache) RecordQuote(_ context.Context, symbol string, q model.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Symbol = symbol
	m.quotes[symbol] = append(m.quotes[symbol], q)

	tr := m.tracking[symbol]
	tr.Symbol = symbol
	tr.LastFetchTime = m.now()
	tr.FetchCount++
	m.tracking[symbol] = tr
	return nil
}

func (m *MemoryCache) Tracking(_ context.Context, symbol string) (*model.FetchTracking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tr, ok := m.tracking[symbol]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (m *MemoryCache) IsFresh(ctx context.Context, symbol string, maxAge time.Duration) (bool, error) {
	tr, _ := m.Tracking(ctx, symbol)
	return fresh(tr, m.now(), maxAge), nil
}

func (m *MemoryCache) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{}
	for _, qs := range m.quotes {
		if len(qs) > 0 {
			st.QuoteSymbols++
			st.TotalQuotes += len(qs)
		}
	}
	for sym, s := range m.bars {
		if len(s) == 0 {
			continue
		}
		st.Coverage = append(st.Coverage, Coverage{
			Symbol: sym, Bars: len(s), FirstDate: s[0].Date, LastDate: s[len(s)-1].Date,
		})
	}
	for _, tr := range m.tracking {
		st.Tracking = append(st.Tracking, tr)
	}
	sort.Slice(st.Coverage, func(i, j int) bool { return st.Coverage[i].Symbol < st.Coverage[j].Symbol })
	sort.Slice(st.Tracking, func(i, j int) bool { return st.Tracking[i].LastFetchTime.After(st.Tracking[j].LastFetchTime) })
	return st, nil
}

func (m *MemoryCache) PurgeQuotes(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for sym, qs := range m.quotes {
		kept := qs[:0:0]
		for _, q := range qs {
			if q.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, q)
		}
		m.quotes[sym] = kept
	}
	return removed, nil
}

func (m *MemoryCache) Close() error { return nil }

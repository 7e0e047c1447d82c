package collector

import (
	"context"
	"sync"
	"time"

	"MarketAnalyst/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	SourceName string
	Price      float64
	Bars       model.Series // generated around Price when nil
	QuoteErr   error
	BarsErr    error

	mu         sync.Mutex
	quoteCalls int
	barCalls   int
}

func (m *MockSource) Name() string {
	if m.SourceName != "" {
		return m.SourceName
	}
	return "mock"
}

func (m *MockSource) FetchQuote(_ context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.mu.Unlock()
	if m.QuoteErr != nil {
		return model.Quote{}, m.QuoteErr
	}
	price := m.Price
	if last, ok := m.Bars.Last(); ok && price == 0 {
		price = last.Close
	}
	return model.Quote{
		Symbol:    symbol,
		Price:     price,
		Source:    m.Name(),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (m *MockSource) FetchDailyBars(_ context.Context, _ string, days int) (model.Series, error) {
	m.mu.Lock()
	m.barCalls++
	m.mu.Unlock()
	if m.BarsErr != nil {
		return nil, m.BarsErr
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(m.Price, days, time.Now()), nil
}

func (m *MockSource) QuoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls
}

func (m *MockSource) BarCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.barCalls
}

// generateMockBars returns one bar per calendar day ending on end's day,
// drifting gently around basePrice.
func generateMockBars(basePrice float64, count int, end time.Time) model.Series {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make(model.Series, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:   model.Day(end.AddDate(0, 0, -(count - 1 - i))),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"MarketAnalyst/internal/cache"
	"MarketAnalyst/internal/collector"
	"MarketAnalyst/internal/model"
)

var testDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// risingBars returns 30 closes rising linearly from 100 to 130.
func risingBars() model.Series {
	bars := make(model.Series, 30)
	for i := range bars {
		c := 100 + float64(i)*30/29
		bars[i] = model.Bar{
			Date:   testDay.AddDate(0, 0, i-29),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

type stubData struct {
	bars     model.Series
	stale    bool
	barsErr  error
	quote    model.Quote
	quoteErr error
}

func (s *stubData) GetHistoryStatus(context.Context, string, int, bool) (model.Series, bool, error) {
	return s.bars, s.stale, s.barsErr
}

func (s *stubData) GetQuote(_ context.Context, symbol string) (model.Quote, error) {
	if s.quoteErr != nil {
		return model.Quote{}, s.quoteErr
	}
	q := s.quote
	q.Symbol = symbol
	return q, nil
}

type stubNews struct {
	articles []model.Article
	err      error
	calls    int
}

func (s *stubNews) FetchArticles(context.Context, string, int) ([]model.Article, error) {
	s.calls++
	return s.articles, s.err
}

type stubQuotes struct{ q *model.Quote }

func (s stubQuotes) LatestQuote(context.Context, string) (*model.Quote, error) { return s.q, nil }

func TestAnalyze_RisingSeriesScoresExactly(t *testing.T) {
	data := &stubData{bars: risingBars(), quote: model.Quote{Price: 130, Source: "mock"}}
	a := New(data, Options{})

	rep := a.AnalyzeWithArticles(context.Background(), "aapl", nil)

	require.True(t, rep.Valid)
	assert.Equal(t, "AAPL", rep.Symbol)
	assert.Equal(t, 30, rep.BarsAnalyzed)
	assert.Equal(t, 100.0, rep.Indicators.RSI)
	assert.Greater(t, rep.Indicators.MACD, rep.Indicators.MACDSignal)
	assert.Equal(t, model.TrendBullish, rep.Trend.Trend)
	assert.Equal(t, model.RiskLow, rep.Risk.Level)
	assert.Equal(t, model.SentimentNeutral, rep.Sentiment.Overall)

	rec := rep.Recommendation
	// RSI overbought -2, MACD bullish +1, bullish trend +2.
	assert.Equal(t, 1, rec.Score)
	assert.Equal(t, model.ActionBuy, rec.Action)
	assert.Equal(t, model.TierBuy, rec.Tier)
	assert.Equal(t, 33.3, rec.Confidence)
	assert.Equal(t, []string{"RSI overbought (bearish)", "MACD bullish crossover", "Strong bullish trend"}, rec.FactorTexts())
	assert.Equal(t,
		"💹 AAPL shows strong buying signals with 33.3% confidence. "+
			"The stock is in a bullish trend with neutral news sentiment. "+
			"Lower confidence - proceed with caution.",
		rep.Summary)
	assert.False(t, rep.Degraded)
	assert.Equal(t, "mock", rep.PriceSource)
}

func TestAnalyze_NoHistoryGivesErrorReport(t *testing.T) {
	data := &stubData{barsErr: fmt.Errorf("%w: history ZZZZ", collector.ErrDataUnavailable)}
	newsSrc := &stubNews{}
	a := New(data, Options{News: newsSrc})

	rep := a.Analyze(context.Background(), "ZZZZ")

	assert.False(t, rep.Valid)
	assert.Equal(t, model.ActionHold, rep.Recommendation.Action)
	assert.Equal(t, 0.0, rep.Recommendation.Confidence)
	assert.Contains(t, rep.Error, "market data unavailable")
	assert.Equal(t, rep.Error, rep.Recommendation.Error)
	assert.Equal(t, model.ReasonInsufficientData, rep.Recommendation.Reasoning)
	assert.Equal(t, 0, newsSrc.calls)
	assert.Contains(t, rep.Summary, "Unable to analyze ZZZZ")
}

func TestAnalyze_EmptyHistoryGivesErrorReport(t *testing.T) {
	rep := New(&stubData{}, Options{}).Analyze(context.Background(), "AAPL")
	assert.False(t, rep.Valid)
	assert.Equal(t, "no historical data", rep.Error)
}

func TestAnalyze_PriceFallsBackToCachedQuote(t *testing.T) {
	data := &stubData{bars: risingBars(), quoteErr: collector.ErrDataUnavailable}
	a := New(data, Options{Quotes: stubQuotes{q: &model.Quote{Price: 128.4}}})

	rep := a.AnalyzeWithArticles(context.Background(), "AAPL", nil)
	require.True(t, rep.Valid)
	assert.True(t, rep.Degraded)
	assert.Equal(t, 128.4, rep.CurrentPrice)
	assert.Equal(t, "cache", rep.PriceSource)
	assert.Contains(t, rep.Summary, "Live price unavailable")
}

func TestAnalyze_PriceFallsBackToLastClose(t *testing.T) {
	data := &stubData{bars: risingBars(), quoteErr: errors.New("offline")}
	rep := New(data, Options{}).AnalyzeWithArticles(context.Background(), "AAPL", nil)

	require.True(t, rep.Valid)
	assert.True(t, rep.Degraded)
	assert.InDelta(t, 130.0, rep.CurrentPrice, 1e-9)
	assert.Equal(t, "last_close", rep.PriceSource)
}

func TestAnalyze_StaleHistoryMarksDegraded(t *testing.T) {
	data := &stubData{bars: risingBars(), stale: true, quote: model.Quote{Price: 130, Source: "mock"}}
	rep := New(data, Options{}).AnalyzeWithArticles(context.Background(), "AAPL", nil)

	require.True(t, rep.Valid)
	assert.True(t, rep.Degraded)
	assert.True(t, rep.StaleHistory)
	assert.Equal(t, "mock", rep.PriceSource)
	assert.Contains(t, rep.Summary, "Price history could not be refreshed")
	assert.NotContains(t, rep.Summary, "Live price unavailable")
}

func TestAnalyze_GatewayCacheFallbackMarksDegraded(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	require.NoError(t, c.UpsertBars(ctx, "AAPL", risingBars()))

	src := &collector.MockSource{Price: 131, BarsErr: collector.ErrNotFound}
	gw := collector.NewGateway(c, []collector.Source{src}, collector.GatewayConfig{MaxAge: time.Nanosecond}, nil)

	rep := New(gw, Options{Quotes: c}).AnalyzeWithArticles(ctx, "AAPL", nil)
	require.True(t, rep.Valid, rep.Error)
	assert.Equal(t, 30, rep.BarsAnalyzed)
	assert.Equal(t, 1, src.BarCalls())
	assert.Equal(t, 131.0, rep.CurrentPrice)
	assert.True(t, rep.StaleHistory)
	assert.True(t, rep.Degraded)
}

func TestAnalyze_UsesNewsSentiment(t *testing.T) {
	data := &stubData{bars: risingBars(), quote: model.Quote{Price: 130}}
	newsSrc := &stubNews{articles: []model.Article{
		{Title: "Shares rally on strong earnings"},
		{Title: "Analysts upgrade the stock"},
	}}
	rep := New(data, Options{News: newsSrc}).Analyze(context.Background(), "AAPL")

	assert.Equal(t, 1, newsSrc.calls)
	assert.Equal(t, model.SentimentPositive, rep.Sentiment.Overall)
	assert.Equal(t, 2, rep.Recommendation.Score)
	assert.Contains(t, rep.Recommendation.FactorTexts(), "Positive news sentiment")
}

func TestAnalyze_NewsFailureIsNeutral(t *testing.T) {
	data := &stubData{bars: risingBars(), quote: model.Quote{Price: 130}}
	rep := New(data, Options{News: &stubNews{err: errors.New("feed down")}}).Analyze(context.Background(), "AAPL")

	require.True(t, rep.Valid)
	assert.Equal(t, model.NeutralSentiment(), rep.Sentiment)
	assert.Equal(t, 1, rep.Recommendation.Score)
}

func TestAnalyze_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	data := &stubData{bars: risingBars(), quote: model.Quote{Price: 130}}
	a := New(data, Options{News: &stubNews{}, Tracer: tp.Tracer("test")})
	a.Analyze(context.Background(), "AAPL")

	spans := sr.Ended()
	require.Len(t, spans, 2)
	names := []string{spans[0].Name(), spans[1].Name()}
	assert.ElementsMatch(t, []string{"analyzer.Analyze", "analyzer.FetchNews"}, names)
}

func TestAnalyzeMany_WithGateway(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := cache.NewMemoryCache()
	src := &collector.MockSource{Price: 250}
	gw := collector.NewGateway(c, []collector.Source{src}, collector.GatewayConfig{}, nil)
	a := New(gw, Options{Quotes: c, LookbackDays: 60})

	reports := a.AnalyzeMany(ctx, []string{"AAPL", "MSFT"})
	require.Len(t, reports, 2)
	for _, rep := range reports {
		assert.True(t, rep.Valid, rep.Error)
		assert.Equal(t, 250.0, rep.CurrentPrice)
		assert.Equal(t, 60, rep.BarsAnalyzed)
		assert.False(t, rep.Timestamp.Before(now.UTC().Add(-time.Second)))
	}

	// History for both symbols is now cached and fresh.
	a.AnalyzeMany(ctx, []string{"AAPL", "MSFT"})
	assert.Equal(t, 2, src.BarCalls())
}

package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketAnalyst/internal/model"
)

func sampleReport() model.Report {
	return model.Report{
		Symbol:       "AAPL",
		CurrentPrice: 187.5,
		PriceSource:  "yahoo",
		Valid:        true,
		Timestamp:    time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC),
		Trend:        model.TrendAnalysis{Trend: model.TrendBullish, ShortTermChange: 2.5, Strength: 0.5},
		Volume:       model.VolumeAnalysis{Trend: model.VolumeNormal, Ratio: 1.1},
		Risk:         model.RiskAssessment{Level: model.RiskLow, Volatility: 0.12},
		Sentiment:    model.NeutralSentiment(),
		Recommendation: model.Recommendation{
			Action:     model.ActionBuy,
			Tier:       model.TierStrongBuy,
			Score:      4,
			Confidence: 66.7,
			Factors:    []model.Factor{{Text: "RSI <30 (oversold)", Delta: 2}},
		},
		Summary: "AAPL looks strong.",
	}
}

func TestFormatReport(t *testing.T) {
	msg := FormatReport(sampleReport())

	assert.Contains(t, msg, "<b>AAPL</b> | 2026-03-02 15:04")
	assert.Contains(t, msg, "Price: 187.50 (yahoo)\n")
	assert.Contains(t, msg, "🟢 <b>BUY</b> (strong buy) | score +4 | confidence 66.7%")
	assert.Contains(t, msg, "+2 RSI &lt;30 (oversold)")
	assert.Contains(t, msg, "Trend: bullish (5d +2.50%, strength 0.50)")
	assert.Contains(t, msg, "AAPL looks strong.")
	assert.NotContains(t, msg, "⚠️")
}

func TestFormatReport_Degraded(t *testing.T) {
	rep := sampleReport()
	rep.Degraded = true
	rep.PriceSource = "last_close"
	assert.Contains(t, FormatReport(rep), "Price: 187.50 (last_close) ⚠️")
}

func TestFormatReport_Invalid(t *testing.T) {
	rep := model.Report{
		Symbol:    "<X>",
		Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Error:     "no data & no cache",
	}
	msg := FormatReport(rep)
	assert.Contains(t, msg, "❌ <b>&lt;X&gt;</b>")
	assert.Contains(t, msg, "no data &amp; no cache")
	assert.NotContains(t, msg, "score")
}

func TestFormatDigest(t *testing.T) {
	bad := model.Report{Symbol: "ZZZ"}
	msg := FormatDigest([]model.Report{sampleReport(), bad})
	assert.Contains(t, msg, "🟢 AAPL 187.50  BUY +4 (66.7%)")
	assert.Contains(t, msg, "❌ ZZZ: unavailable")
}

func TestFormatMarketSentiment(t *testing.T) {
	s := model.SentimentSummary{Overall: model.SentimentNegative, Score: 2.5, ArticlesAnalyzed: 4}
	assert.Equal(t, "📰 Market news: negative (2.5/10, 4 articles)\n", FormatMarketSentiment(s))
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIBase = url
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry_RecoversFromServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendWithRetry_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hi", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yahooBody = `{
  "chart": {
    "result": [{
      "meta": {
        "regularMarketPrice": 189.5,
        "previousClose": 187.0,
        "regularMarketVolume": 5000000,
        "regularMarketDayHigh": 190.1,
        "regularMarketDayLow": 186.9,
        "regularMarketOpen": 187.2,
        "regularMarketTime": 1710518400
      },
      "timestamp": [1710250200, 1710336600, 1710423000],
      "indicators": {
        "quote": [{
          "open":   [180.0, null, 185.0],
          "high":   [182.0, null, 188.0],
          "low":    [179.0, null, 184.0],
          "close":  [181.0, null, 187.0],
          "volume": [1000,  null, 3000]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahooSource_FetchDailyBars(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		fmt.Fprint(w, yahooBody)
	}))
	defer srv.Close()

	y := NewYahooSource(srv.URL, "", time.Second)
	bars, err := y.FetchDailyBars(context.Background(), "SPX", 30)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Equal(t, "1mo", gotRange)
	require.Len(t, bars, 2, "null bar must be skipped")
	assert.Equal(t, 181.0, bars[0].Close)
	assert.Equal(t, 3000.0, bars[1].Volume)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
}

func TestYahooSource_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, yahooBody)
	}))
	defer srv.Close()

	q, err := NewYahooSource(srv.URL, "", time.Second).FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.5, q.Price)
	assert.Equal(t, 187.0, q.PreviousClose)
	assert.InDelta(t, 2.5, q.Change, 1e-9)
	assert.InDelta(t, 2.5/187.0*100, q.ChangePercent, 1e-9)
	assert.Equal(t, "yahoo", q.Source)
	assert.Equal(t, time.Unix(1710518400, 0).UTC(), q.Timestamp)
}

func TestYahooSource_StatusMapping(t *testing.T) {
	for status, want := range map[int]error{
		http.StatusNotFound:        ErrNotFound,
		http.StatusTooManyRequests: ErrRateLimited,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := NewYahooSource(srv.URL, "", time.Second).FetchQuote(context.Background(), "ZZZZ")
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, want)
		var se *SourceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "yahoo", se.Source)
	}
}

func TestYahooSource_TimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, yahooBody)
	}))
	defer srv.Close()

	_, err := NewYahooSource(srv.URL, "", 20*time.Millisecond).FetchQuote(context.Background(), "AAPL")
	assert.Error(t, err)
}

func alphaServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, bodies[r.URL.Query().Get("function")])
	}))
}

func TestAlphaVantageSource_FetchQuote(t *testing.T) {
	srv := alphaServer(t, map[string]string{"GLOBAL_QUOTE": `{
		"Global Quote": {
			"01. symbol": "IBM",
			"02. open": "190.00",
			"03. high": "192.50",
			"04. low": "189.10",
			"05. price": "191.25",
			"06. volume": "4200000",
			"07. latest trading day": "2024-03-15",
			"08. previous close": "189.00",
			"09. change": "2.25",
			"10. change percent": "1.1905%"
		}}`})
	defer srv.Close()

	a := NewAlphaVantageSource(srv.URL, "secret", "", time.Second)
	q, err := a.FetchQuote(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 191.25, q.Price)
	assert.Equal(t, 2.25, q.Change)
	assert.InDelta(t, 1.1905, q.ChangePercent, 1e-9)
	assert.Equal(t, 4200000.0, q.Volume)
	assert.Equal(t, "alpha_vantage", q.Source)
}

func TestAlphaVantageSource_FetchDailyBars(t *testing.T) {
	srv := alphaServer(t, map[string]string{"TIME_SERIES_DAILY": `{
		"Meta Data": {"2. Symbol": "IBM"},
		"Time Series (Daily)": {
			"2024-03-15": {"1. open": "190", "2. high": "192", "3. low": "189", "4. close": "191", "5. volume": "100"},
			"2024-03-14": {"1. open": "188", "2. high": "190", "3. low": "187", "4. close": "189", "5. volume": "200"}
		}}`})
	defer srv.Close()

	bars, err := NewAlphaVantageSource(srv.URL, "secret", "", time.Second).FetchDailyBars(context.Background(), "IBM", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 191.0, bars[1].Close)
}

func TestAlphaVantageSource_InBodyErrors(t *testing.T) {
	cases := map[string]error{
		`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`: ErrRateLimited,
		`{"Information": "daily limit reached"}`:                                                             ErrRateLimited,
		`{"Error Message": "Invalid API call."}`:                                                             ErrNotFound,
		`{"Global Quote": {}}`:                                                                               ErrNotFound,
	}
	for body, want := range cases {
		srv := alphaServer(t, map[string]string{"GLOBAL_QUOTE": body})
		_, err := NewAlphaVantageSource(srv.URL, "secret", "", time.Second).FetchQuote(context.Background(), "XXXX")
		srv.Close()
		assert.ErrorIs(t, err, want, body)
	}
}

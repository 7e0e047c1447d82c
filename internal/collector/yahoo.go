package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MarketAnalyst/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource reads the public Yahoo Finance chart API. It needs no key and
// serves as the fallback source.
type YahooSource struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

func NewYahooSource(baseURL, proxyURL string, timeout time.Duration) *YahooSource {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooSource{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX":   "^GSPC",
			"SP500": "^GSPC",
			"NDX":   "^NDX",
			"DJI":   "^DJI",
		},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

func (y *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

type yahooMeta struct {
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	PreviousClose        float64 `json:"previousClose"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	RegularMarketVolume  float64 `json:"regularMarketVolume"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketOpen    float64 `json:"regularMarketOpen"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta       yahooMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

func (y *YahooSource) fetchChart(ctx context.Context, symbol, rng string) (yahooMeta, model.Series, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.BaseURL, url.PathEscape(y.yahooSymbol(symbol)), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return yahooMeta{}, nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return yahooMeta{}, nil, statusError(y.Name(), symbol, resp.StatusCode, body)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: fmt.Errorf("decode: %w", err)}
	}
	if e := chart.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: ErrNotFound}
		}
		return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: fmt.Errorf("api error: %s", e.Description)}
	}
	if len(chart.Chart.Result) == 0 {
		return yahooMeta{}, nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: ErrNotFound}
	}

	result := chart.Chart.Result[0]
	var bars model.Series
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		for i, ts := range result.Timestamp {
			o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
			if o == 0 || h == 0 || l == 0 || c == 0 {
				continue // null bars (holidays, halted sessions)
			}
			bars = append(bars, model.Bar{
				Date:   model.Day(time.Unix(ts, 0)),
				Open:   o,
				High:   h,
				Low:    l,
				Close:  c,
				Volume: at(q.Volume, i),
			})
		}
	}
	return result.Meta, model.MergeBars(nil, bars), nil
}

func (y *YahooSource) FetchDailyBars(ctx context.Context, symbol string, days int) (model.Series, error) {
	rng := "2y"
	switch {
	case days <= 5:
		rng = "5d"
	case days <= 30:
		rng = "1mo"
	case days <= 90:
		rng = "3mo"
	case days <= 180:
		rng = "6mo"
	case days <= 365:
		rng = "1y"
	}
	_, bars, err := y.fetchChart(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, &SourceError{Source: y.Name(), Symbol: symbol, Err: ErrNotFound}
	}
	return bars, nil
}

func (y *YahooSource) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	meta, bars, err := y.fetchChart(ctx, symbol, "5d")
	if err != nil {
		return model.Quote{}, err
	}

	last, hasBar := bars.Last()
	price := meta.RegularMarketPrice
	if price == 0 && hasBar {
		price = last.Close
	}
	if price <= 0 {
		return model.Quote{}, &SourceError{Source: y.Name(), Symbol: symbol, Err: ErrNotFound}
	}

	prev := meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	q := model.Quote{
		Symbol:        symbol,
		Price:         price,
		Volume:        meta.RegularMarketVolume,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		Open:          meta.RegularMarketOpen,
		PreviousClose: prev,
		Source:        y.Name(),
		Timestamp:     time.Now().UTC(),
	}
	if meta.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	if hasBar {
		if q.High == 0 {
			q.High = last.High
		}
		if q.Low == 0 {
			q.Low = last.Low
		}
		if q.Open == 0 {
			q.Open = last.Open
		}
		if q.Volume == 0 {
			q.Volume = last.Volume
		}
	}
	if prev > 0 {
		q.Change = price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketAnalyst/internal/model"
)

const defaultAlphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageSource reads the keyed Alpha Vantage REST API. When a key is
// configured it is tried before any free source.
type AlphaVantageSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAlphaVantageSource(baseURL, apiKey, proxyURL string, timeout time.Duration) *AlphaVantageSource {
	if baseURL == "" {
		baseURL = defaultAlphaVantageBaseURL
	}
	return &AlphaVantageSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (a *AlphaVantageSource) Name() string { return "alpha_vantage" }

// query calls one API function and returns the top-level JSON object after
// mapping the API's in-body error conventions onto sentinel errors.
func (a *AlphaVantageSource) query(ctx context.Context, symbol string, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("symbol", symbol)
	params.Set("apikey", a.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(a.Name(), symbol, resp.StatusCode, body)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: fmt.Errorf("decode: %w", err)}
	}
	if _, ok := payload["Error Message"]; ok {
		return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: ErrNotFound}
	}
	for _, k := range []string{"Note", "Information"} {
		if raw, ok := payload[k]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
		}
	}
	return payload, nil
}

func parseNum(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	return v
}

func (a *AlphaVantageSource) FetchQuote(ctx context.Context, symbol string) (model.Quote, error) {
	payload, err := a.query(ctx, symbol, url.Values{"function": {"GLOBAL_QUOTE"}})
	if err != nil {
		return model.Quote{}, err
	}

	var gq map[string]string
	if raw, ok := payload["Global Quote"]; ok {
		if err := json.Unmarshal(raw, &gq); err != nil {
			return model.Quote{}, &SourceError{Source: a.Name(), Symbol: symbol, Err: fmt.Errorf("decode quote: %w", err)}
		}
	}
	price := parseNum(gq["05. price"])
	if len(gq) == 0 || price <= 0 {
		return model.Quote{}, &SourceError{Source: a.Name(), Symbol: symbol, Err: ErrNotFound}
	}

	return model.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        parseNum(gq["09. change"]),
		ChangePercent: parseNum(gq["10. change percent"]),
		Volume:        parseNum(gq["06. volume"]),
		High:          parseNum(gq["03. high"]),
		Low:           parseNum(gq["04. low"]),
		Open:          parseNum(gq["02. open"]),
		PreviousClose: parseNum(gq["08. previous close"]),
		Source:        a.Name(),
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (a *AlphaVantageSource) FetchDailyBars(ctx context.Context, symbol string, days int) (model.Series, error) {
	// compact returns the latest 100 trading days.
	size := "compact"
	if days > 100 {
		size = "full"
	}
	payload, err := a.query(ctx, symbol, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"outputsize": {size},
	})
	if err != nil {
		return nil, err
	}

	var daily map[string]map[string]string
	if raw, ok := payload["Time Series (Daily)"]; ok {
		if err := json.Unmarshal(raw, &daily); err != nil {
			return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: fmt.Errorf("decode series: %w", err)}
		}
	}
	if len(daily) == 0 {
		return nil, &SourceError{Source: a.Name(), Symbol: symbol, Err: ErrNotFound}
	}

	bars := make(model.Series, 0, len(daily))
	for date, v := range daily {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   d,
			Open:   parseNum(v["1. open"]),
			High:   parseNum(v["2. high"]),
			Low:    parseNum(v["3. low"]),
			Close:  parseNum(v["4. close"]),
			Volume: parseNum(v["5. volume"]),
		})
	}
	return model.MergeBars(nil, bars), nil
}

package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Bar is one trading day's OHLCV record. Date is always a UTC midnight.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a date-ordered run of bars for one symbol, at most one bar per day.
type Series []Bar

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the price relationships a stored bar must satisfy.
func (b Bar) Validate() error {
	if b.Date.IsZero() {
		return errors.New("bar date is zero")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %s: prices must be positive", b.Date.Format("2006-01-02"))
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s: negative volume", b.Date.Format("2006-01-02"))
	}
	hiBody, loBody := b.Open, b.Close
	if loBody > hiBody {
		hiBody, loBody = loBody, hiBody
	}
	if b.High < hiBody || loBody < b.Low {
		return fmt.Errorf("bar %s: high/low outside open/close range", b.Date.Format("2006-01-02"))
	}
	return nil
}

// MergeBars upserts incoming into existing by calendar day; incoming wins on a
// clash. The result is a new slice sorted by date. Neither input is modified.
func MergeBars(existing, incoming Series) Series {
	byDay := make(map[time.Time]Bar, len(existing)+len(incoming))
	for _, b := range existing {
		b.Date = Day(b.Date)
		byDay[b.Date] = b
	}
	for _, b := range incoming {
		b.Date = Day(b.Date)
		byDay[b.Date] = b
	}
	merged := make(Series, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// Since returns the bars dated on or after cutoff's day.
func (s Series) Since(cutoff time.Time) Series {
	cutoff = Day(cutoff)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(cutoff) })
	return s[i:]
}

// Last returns the newest bar and false when the series is empty.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Quote is a point-in-time price snapshot from one source.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previous_close"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// FetchTracking records when a symbol was last fetched from upstream.
type FetchTracking struct {
	Symbol             string
	LastFetchTime      time.Time
	LastHistoricalDate time.Time // zero until bars have been stored
	FetchCount         int
}

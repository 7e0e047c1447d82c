package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, c float64) Bar {
	return Bar{Date: day(d), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
}

func TestBarValidate(t *testing.T) {
	tests := []struct {
		name    string
		bar     Bar
		wantErr bool
	}{
		{"valid", bar(2, 10), false},
		{"zero date", Bar{Open: 1, High: 1, Low: 1, Close: 1}, true},
		{"non-positive price", Bar{Date: day(2), Open: 0, High: 1, Low: 1, Close: 1}, true},
		{"negative volume", Bar{Date: day(2), Open: 1, High: 1, Low: 1, Close: 1, Volume: -1}, true},
		{"high below close", Bar{Date: day(2), Open: 10, High: 10.5, Low: 9, Close: 11}, true},
		{"low above open", Bar{Date: day(2), Open: 9, High: 11, Low: 9.5, Close: 10}, true},
		{"flat bar", Bar{Date: day(2), Open: 5, High: 5, Low: 5, Close: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	got := Day(time.Date(2026, 3, 2, 22, 30, 0, 0, est))
	assert.Equal(t, day(3), got)
}

func TestMergeBars(t *testing.T) {
	existing := Series{bar(2, 10), bar(3, 11), bar(4, 12)}
	incoming := Series{bar(5, 13), bar(3, 20)}
	incoming[0].Date = incoming[0].Date.Add(15 * time.Hour)

	merged := MergeBars(existing, incoming)
	require.Len(t, merged, 4)
	assert.Equal(t, []float64{10, 20, 12, 13}, merged.Closes())
	assert.Equal(t, day(5), merged[3].Date)

	// inputs untouched
	assert.Equal(t, 11.0, existing[1].Close)
	assert.Equal(t, day(5).Add(15*time.Hour), incoming[0].Date)

	assert.Equal(t, merged, MergeBars(merged, merged))
	assert.Empty(t, MergeBars(nil, nil))
}

func TestSeriesSinceAndLast(t *testing.T) {
	s := Series{bar(2, 10), bar(3, 11), bar(5, 12)}

	assert.Len(t, s.Since(day(3).Add(12*time.Hour)), 2)
	assert.Len(t, s.Since(day(1)), 3)
	assert.Empty(t, s.Since(day(6)))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 12.0, last.Close)

	_, ok = Series(nil).Last()
	assert.False(t, ok)
}

func TestSeriesColumns(t *testing.T) {
	s := Series{bar(2, 10), bar(3, 11)}
	assert.Equal(t, []float64{11, 12}, s.Highs())
	assert.Equal(t, []float64{9, 10}, s.Lows())
	assert.Equal(t, []float64{1000, 1000}, s.Volumes())
}

func TestIndicatorSetValues(t *testing.T) {
	v := IndicatorSet{RSI: 42, MACDSignal: 0.5, Support: 90}.Values()
	assert.Len(t, v, 12)
	assert.Equal(t, 42.0, v["rsi"])
	assert.Equal(t, 0.5, v["macd_signal"])
	assert.Equal(t, 90.0, v["support_level"])
}

func TestHoldOnError(t *testing.T) {
	rec := HoldOnError(ReasonAnalysisFailed, "boom")
	assert.Equal(t, ActionHold, rec.Action)
	assert.Equal(t, TierHold, rec.Tier)
	assert.Zero(t, rec.Confidence)
	assert.Equal(t, "boom", rec.Error)
	assert.Equal(t, ReasonAnalysisFailed, rec.Reasoning)
	assert.Empty(t, rec.FactorTexts())
}

func TestNeutralSentiment(t *testing.T) {
	s := NeutralSentiment()
	assert.Equal(t, SentimentNeutral, s.Overall)
	assert.Equal(t, 5.0, s.Score)
	assert.Zero(t, s.ArticlesAnalyzed)
}

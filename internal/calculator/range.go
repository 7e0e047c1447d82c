package calculator

import (
	"fmt"
	"math"

	"MarketAnalyst/internal/model"
)

// CalculateSupportResistance rolls a `window`-bar max over highs and min over
// lows, and returns the lowest rolling low and the highest rolling high.
func CalculateSupportResistance(bars model.Series, window int) (support, resistance float64, err error) {
	if window <= 0 || len(bars) < window {
		return 0, 0, fmt.Errorf("support/resistance over %d bars: %w", len(bars), ErrInsufficientData)
	}
	highs, lows := bars.Highs(), bars.Lows()
	resistance = math.Inf(-1)
	support = math.Inf(1)
	for end := window; end <= len(bars); end++ {
		if hi := maxOf(highs[end-window : end]); hi > resistance {
			resistance = hi
		}
		if lo := minOf(lows[end-window : end]); lo < support {
			support = lo
		}
	}
	return support, resistance, nil
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

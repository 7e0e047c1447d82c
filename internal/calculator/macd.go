package calculator

import "fmt"

// MACDResult holds the latest MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD computes MACD(12, 26) with a 9-period signal line.
// Needs at least 26 closes.
func CalculateMACD(closes []float64) (MACDResult, error) {
	if len(closes) < 26 {
		return MACDResult{}, fmt.Errorf("MACD over %d closes: %w", len(closes), ErrInsufficientData)
	}
	fast := EMASeries(closes, 12)
	slow := EMASeries(closes, 26)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := EMASeries(line, 9)

	last := len(closes) - 1
	return MACDResult{
		MACD:      line[last],
		Signal:    signal[last],
		Histogram: line[last] - signal[last],
	}, nil
}

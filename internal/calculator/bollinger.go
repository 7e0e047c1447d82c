package calculator

import (
	"errors"
	"fmt"
)

// CalculateBollinger returns the bands at k sample standard deviations around
// the SMA of the last `period` closes.
func CalculateBollinger(closes []float64, period int, k float64) (upper, middle, lower float64, err error) {
	if period <= 0 {
		return 0, 0, 0, errors.New("period must be positive")
	}
	if len(closes) < period {
		return 0, 0, 0, fmt.Errorf("bollinger(%d) over %d closes: %w", period, len(closes), ErrInsufficientData)
	}
	window := closes[len(closes)-period:]
	middle = mean(window)
	sd := sampleStdDev(window)
	return middle + k*sd, middle, middle - k*sd, nil
}

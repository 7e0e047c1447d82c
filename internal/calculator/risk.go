package calculator

import (
	"fmt"
	"math"

	"MarketAnalyst/internal/model"
)

const tradingDaysPerYear = 252

// CalculateVolatility returns the annualized sample standard deviation of
// daily percent returns. Needs at least 5 closes.
func CalculateVolatility(closes []float64) (float64, error) {
	if len(closes) < 5 {
		return 0, fmt.Errorf("volatility over %d closes: %w", len(closes), ErrInsufficientData)
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return sampleStdDev(returns) * math.Sqrt(tradingDaysPerYear), nil
}

// CalculateMaxDrawdown returns the deepest (price-peak)/peak seen across the
// closes; 0 or negative. Returns 0 for an empty series.
func CalculateMaxDrawdown(closes []float64) float64 {
	peak := 0.0
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// AssessRisk classifies volatility into a risk tier.
func AssessRisk(bars model.Series) model.RiskAssessment {
	closes := bars.Closes()
	out := model.RiskAssessment{Level: model.RiskUnknown, MaxDrawdown: CalculateMaxDrawdown(closes)}
	vol, err := CalculateVolatility(closes)
	if err != nil {
		return out
	}
	out.Volatility = vol
	switch {
	case vol > 0.4:
		out.Level = model.RiskHigh
	case vol > 0.2:
		out.Level = model.RiskMedium
	default:
		out.Level = model.RiskLow
	}
	return out
}

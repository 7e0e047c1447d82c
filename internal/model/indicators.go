package model

// Price-position labels.
const (
	PositionAbove = "above"
	PositionBelow = "below"

	SignalBullish = "bullish"
	SignalBearish = "bearish"

	BandOverbought = "overbought"
	BandOversold   = "oversold"
	BandNormal     = "normal"
)

// IndicatorSet holds the technical indicators derived from a series and the
// current price. It is never persisted.
type IndicatorSet struct {
	SMA5          float64  `json:"sma_5"`
	SMA10         float64  `json:"sma_10"`
	SMA20         float64  `json:"sma_20"`
	RSI           float64  `json:"rsi"`
	MACD          float64  `json:"macd"`
	MACDSignal    float64  `json:"macd_signal"`
	MACDHistogram float64  `json:"macd_histogram"`
	BBUpper       float64  `json:"bb_upper"`
	BBMiddle      float64  `json:"bb_middle"`
	BBLower       float64  `json:"bb_lower"`
	Support       float64  `json:"support_level"`
	Resistance    float64  `json:"resistance_level"`
	MAPosition    string   `json:"ma_position"`
	MASignal      string   `json:"ma_signal"`
	BBPosition    string   `json:"bb_position"`
	Signals       []string `json:"signals"`
}

// Values returns the numeric indicators keyed by name.
func (s IndicatorSet) Values() map[string]float64 {
	return map[string]float64{
		"sma_5":            s.SMA5,
		"sma_10":           s.SMA10,
		"sma_20":           s.SMA20,
		"rsi":              s.RSI,
		"macd":             s.MACD,
		"macd_signal":      s.MACDSignal,
		"macd_histogram":   s.MACDHistogram,
		"bb_upper":         s.BBUpper,
		"bb_middle":        s.BBMiddle,
		"bb_lower":         s.BBLower,
		"support_level":    s.Support,
		"resistance_level": s.Resistance,
	}
}

// Trend labels.
const (
	TrendBullish      = "bullish"
	TrendBearish      = "bearish"
	TrendSideways     = "sideways"
	TrendInsufficient = "insufficient_data"
)

// TrendAnalysis classifies recent price direction.
type TrendAnalysis struct {
	Trend            string  `json:"trend"`
	Strength         float64 `json:"strength"`
	ShortTermChange  float64 `json:"short_term_change"`
	MediumTermChange float64 `json:"medium_term_change"`
}

// Volume trend labels.
const (
	VolumeIncreasing = "increasing"
	VolumeDecreasing = "decreasing"
	VolumeNormal     = "normal"
	VolumeUnknown    = "unknown"
)

// VolumeAnalysis compares recent volume to the window average.
type VolumeAnalysis struct {
	Trend          string  `json:"volume_trend"`
	Ratio          float64 `json:"volume_ratio"`
	RecentAverage  float64 `json:"recent_avg_volume"`
	OverallAverage float64 `json:"overall_avg_volume"`
}

// Risk tiers.
const (
	RiskHigh    = "high"
	RiskMedium  = "medium"
	RiskLow     = "low"
	RiskUnknown = "unknown"
)

// RiskAssessment summarizes volatility and drawdown.
type RiskAssessment struct {
	Level       string  `json:"risk_level"`
	Volatility  float64 `json:"volatility"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

package calculator

import "MarketAnalyst/internal/model"

// Compute derives the full indicator set from bars and the current price.
// Indicators that need more history than is available fall back to neutral
// defaults instead of failing.
func Compute(bars model.Series, currentPrice float64) model.IndicatorSet {
	closes := bars.Closes()
	ind := model.IndicatorSet{}

	// Moving averages
	ind.SMA5 = smaOr(closes, 5, currentPrice)
	ind.SMA10 = smaOr(closes, 10, currentPrice)
	ind.SMA20 = smaOr(closes, 20, currentPrice)

	// RSI
	if rsi, err := CalculateRSI(closes, 14); err == nil {
		ind.RSI = rsi
	} else {
		ind.RSI = 50
	}

	// MACD; zero across the board when history is short
	if m, err := CalculateMACD(closes); err == nil {
		ind.MACD = m.MACD
		ind.MACDSignal = m.Signal
		ind.MACDHistogram = m.Histogram
	}

	// Bollinger Bands
	if up, mid, lo, err := CalculateBollinger(closes, 20, 2); err == nil {
		ind.BBUpper, ind.BBMiddle, ind.BBLower = up, mid, lo
	} else {
		ind.BBUpper = currentPrice * 1.02
		ind.BBMiddle = currentPrice
		ind.BBLower = currentPrice * 0.98
	}

	// Support / resistance
	if sup, res, err := CalculateSupportResistance(bars, 5); err == nil {
		ind.Support, ind.Resistance = sup, res
	} else {
		ind.Support = currentPrice * 0.95
		ind.Resistance = currentPrice * 1.05
	}

	ind.MAPosition, ind.MASignal, ind.BBPosition = ClassifyPricePosition(currentPrice, ind)
	ind.Signals = technicalSignals(ind)
	return ind
}

// ClassifyPricePosition places the price relative to the 20-day SMA and the
// Bollinger Bands.
func ClassifyPricePosition(price float64, ind model.IndicatorSet) (maPosition, maSignal, bbPosition string) {
	if price > ind.SMA20 {
		maPosition, maSignal = model.PositionAbove, model.SignalBullish
	} else {
		maPosition, maSignal = model.PositionBelow, model.SignalBearish
	}
	switch {
	case price > ind.BBUpper:
		bbPosition = model.BandOverbought
	case price < ind.BBLower:
		bbPosition = model.BandOversold
	default:
		bbPosition = model.BandNormal
	}
	return maPosition, maSignal, bbPosition
}

func technicalSignals(ind model.IndicatorSet) []string {
	var signals []string
	switch {
	case ind.RSI > 70:
		signals = append(signals, "RSI indicates overbought condition")
	case ind.RSI < 30:
		signals = append(signals, "RSI indicates oversold condition")
	}
	if ind.MACD > ind.MACDSignal {
		signals = append(signals, "MACD shows bullish momentum")
	} else {
		signals = append(signals, "MACD shows bearish momentum")
	}
	if ind.SMA5 > ind.SMA20 {
		signals = append(signals, "Short-term MA above long-term MA (bullish)")
	} else {
		signals = append(signals, "Short-term MA below long-term MA (bearish)")
	}
	return signals
}

func smaOr(closes []float64, period int, fallback float64) float64 {
	if v, err := CalculateSMA(closes, period); err == nil {
		return v
	}
	return fallback
}

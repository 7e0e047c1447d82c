package strategy

import "MarketAnalyst/internal/model"

// rule inspects the inputs and returns the factors it contributes, if any.
type rule func(in Inputs) []model.Factor

// defaultRules is the scoring table, in the order factors are reported.
var defaultRules = []rule{
	scoreRSI,
	scoreMACD,
	scoreTrend,
	scoreSentiment,
	scoreRisk,
}

func scoreRSI(in Inputs) []model.Factor {
	switch rsi := in.Indicators.RSI; {
	case rsi < 30:
		return []model.Factor{{Text: "RSI oversold (bullish)", Delta: 2}}
	case rsi > 70:
		return []model.Factor{{Text: "RSI overbought (bearish)", Delta: -2}}
	}
	return nil
}

// scoreMACD always contributes: the line is either above its signal or not.
func scoreMACD(in Inputs) []model.Factor {
	if in.Indicators.MACD > in.Indicators.MACDSignal {
		return []model.Factor{{Text: "MACD bullish crossover", Delta: 1}}
	}
	return []model.Factor{{Text: "MACD bearish crossover", Delta: -1}}
}

func scoreTrend(in Inputs) []model.Factor {
	switch in.Trend.Trend {
	case model.TrendBullish:
		return []model.Factor{{Text: "Strong bullish trend", Delta: 2}}
	case model.TrendBearish:
		return []model.Factor{{Text: "Strong bearish trend", Delta: -2}}
	}
	return nil
}

func scoreSentiment(in Inputs) []model.Factor {
	switch in.Sentiment.Overall {
	case model.SentimentPositive:
		return []model.Factor{{Text: "Positive news sentiment", Delta: 1}}
	case model.SentimentNegative:
		return []model.Factor{{Text: "Negative news sentiment", Delta: -1}}
	}
	return nil
}

func scoreRisk(in Inputs) []model.Factor {
	if in.Risk.Level == model.RiskHigh {
		return []model.Factor{{Text: "High volatility risk", Delta: -1}}
	}
	return nil
}

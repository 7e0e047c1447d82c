package calculator

import (
	"math"

	"MarketAnalyst/internal/model"
)

// AnalyzeTrend classifies direction from the percent change between the
// newest close and the close four bars earlier (the fifth-newest bar).
// The medium-term change uses the tenth-newest bar when available.
func AnalyzeTrend(bars model.Series) model.TrendAnalysis {
	n := len(bars)
	if n < 5 {
		return model.TrendAnalysis{Trend: model.TrendInsufficient}
	}
	last := bars[n-1].Close
	short := pctChange(bars[n-5].Close, last)
	medium := short
	if n >= 10 {
		medium = pctChange(bars[n-10].Close, last)
	}

	trend := model.TrendSideways
	switch {
	case short > 2:
		trend = model.TrendBullish
	case short < -2:
		trend = model.TrendBearish
	}
	return model.TrendAnalysis{
		Trend:            trend,
		Strength:         math.Min(math.Abs(short)/5, 1.0),
		ShortTermChange:  short,
		MediumTermChange: medium,
	}
}

// AnalyzeVolume compares the mean volume of the last five bars to the mean
// over the whole series.
func AnalyzeVolume(bars model.Series) model.VolumeAnalysis {
	if len(bars) < 5 {
		return model.VolumeAnalysis{Trend: model.VolumeUnknown}
	}
	volumes := bars.Volumes()
	recent := mean(volumes[len(volumes)-5:])
	overall := mean(volumes)
	ratio := 1.0
	if overall > 0 {
		ratio = recent / overall
	}

	trend := model.VolumeNormal
	switch {
	case ratio > 1.5:
		trend = model.VolumeIncreasing
	case ratio < 0.7:
		trend = model.VolumeDecreasing
	}
	return model.VolumeAnalysis{
		Trend:          trend,
		Ratio:          ratio,
		RecentAverage:  recent,
		OverallAverage: overall,
	}
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// Package news fetches headlines for a symbol and scores their tone.
package news

import (
	"math"
	"strings"

	"MarketAnalyst/internal/model"
)

var positiveKeywords = []string{
	"profit", "growth", "increase", "rise", "gain", "bull", "up", "surge",
	"rally", "boost", "positive", "strong", "beat", "exceed", "outperform",
	"upgrade", "buy", "recommend", "bullish", "optimistic",
}

var negativeKeywords = []string{
	"loss", "decline", "fall", "drop", "bear", "down", "crash", "plunge",
	"negative", "weak", "miss", "underperform", "downgrade", "sell",
	"bearish", "pessimistic", "warning", "concern", "risk",
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// Classify scores one article as positive-keyword hits minus negative-keyword
// hits over its lower-cased title and description. Each keyword counts at
// most once, and matches are plain substrings.
func Classify(a model.Article) (label string, raw int) {
	text := strings.ToLower(a.Title + " " + a.Description)
	raw = countMatches(text, positiveKeywords) - countMatches(text, negativeKeywords)
	switch {
	case raw > 0:
		return model.SentimentPositive, raw
	case raw < 0:
		return model.SentimentNegative, raw
	default:
		return model.SentimentNeutral, raw
	}
}

// Summarize averages the sign of each article's score. An empty list is
// neutral with score 5 and zero confidence.
func Summarize(articles []model.Article) model.SentimentSummary {
	if len(articles) == 0 {
		return model.NeutralSentiment()
	}

	var sum model.SentimentSummary
	total := 0
	for _, a := range articles {
		label, _ := Classify(a)
		switch label {
		case model.SentimentPositive:
			sum.PositiveCount++
			total++
		case model.SentimentNegative:
			sum.NegativeCount++
			total--
		default:
			sum.NeutralCount++
		}
	}

	avg := float64(total) / float64(len(articles))
	switch {
	case avg > 0.1:
		sum.Overall = model.SentimentPositive
	case avg < -0.1:
		sum.Overall = model.SentimentNegative
	default:
		sum.Overall = model.SentimentNeutral
	}
	sum.Score = math.Max(0, math.Min(10, (avg+1)*5))
	sum.Confidence = math.Abs(avg)
	sum.ArticlesAnalyzed = len(articles)
	return sum
}

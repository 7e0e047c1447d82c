// Package strategy turns indicators, trend, risk and sentiment into a scored
// BUY/SELL/HOLD recommendation.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"MarketAnalyst/internal/model"
)

// Inputs is everything the engine scores.
type Inputs struct {
	Indicators model.IndicatorSet
	Trend      model.TrendAnalysis
	Volume     model.VolumeAnalysis
	Risk       model.RiskAssessment
	Sentiment  model.SentimentSummary
}

// Tiers maps total scores to recommendations, highest first. A score matches
// the first row whose bound it satisfies; the hold row catches the rest.
var Tiers = []struct {
	Tier    model.Tier
	Action  model.Action
	Matches func(score int) bool
	// Divisor and Cap shape confidence as min(|score|/Divisor*100, Cap).
	// A zero Divisor means fixed confidence Cap.
	Divisor float64
	Cap     float64
}{
	{model.TierStrongBuy, model.ActionBuy, func(s int) bool { return s >= 3 }, 5, 95},
	{model.TierBuy, model.ActionBuy, func(s int) bool { return s >= 1 }, 3, 80},
	{model.TierStrongSell, model.ActionSell, func(s int) bool { return s <= -3 }, 5, 95},
	{model.TierSell, model.ActionSell, func(s int) bool { return s <= -1 }, 3, 80},
	{model.TierHold, model.ActionHold, func(int) bool { return true }, 0, 60},
}

var reasoningTemplates = map[model.Tier]string{
	model.TierStrongBuy:  "Strong technical indicators and positive sentiment suggest this is an excellent buying opportunity.",
	model.TierBuy:        "Multiple positive indicators suggest this stock has good upward potential.",
	model.TierHold:       "Mixed signals suggest maintaining current position and monitoring closely.",
	model.TierSell:       "Several negative indicators suggest it may be time to consider selling.",
	model.TierStrongSell: "Strong negative indicators suggest immediate selling may be prudent.",
}

// Engine scores inputs against an ordered rule set.
type Engine struct {
	rules []rule
}

func NewEngine() *Engine {
	return &Engine{rules: defaultRules}
}

var defaultEngine = NewEngine()

// Score evaluates in with the standard scoring table.
func Score(in Inputs) model.Recommendation {
	return defaultEngine.Score(in)
}

// Score never panics: any fault during scoring yields a HOLD recommendation
// with zero confidence and the fault in Error.
func (e *Engine) Score(in Inputs) (rec model.Recommendation) {
	defer func() {
		if r := recover(); r != nil {
			rec = model.HoldOnError(model.ReasonAnalysisFailed, fmt.Sprintf("scoring failed: %v", r))
		}
	}()

	if err := checkFinite(in.Indicators); err != nil {
		return model.HoldOnError(model.ReasonAnalysisFailed, err.Error())
	}

	var factors []model.Factor
	total := 0
	for _, r := range e.rules {
		for _, f := range r(in) {
			factors = append(factors, f)
			total += f.Delta
		}
	}

	rec = classify(total)
	rec.Score = total
	rec.Factors = factors
	rec.Reasoning = reasoning(rec.Tier, factors)
	return rec
}

func classify(score int) model.Recommendation {
	for _, t := range Tiers {
		if !t.Matches(score) {
			continue
		}
		conf := t.Cap
		if t.Divisor > 0 {
			conf = math.Min(math.Abs(float64(score))/t.Divisor*100, t.Cap)
		}
		return model.Recommendation{
			Action:     t.Action,
			Tier:       t.Tier,
			Confidence: math.Round(conf*10) / 10,
		}
	}
	panic(fmt.Sprintf("no tier for score %d", score))
}

func reasoning(tier model.Tier, factors []model.Factor) string {
	text := reasoningTemplates[tier]
	if len(factors) == 0 {
		return text
	}
	n := len(factors)
	if n > 3 {
		n = 3
	}
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		texts[i] = factors[i].Text
	}
	return text + " Key factors include: " + strings.Join(texts, ", ")
}

func checkFinite(ind model.IndicatorSet) error {
	for name, v := range ind.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("indicator %s is not finite", name)
		}
	}
	return nil
}

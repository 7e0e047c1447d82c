package model

// Action is the coarse trading instruction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Tier is the graded recommendation.
type Tier string

const (
	TierStrongBuy  Tier = "strong_buy"
	TierBuy        Tier = "buy"
	TierHold       Tier = "hold"
	TierSell       Tier = "sell"
	TierStrongSell Tier = "strong_sell"
)

// Factor is one signed contribution to a recommendation score.
type Factor struct {
	Text  string `json:"text"`
	Delta int    `json:"delta"`
}

// Recommendation is the final output of the strategy engine.
type Recommendation struct {
	Action     Action   `json:"action"`
	Tier       Tier     `json:"recommendation"`
	Confidence float64  `json:"confidence"` // 0 ~ 95
	Score      int      `json:"score"`
	Factors    []Factor `json:"factors"`
	Reasoning  string   `json:"reasoning"`
	Error      string   `json:"error,omitempty"`
}

// FactorTexts returns the factor descriptions in scoring order.
func (r Recommendation) FactorTexts() []string {
	out := make([]string, len(r.Factors))
	for i, f := range r.Factors {
		out[i] = f.Text
	}
	return out
}

// Reasoning texts for recommendations that carry an Error.
const (
	ReasonInsufficientData = "Unable to analyze due to insufficient data"
	ReasonAnalysisFailed   = "Analysis failed; holding until signals can be computed"
)

// HoldOnError is the recommendation returned when no analysis was possible.
// reason explains why, typically ReasonInsufficientData or ReasonAnalysisFailed.
func HoldOnError(reason, msg string) Recommendation {
	return Recommendation{
		Action:     ActionHold,
		Tier:       TierHold,
		Confidence: 0,
		Reasoning:  reason,
		Error:      msg,
	}
}

package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"MarketAnalyst/internal/model"
)

// Summary renders a short plain-language verdict for a report.
func Summary(rep model.Report) string {
	if !rep.Valid {
		return fmt.Sprintf("⚠️ Unable to analyze %s: %s", rep.Symbol, rep.Error)
	}

	rec := rep.Recommendation
	conf := strconv.FormatFloat(rec.Confidence, 'f', -1, 64)

	var b strings.Builder
	switch rec.Action {
	case model.ActionBuy:
		fmt.Fprintf(&b, "💹 %s shows strong buying signals with %s%% confidence. ", rep.Symbol, conf)
	case model.ActionSell:
		fmt.Fprintf(&b, "📉 %s indicates selling pressure with %s%% confidence. ", rep.Symbol, conf)
	default:
		fmt.Fprintf(&b, "⚖️ %s suggests holding position with mixed signals. ", rep.Symbol)
	}
	fmt.Fprintf(&b, "The stock is in a %s trend with %s news sentiment. ",
		strings.ReplaceAll(rep.Trend.Trend, "_", " "), rep.Sentiment.Overall)

	switch {
	case rec.Confidence > 80:
		b.WriteString("High confidence in this analysis.")
	case rec.Confidence < 60:
		b.WriteString("Lower confidence - proceed with caution.")
	default:
		b.WriteString("Moderate confidence in this recommendation.")
	}
	if rep.PriceSource == model.PriceSourceCache || rep.PriceSource == model.PriceSourceLastClose {
		b.WriteString(" Live price unavailable; using last known price.")
	}
	if rep.StaleHistory {
		b.WriteString(" Price history could not be refreshed; using cached data.")
	}
	return b.String()
}

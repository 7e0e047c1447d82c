package notifier

import (
	"fmt"
	"html"
	"strings"

	"MarketAnalyst/internal/model"
)

var actionIcons = map[model.Action]string{
	model.ActionBuy:  "🟢",
	model.ActionSell: "🔴",
	model.ActionHold: "🟡",
}

// FormatReport renders one analysis report as a Telegram HTML message.
func FormatReport(rep model.Report) string {
	var b strings.Builder
	sym := html.EscapeString(rep.Symbol)

	if !rep.Valid {
		b.WriteString(fmt.Sprintf("❌ <b>%s</b> | %s\n\n", sym, rep.Timestamp.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Analysis unavailable: %s\n", html.EscapeString(rep.Error)))
		return b.String()
	}

	rec := rep.Recommendation
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", sym, rep.Timestamp.Format("2006-01-02 15:04")))

	b.WriteString(fmt.Sprintf("Price: %.2f (%s)", rep.CurrentPrice, html.EscapeString(rep.PriceSource)))
	if rep.Degraded {
		b.WriteString(" ⚠️")
	}
	b.WriteString("\n")

	ind := rep.Indicators
	b.WriteString(fmt.Sprintf("SMA5/10/20: %.2f / %.2f / %.2f\n", ind.SMA5, ind.SMA10, ind.SMA20))
	b.WriteString(fmt.Sprintf("RSI(14): %.1f | MACD: %.3f (signal %.3f)\n", ind.RSI, ind.MACD, ind.MACDSignal))
	b.WriteString(fmt.Sprintf("Bollinger: %.2f / %.2f / %.2f (%s)\n", ind.BBLower, ind.BBMiddle, ind.BBUpper, ind.BBPosition))
	b.WriteString(fmt.Sprintf("Support %.2f | Resistance %.2f\n\n", ind.Support, ind.Resistance))

	b.WriteString(fmt.Sprintf("Trend: %s (5d %+.2f%%, strength %.2f)\n", rep.Trend.Trend, rep.Trend.ShortTermChange, rep.Trend.Strength))
	b.WriteString(fmt.Sprintf("Volume: %s (x%.2f)\n", rep.Volume.Trend, rep.Volume.Ratio))
	b.WriteString(fmt.Sprintf("Risk: %s (vol %.1f%%, max DD %.1f%%)\n", rep.Risk.Level, rep.Risk.Volatility*100, rep.Risk.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("News: %s (%.1f/10, %d articles)\n\n",
		rep.Sentiment.Overall, rep.Sentiment.Score, rep.Sentiment.ArticlesAnalyzed))

	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s) | score %+d | confidence %.1f%%\n",
		actionIcons[rec.Action], rec.Action, strings.ReplaceAll(string(rec.Tier), "_", " "), rec.Score, rec.Confidence))
	for _, f := range rec.Factors {
		b.WriteString(fmt.Sprintf("  %+d %s\n", f.Delta, html.EscapeString(f.Text)))
	}
	if rep.Summary != "" {
		b.WriteString("\n" + html.EscapeString(rep.Summary) + "\n")
	}
	return b.String()
}

// FormatDigest renders a one-line-per-symbol overview of several reports.
func FormatDigest(reports []model.Report) string {
	var b strings.Builder
	b.WriteString("📋 <b>Watchlist</b>\n\n")
	for _, rep := range reports {
		sym := html.EscapeString(rep.Symbol)
		if !rep.Valid {
			b.WriteString(fmt.Sprintf("❌ %s: unavailable\n", sym))
			continue
		}
		rec := rep.Recommendation
		b.WriteString(fmt.Sprintf("%s %s %.2f  %s %+d (%.1f%%)\n",
			actionIcons[rec.Action], sym, rep.CurrentPrice, rec.Action, rec.Score, rec.Confidence))
	}
	return b.String()
}

// FormatMarketSentiment renders the overall market news mood as one line.
func FormatMarketSentiment(s model.SentimentSummary) string {
	return fmt.Sprintf("📰 Market news: %s (%.1f/10, %d articles)\n", s.Overall, s.Score, s.ArticlesAnalyzed)
}

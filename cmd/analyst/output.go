package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"MarketAnalyst/internal/cache"
	"MarketAnalyst/internal/model"
	"MarketAnalyst/internal/notifier"
	"MarketAnalyst/internal/recorder"
)

func printReports(w io.Writer, reports []model.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, rep := range reports {
		if _, err := fmt.Fprintln(w, notifier.FormatReport(rep)); err != nil {
			return err
		}
	}
	return nil
}

func printStats(ctx context.Context, w io.Writer, store cache.Cache) error {
	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "quotes: %d across %d symbols\n", st.TotalQuotes, st.QuoteSymbols)
	for _, c := range st.Coverage {
		fmt.Fprintf(w, "%-8s %4d bars  %s .. %s\n", c.Symbol, c.Bars,
			c.FirstDate.Format("2006-01-02"), c.LastDate.Format("2006-01-02"))
	}
	for _, tr := range st.Tracking {
		fmt.Fprintf(w, "%-8s fetched %d times, last %s\n", tr.Symbol, tr.FetchCount,
			tr.LastFetchTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printHistory(ctx context.Context, w io.Writer, hist recorder.Recorder, symbol string, limit int) error {
	recs, err := hist.RecentReports(ctx, strings.ToUpper(strings.TrimSpace(symbol)), limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintf(w, "no stored reports for %s\n", strings.ToUpper(symbol))
		return err
	}
	for _, r := range recs {
		line := fmt.Sprintf("%s  %-4s %-11s score %+d  conf %.1f%%  price %.2f",
			r.Timestamp.Format("2006-01-02 15:04"), r.Action, r.Tier, r.Score, r.Confidence, r.Price)
		if !r.Valid {
			line = fmt.Sprintf("%s  invalid: %s", r.Timestamp.Format("2006-01-02 15:04"), r.Error)
		} else if r.Degraded {
			line += "  (degraded)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Package scheduler runs the periodic refresh, analysis and cleanup jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MarketAnalyst/internal/collector"
	"MarketAnalyst/internal/model"
	"MarketAnalyst/internal/news"
	"MarketAnalyst/internal/notifier"
)

// Refresher pre-warms the cache for a watchlist.
type Refresher interface {
	Refresh(ctx context.Context, symbols []string, lookbackDays int, force bool) collector.RefreshSummary
}

// ReportRunner produces one report per symbol.
type ReportRunner interface {
	AnalyzeMany(ctx context.Context, symbols []string) []model.Report
}

// Purger deletes quotes older than a cutoff.
type Purger interface {
	PurgeQuotes(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ReportSink stores produced reports.
type ReportSink interface {
	RecordReport(ctx context.Context, rep model.Report) error
}

// MarketNews supplies general market headlines.
type MarketNews interface {
	FetchMarketNews(ctx context.Context, days int) ([]model.Article, error)
}

// Jobs is the watchlist and retention the scheduled tasks operate on.
type Jobs struct {
	Symbols          []string
	LookbackDays     int
	NewsDays         int
	QuoteRetain      time.Duration
	TradingHoursOnly bool // skip refreshes outside the regular US session
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Analyzer  ReportRunner
	Purger    Purger
	Sender    Sender     // nil: reports are only logged
	History   ReportSink // nil: reports are not stored
	Market    MarketNews // nil: digest carries no market sentiment
	Jobs      Jobs
	Ctx       context.Context

	log *zap.Logger
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, ref Refresher, an ReportRunner, pg Purger, snd Sender, jobs Jobs, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Refresher: ref,
		Analyzer:  an,
		Purger:    pg,
		Sender:    snd,
		Jobs:      jobs,
		Ctx:       ctx,
		log:       log,
		now:       time.Now,
	}
}

// RegisterAll registers the refresh, analysis and cleanup tasks. An empty
// expression leaves that task unscheduled.
func (s *Scheduler) RegisterAll(refreshCron, analysisCron, cleanupCron string) error {
	tasks := []struct {
		name string
		spec string
		fn   func()
	}{
		{"refresh", refreshCron, s.RunRefreshNow},
		{"analysis", analysisCron, s.RunAnalysisNow},
		{"cleanup", cleanupCron, s.RunCleanupNow},
	}
	for _, t := range tasks {
		if t.spec == "" {
			continue
		}
		if _, err := s.Cron.AddFunc(t.spec, t.fn); err != nil {
			return fmt.Errorf("register %s task: %w", t.name, err)
		}
		s.log.Info("task registered", zap.String("task", t.name), zap.String("cron", t.spec))
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunRefreshNow refreshes every watched symbol, honouring the fetch interval.
func (s *Scheduler) RunRefreshNow() {
	if s.Refresher == nil {
		return
	}
	if s.Jobs.TradingHoursOnly && !MarketOpen(s.now()) {
		s.log.Debug("refresh skipped outside trading hours", zap.String("session", MarketSession(s.now())))
		return
	}
	sum := s.Refresher.Refresh(s.Ctx, s.Jobs.Symbols, s.Jobs.LookbackDays, false)
	for sym, err := range sum.Failed {
		s.log.Warn("refresh failed", zap.String("symbol", sym), zap.Error(err))
	}
}

// RunAnalysisNow analyzes the watchlist and delivers the reports.
func (s *Scheduler) RunAnalysisNow() {
	s.log.Info("running analysis", zap.Strings("symbols", s.Jobs.Symbols))
	reports := s.Analyzer.AnalyzeMany(s.Ctx, s.Jobs.Symbols)

	for _, rep := range reports {
		s.log.Info("analysis complete",
			zap.String("symbol", rep.Symbol),
			zap.Bool("valid", rep.Valid),
			zap.Bool("degraded", rep.Degraded),
			zap.String("action", string(rep.Recommendation.Action)),
			zap.Int("score", rep.Recommendation.Score),
			zap.Float64("confidence", rep.Recommendation.Confidence))
		if s.History != nil {
			if err := s.History.RecordReport(s.Ctx, rep); err != nil {
				s.log.Error("record report", zap.String("symbol", rep.Symbol), zap.Error(err))
			}
		}
		s.trySend(notifier.FormatReport(rep))
	}
	if len(reports) > 1 {
		digest := notifier.FormatDigest(reports)
		if market, ok := s.marketSentiment(); ok {
			digest += "\n" + notifier.FormatMarketSentiment(market)
		}
		s.trySend(digest)
	}
}

// RunCleanupNow purges quotes older than the retention window.
func (s *Scheduler) RunCleanupNow() {
	if s.Purger == nil || s.Jobs.QuoteRetain <= 0 {
		return
	}
	cutoff := s.now().Add(-s.Jobs.QuoteRetain)
	n, err := s.Purger.PurgeQuotes(s.Ctx, cutoff)
	if err != nil {
		s.log.Error("purge quotes", zap.Error(err))
		return
	}
	s.log.Info("quotes purged", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
}

func (s *Scheduler) marketSentiment() (model.SentimentSummary, bool) {
	if s.Market == nil {
		return model.SentimentSummary{}, false
	}
	articles, err := s.Market.FetchMarketNews(s.Ctx, s.Jobs.NewsDays)
	if err != nil {
		s.log.Warn("market news unavailable", zap.Error(err))
		return model.SentimentSummary{}, false
	}
	return news.Summarize(articles), true
}

func (s *Scheduler) trySend(text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}

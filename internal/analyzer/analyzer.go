// Package analyzer runs the per-symbol analysis pipeline: history, price,
// indicators, sentiment, score and summary.
package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"MarketAnalyst/internal/calculator"
	"MarketAnalyst/internal/model"
	"MarketAnalyst/internal/news"
	"MarketAnalyst/internal/strategy"
)

const (
	DefaultLookbackDays = 90
	DefaultNewsDays     = 7
)

// MarketData supplies history and live quotes. GetHistoryStatus reports
// whether the bars were served from cache after an upstream failure.
type MarketData interface {
	GetHistoryStatus(ctx context.Context, symbol string, lookbackDays int, forceRefresh bool) (model.Series, bool, error)
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// QuoteStore supplies the last recorded quote when no live quote is available.
type QuoteStore interface {
	LatestQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// Options configures an Analyzer. Zero values select defaults; a nil News
// source means sentiment is always neutral.
type Options struct {
	Quotes       QuoteStore
	News         news.Source
	LookbackDays int
	NewsDays     int
	Logger       *zap.Logger
	Tracer       trace.Tracer
}

// Analyzer produces reports. It holds no per-run state and is safe for
// concurrent use if its collaborators are.
type Analyzer struct {
	data     MarketData
	quotes   QuoteStore
	news     news.Source
	lookback int
	newsDays int
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(data MarketData, opts Options) *Analyzer {
	a := &Analyzer{
		data:     data,
		quotes:   opts.Quotes,
		news:     opts.News,
		lookback: opts.LookbackDays,
		newsDays: opts.NewsDays,
		log:      opts.Logger,
		tracer:   opts.Tracer,
		now:      time.Now,
	}
	if a.lookback <= 0 {
		a.lookback = DefaultLookbackDays
	}
	if a.newsDays <= 0 {
		a.newsDays = DefaultNewsDays
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("MarketAnalyst/internal/analyzer")
	}
	return a
}

// Analyze fetches news from the configured source and analyzes symbol. It
// never fails: problems are reported through the report's Valid, Degraded
// and Error fields.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) model.Report {
	return a.run(ctx, symbol, nil, true)
}

// AnalyzeWithArticles analyzes symbol using the given articles instead of
// querying the news source.
func (a *Analyzer) AnalyzeWithArticles(ctx context.Context, symbol string, articles []model.Article) model.Report {
	return a.run(ctx, symbol, articles, false)
}

// AnalyzeMany analyzes symbols one after another, stopping early if ctx is
// cancelled.
func (a *Analyzer) AnalyzeMany(ctx context.Context, symbols []string) []model.Report {
	reports := make([]model.Report, 0, len(symbols))
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, a.Analyze(ctx, s))
	}
	return reports
}

func (a *Analyzer) run(ctx context.Context, symbol string, articles []model.Article, loadNews bool) model.Report {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	ctx, span := a.tracer.Start(ctx, "analyzer.Analyze",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	now := a.now().UTC()
	log := a.log.With(zap.String("symbol", symbol))

	bars, stale, err := a.data.GetHistoryStatus(ctx, symbol, a.lookback, false)
	if err == nil && len(bars) == 0 {
		err = errors.New("no historical data")
	}
	if err != nil {
		log.Warn("analysis aborted, history unavailable", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "history unavailable")
		return errorReport(symbol, now, err)
	}

	rep := model.Report{
		Symbol:       symbol,
		BarsAnalyzed: len(bars),
		Timestamp:    now,
		Valid:        true,
		StaleHistory: stale,
	}
	if stale {
		log.Warn("analyzing cached history after failed fetch", zap.Int("bars", len(bars)))
	}
	var priceDegraded bool
	rep.CurrentPrice, rep.PriceSource, priceDegraded = a.currentPrice(ctx, symbol, bars)
	rep.Degraded = stale || priceDegraded

	rep.Indicators = calculator.Compute(bars, rep.CurrentPrice)
	rep.Trend = calculator.AnalyzeTrend(bars)
	rep.Volume = calculator.AnalyzeVolume(bars)
	rep.Risk = calculator.AssessRisk(bars)

	if loadNews {
		articles = a.fetchNews(ctx, symbol)
	}
	rep.Sentiment = news.Summarize(articles)

	rep.Recommendation = strategy.Score(strategy.Inputs{
		Indicators: rep.Indicators,
		Trend:      rep.Trend,
		Volume:     rep.Volume,
		Risk:       rep.Risk,
		Sentiment:  rep.Sentiment,
	})
	if rep.Recommendation.Error != "" {
		log.Error("scoring fault", zap.String("error", rep.Recommendation.Error))
		rep.Error = rep.Recommendation.Error
	}
	rep.Summary = Summary(rep)

	span.SetAttributes(
		attribute.String("action", string(rep.Recommendation.Action)),
		attribute.Int("score", rep.Recommendation.Score),
		attribute.Int("bars", rep.BarsAnalyzed),
		attribute.Bool("degraded", rep.Degraded),
		attribute.Bool("stale_history", rep.StaleHistory),
	)
	log.Info("analysis complete",
		zap.String("action", string(rep.Recommendation.Action)),
		zap.Int("score", rep.Recommendation.Score),
		zap.Float64("confidence", rep.Recommendation.Confidence),
		zap.Bool("degraded", rep.Degraded))
	return rep
}

// currentPrice prefers a live quote, then the last recorded quote, then the
// newest close. Anything but a live quote marks the result degraded.
func (a *Analyzer) currentPrice(ctx context.Context, symbol string, bars model.Series) (float64, string, bool) {
	q, err := a.data.GetQuote(ctx, symbol)
	if err == nil && q.Price > 0 {
		return q.Price, q.Source, false
	}
	a.log.Warn("live quote unavailable", zap.String("symbol", symbol), zap.Error(err))

	if a.quotes != nil {
		if cq, err := a.quotes.LatestQuote(ctx, symbol); err == nil && cq != nil && cq.Price > 0 {
			return cq.Price, model.PriceSourceCache, true
		}
	}
	last, _ := bars.Last()
	return last.Close, model.PriceSourceLastClose, true
}

func (a *Analyzer) fetchNews(ctx context.Context, symbol string) []model.Article {
	if a.news == nil {
		return nil
	}
	ctx, span := a.tracer.Start(ctx, "analyzer.FetchNews")
	defer span.End()

	articles, err := a.news.FetchArticles(ctx, symbol, a.newsDays)
	if err != nil {
		a.log.Warn("news unavailable, using neutral sentiment", zap.String("symbol", symbol), zap.Error(err))
		span.RecordError(err)
		return nil
	}
	span.SetAttributes(attribute.Int("articles", len(articles)))
	return articles
}

func errorReport(symbol string, now time.Time, err error) model.Report {
	rep := model.Report{
		Symbol:         symbol,
		Timestamp:      now,
		Trend:          model.TrendAnalysis{Trend: model.TrendInsufficient},
		Volume:         model.VolumeAnalysis{Trend: model.VolumeUnknown},
		Risk:           model.RiskAssessment{Level: model.RiskUnknown},
		Sentiment:      model.NeutralSentiment(),
		Recommendation: model.HoldOnError(model.ReasonInsufficientData, err.Error()),
		Valid:          false,
		Error:          err.Error(),
	}
	rep.Summary = Summary(rep)
	return rep
}

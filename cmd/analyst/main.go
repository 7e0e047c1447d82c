package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"MarketAnalyst/internal/analyzer"
	"MarketAnalyst/internal/cache"
	"MarketAnalyst/internal/collector"
	"MarketAnalyst/internal/config"
	"MarketAnalyst/internal/logging"
	"MarketAnalyst/internal/news"
	"MarketAnalyst/internal/notifier"
	"MarketAnalyst/internal/recorder"
	"MarketAnalyst/internal/scheduler"
	"MarketAnalyst/internal/tracing"
)

const version = "0.1.0"

func main() {
	once := flag.Bool("once", false, "analyze the watchlist once, print the reports and exit")
	symbols := flag.String("symbols", "", "comma-separated symbols overriding analysis.symbols")
	asJSON := flag.Bool("json", false, "with -once, print reports as JSON")
	stats := flag.Bool("stats", false, "print cache statistics and exit")
	history := flag.String("history", "", "print stored reports for a symbol and exit")
	limit := flag.Int("limit", 10, "with -history, number of reports to print")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *symbols != "" {
		cfg.Analysis.Symbols = splitSymbols(*symbols)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("MarketAnalyst starting", zap.String("version", version))

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.Enabled, version)
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("shutdown tracing", zap.Error(err))
		}
	}()

	store, err := openCache(cfg, log)
	if err != nil {
		log.Fatal("init cache", zap.Error(err))
	}
	defer store.Close()

	hist := openHistory(cfg, log)
	defer hist.Close()

	switch {
	case *stats:
		if err := printStats(ctx, os.Stdout, store); err != nil {
			log.Fatal("print stats", zap.Error(err))
		}
		return
	case *history != "":
		if err := printHistory(ctx, os.Stdout, hist, *history, *limit); err != nil {
			log.Fatal("print history", zap.Error(err))
		}
		return
	}

	sources := buildSources(cfg)
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	log.Info("data sources", zap.Strings("sources", names))

	gw := collector.NewGateway(store, sources, collector.GatewayConfig{
		RateLimitDelay: cfg.DataSource.RateLimitDelay,
		MaxRetries:     cfg.DataSource.MaxRetries,
		MaxAge:         cfg.Cache.MaxAge,
		FetchInterval:  cfg.Cache.FetchInterval,
	}, log.Named("gateway"))

	opts := analyzer.Options{
		Quotes:       store,
		LookbackDays: cfg.Analysis.LookbackDays,
		NewsDays:     cfg.Analysis.NewsDays,
		Logger:       log.Named("analyzer"),
	}
	var newsSrc *news.GoogleNewsSource
	if cfg.NewsOn() {
		newsSrc = news.NewGoogleNewsSource(cfg.DataSource.NewsBaseURL, cfg.DataSource.RequestTimeout, log.Named("news"))
		opts.News = newsSrc
	}
	an := analyzer.New(gw, opts)

	if *once {
		if err := printReports(os.Stdout, an.AnalyzeMany(ctx, cfg.Analysis.Symbols), *asJSON); err != nil {
			log.Fatal("print reports", zap.Error(err))
		}
		return
	}

	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		sender = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log.Named("telegram"))
	} else {
		log.Info("telegram not configured, reports will only be logged")
	}

	sched := scheduler.NewScheduler(ctx, gw, an, store, sender, scheduler.Jobs{
		Symbols:          cfg.Analysis.Symbols,
		LookbackDays:     cfg.Analysis.LookbackDays,
		NewsDays:         cfg.Analysis.NewsDays,
		QuoteRetain:      cfg.Cache.QuoteRetain,
		TradingHoursOnly: cfg.Schedule.TradingHoursOnly,
	}, log.Named("scheduler"))
	sched.History = hist
	if newsSrc != nil {
		sched.Market = newsSrc
	}
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.AnalysisCron, cfg.Schedule.CleanupCron); err != nil {
		log.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing analysis now")
		go sched.RunAnalysisNow()
	}

	log.Info("MarketAnalyst is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Info("shutdown signal received, stopping")
	sched.Stop()
	log.Info("MarketAnalyst stopped")
}

func openCache(cfg *config.Config, log *zap.Logger) (cache.Cache, error) {
	var store cache.Cache
	if cfg.Cache.SQLitePath != "" {
		sc, err := cache.NewSQLiteCache(cfg.Cache.SQLitePath, log.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		store = sc
	} else {
		log.Info("sqlite_path not set, using in-memory cache")
		store = cache.NewMemoryCache()
	}

	if cfg.Cache.RedisAddr == "" {
		return store, nil
	}
	rc, err := cache.NewRedisQuoteCache(store, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.QuoteTTL, log.Named("redis"))
	if err != nil {
		log.Warn("redis unavailable, continuing without quote mirror", zap.Error(err))
		return store, nil
	}
	return rc, nil
}

func openHistory(cfg *config.Config, log *zap.Logger) recorder.Recorder {
	if cfg.Cache.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	hist, err := recorder.NewSQLiteRecorder(cfg.Cache.SQLitePath, log.Named("recorder"))
	if err != nil {
		log.Warn("init report history failed, reports will not be stored", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return hist
}

func buildSources(cfg *config.Config) []collector.Source {
	ds := cfg.DataSource
	if ds.UseMock {
		return []collector.Source{&collector.MockSource{Price: 100}}
	}
	var sources []collector.Source
	if ds.AlphaVantageKey != "" {
		sources = append(sources, collector.NewAlphaVantageSource(ds.AlphaVantageBaseURL, ds.AlphaVantageKey, ds.Proxy, ds.RequestTimeout))
	}
	return append(sources, collector.NewYahooSource(ds.YahooBaseURL, ds.Proxy, ds.RequestTimeout))
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		AlphaVantageKey     string        `yaml:"alpha_vantage_key"`
		AlphaVantageBaseURL string        `yaml:"alpha_vantage_base_url"`
		YahooBaseURL        string        `yaml:"yahoo_base_url"`
		NewsBaseURL         string        `yaml:"news_base_url"`
		UseMock             bool          `yaml:"use_mock"`
		RequestTimeout      time.Duration `yaml:"request_timeout"`
		RateLimitDelay      time.Duration `yaml:"rate_limit_delay"`
		MaxRetries          int           `yaml:"max_retries"`
		Proxy               string        `yaml:"proxy"`
	} `yaml:"data_source"`
	Cache struct {
		SQLitePath    string        `yaml:"sqlite_path"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		QuoteTTL      time.Duration `yaml:"quote_ttl"`
		MaxAge        time.Duration `yaml:"max_age"`
		FetchInterval time.Duration `yaml:"fetch_interval"`
		QuoteRetain   time.Duration `yaml:"quote_retain"`
	} `yaml:"cache"`
	Analysis struct {
		Symbols      []string `yaml:"symbols"`
		LookbackDays int      `yaml:"lookback_days"`
		NewsDays     int      `yaml:"news_days"`
		NewsEnabled  *bool    `yaml:"news_enabled"`
	} `yaml:"analysis"`
	Schedule struct {
		RefreshCron      string `yaml:"refresh_cron"`
		AnalysisCron     string `yaml:"analysis_cron"`
		CleanupCron      string `yaml:"cleanup_cron"`
		TradingHoursOnly bool   `yaml:"trading_hours_only"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Tracing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`
}

// NewsOn reports whether news sentiment should be fetched.
func (c *Config) NewsOn() bool {
	return c.Analysis.NewsEnabled == nil || *c.Analysis.NewsEnabled
}

// TelegramEnabled reports whether report delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("ALPHA_VANTAGE_API_KEY", &cfg.DataSource.AlphaVantageKey)
	str("HTTPS_PROXY", &cfg.DataSource.Proxy)
	str("SQLITE_PATH", &cfg.Cache.SQLitePath)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("CRON_REFRESH", &cfg.Schedule.RefreshCron)
	str("CRON_ANALYSIS", &cfg.Schedule.AnalysisCron)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Analysis.Symbols = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Analysis.Symbols = append(cfg.Analysis.Symbols, s)
			}
		}
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.LookbackDays = n
		}
	}
	if v := os.Getenv("USE_MOCK_DATA"); v != "" {
		cfg.DataSource.UseMock, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled, _ = strconv.ParseBool(v)
	}
}

func applyDefaults(cfg *Config) {
	ds := &cfg.DataSource
	if ds.RequestTimeout == 0 {
		ds.RequestTimeout = 30 * time.Second
	}
	if ds.RateLimitDelay == 0 {
		ds.RateLimitDelay = 200 * time.Millisecond
	}
	if ds.MaxRetries == 0 {
		ds.MaxRetries = 3
	}

	c := &cfg.Cache
	if c.QuoteTTL == 0 {
		c.QuoteTTL = 15 * time.Minute
	}
	if c.MaxAge == 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.FetchInterval == 0 {
		c.FetchInterval = 15 * time.Minute
	}
	if c.QuoteRetain == 0 {
		c.QuoteRetain = 30 * 24 * time.Hour
	}

	a := &cfg.Analysis
	if len(a.Symbols) == 0 {
		a.Symbols = []string{"AAPL", "MSFT", "GOOGL"}
	}
	if a.LookbackDays == 0 {
		a.LookbackDays = 90
	}
	if a.NewsDays == 0 {
		a.NewsDays = 7
	}

	s := &cfg.Schedule
	if s.RefreshCron == "" {
		s.RefreshCron = "0 */15 9-16 * * 1-5"
	}
	if s.AnalysisCron == "" {
		s.AnalysisCron = "0 30 16 * * 1-5"
	}
	if s.CleanupCron == "" {
		s.CleanupCron = "0 0 3 * * 0"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if len(c.Analysis.Symbols) == 0 {
		return fmt.Errorf("analysis.symbols must not be empty")
	}
	if c.Analysis.LookbackDays <= 0 {
		return fmt.Errorf("analysis.lookback_days must be positive")
	}
	if c.DataSource.MaxRetries < 0 {
		return fmt.Errorf("data_source.max_retries must not be negative")
	}
	if c.DataSource.RateLimitDelay < 0 {
		return fmt.Errorf("data_source.rate_limit_delay must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"schedule.refresh_cron":  c.Schedule.RefreshCron,
		"schedule.analysis_cron": c.Schedule.AnalysisCron,
		"schedule.cleanup_cron":  c.Schedule.CleanupCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

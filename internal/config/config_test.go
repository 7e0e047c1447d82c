package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.DataSource.RequestTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.DataSource.RateLimitDelay)
	assert.Equal(t, 3, cfg.DataSource.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 15*time.Minute, cfg.Cache.FetchInterval)
	assert.Equal(t, 90, cfg.Analysis.LookbackDays)
	assert.True(t, cfg.NewsOn())
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
data_source:
  alpha_vantage_key: from-file
  rate_limit_delay: 500ms
  max_retries: 5
cache:
  sqlite_path: /tmp/analyst.db
  max_age: 12h
analysis:
  symbols: [IBM, TSLA]
  lookback_days: 120
  news_enabled: false
schedule:
  trading_hours_only: true
log:
  format: json
`)
	t.Setenv("ALPHA_VANTAGE_API_KEY", "from-env")
	t.Setenv("SYMBOLS", " nvda , amd ,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DataSource.AlphaVantageKey)
	assert.Equal(t, 500*time.Millisecond, cfg.DataSource.RateLimitDelay)
	assert.Equal(t, 5, cfg.DataSource.MaxRetries)
	assert.Equal(t, "/tmp/analyst.db", cfg.Cache.SQLitePath)
	assert.Equal(t, 12*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, []string{"nvda", "amd"}, cfg.Analysis.Symbols)
	assert.Equal(t, 120, cfg.Analysis.LookbackDays)
	assert.False(t, cfg.NewsOn())
	assert.True(t, cfg.Schedule.TradingHoursOnly)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "token" }},
		{"bad cron", func(c *Config) { c.Schedule.RefreshCron = "every minute" }},
		{"five field cron", func(c *Config) { c.Schedule.AnalysisCron = "30 16 * * 1-5" }},
		{"no symbols", func(c *Config) { c.Analysis.Symbols = nil }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative retries", func(c *Config) { c.DataSource.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("CONFIG_PATH", "/etc/analyst.yaml")
	assert.Equal(t, "/etc/analyst.yaml", Path())
}

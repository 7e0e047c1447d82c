package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"MarketAnalyst/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteCache persists bars, quotes and fetch tracking to a SQLite database.
type SQLiteCache struct {
	db  *sql.DB
	mu  sync.Mutex // serializes writers
	now func() time.Time
	log *zap.Logger
}

// NewSQLiteCache opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteCache(dbPath string, log *zap.Logger, opts ...Option) (*SQLiteCache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps SQLite's writer lock out of the picture; the
	// mutex still orders writers ahead of their transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	o := buildOptions(opts)
	c := &SQLiteCache{db: db, now: o.now, log: log}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite cache opened", zap.String("path", dbPath))
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS historical_bars (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_date ON historical_bars(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT NOT NULL,
			price          REAL NOT NULL,
			change_amount  REAL,
			change_percent REAL,
			volume         REAL,
			high           REAL,
			low            REAL,
			open_price     REAL,
			previous_close REAL,
			source         TEXT,
			timestamp      INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_symbol_ts ON quotes(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS fetch_tracking (
			symbol               TEXT PRIMARY KEY,
			last_fetch_time      INTEGER NOT NULL,
			last_historical_date TEXT,
			fetch_count          INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Bars(ctx context.Context, symbol string, minDays int) (model.Series, error) {
	query := `SELECT date, open, high, low, close, volume FROM historical_bars WHERE symbol = ?`
	args := []any{symbol}
	if minDays > 0 {
		query += ` AND date >= ?`
		args = append(args, windowStart(c.now(), minDays).Format(dateLayout))
	}
	query += ` ORDER BY date`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var out model.Series
	for rows.Next() {
		var (
			date string
			b    model.Bar
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		if b.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", date, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (c *SQLiteCache) UpsertBars(ctx context.Context, symbol string, bars model.Series) error {
	if len(bars) == 0 {
		return nil
	}
	if err := validateBars(symbol, bars); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", symbol, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO historical_bars
		(symbol, date, open, high, low, close, volume, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert %s: %w", symbol, err)
	}
	defer stmt.Close()

	var newest time.Time
	for _, b := range bars {
		day := model.Day(b.Date)
		if day.After(newest) {
			newest = day
		}
		if _, err := stmt.ExecContext(ctx, symbol, day.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume, now.UnixMilli()); err != nil {
			return fmt.Errorf("upsert bar %s %s: %w", symbol, day.Format(dateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO fetch_tracking
		(symbol, last_fetch_time, last_historical_date, fetch_count)
		VALUES (?,?,?,1)
		ON CONFLICT(symbol) DO UPDATE SET
			last_fetch_time = excluded.last_fetch_time,
			last_historical_date = MAX(COALESCE(fetch_tracking.last_historical_date, ''), excluded.last_historical_date),
			fetch_count = fetch_tracking.fetch_count + 1`,
		symbol, now.UnixMilli(), newest.Format(dateLayout)); err != nil {
		return fmt.Errorf("track %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert %s: %w", symbol, err)
	}
	c.log.Debug("bars upserted", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
	return nil
}

func (c *SQLiteCache) LatestQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	var (
		q  model.Quote
		ts int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT symbol, price, change_amount, change_percent, volume,
			high, low, open_price, previous_close, source, timestamp
		FROM quotes WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, symbol).
		Scan(&q.Symbol, &q.Price, &q.Change, &q.ChangePercent, &q.Volume,
			&q.High, &q.Low, &q.Open, &q.PreviousClose, &q.Source, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quote %s: %w", symbol, err)
	}
	q.Timestamp = time.UnixMilli(ts).UTC()
	return &q, nil
}

func (c *SQLiteCache) RecordQuote(ctx context.Context, symbol string, q model.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quote %s: %w", symbol, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO quotes
		(symbol, price, change_amount, change_percent, volume, high, low, open_price,
		 previous_close, source, timestamp, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		symbol, q.Price, q.Change, q.ChangePercent, q.Volume, q.High, q.Low, q.Open,
		q.PreviousClose, q.Source, q.Timestamp.UnixMilli(), now.UnixMilli()); err != nil {
		return fmt.Errorf("insert quote %s: %w", symbol, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO fetch_tracking
		(symbol, last_fetch_time, fetch_count) VALUES (?,?,1)
		ON CONFLICT(symbol) DO UPDATE SET
			last_fetch_time = excluded.last_fetch_time,
			fetch_count = fetch_tracking.fetch_count + 1`,
		symbol, now.UnixMilli()); err != nil {
		return fmt.Errorf("track %s: %w", symbol, err)
	}
	return tx.Commit()
}

func (c *SQLiteCache) Tracking(ctx context.Context, symbol string) (*model.FetchTracking, error) {
	var (
		tr       model.FetchTracking
		lastMs   int64
		lastDate sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT symbol, last_fetch_time, last_historical_date, fetch_count
		FROM fetch_tracking WHERE symbol = ?`, symbol).
		Scan(&tr.Symbol, &lastMs, &lastDate, &tr.FetchCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracking %s: %w", symbol, err)
	}
	tr.LastFetchTime = time.UnixMilli(lastMs).UTC()
	if lastDate.Valid && lastDate.String != "" {
		if tr.LastHistoricalDate, err = time.Parse(dateLayout, lastDate.String); err != nil {
			return nil, fmt.Errorf("parse tracking date %q: %w", lastDate.String, err)
		}
	}
	return &tr, nil
}

func (c *SQLiteCache) IsFresh(ctx context.Context, symbol string, maxAge time.Duration) (bool, error) {
	tr, err := c.Tracking(ctx, symbol)
	if err != nil {
		return false, err
	}
	return fresh(tr, c.now(), maxAge), nil
}

func (c *SQLiteCache) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT symbol) FROM quotes`).
		Scan(&st.TotalQuotes, &st.QuoteSymbols); err != nil {
		return nil, fmt.Errorf("quote stats: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT symbol, COUNT(*), MIN(date), MAX(date)
		FROM historical_bars GROUP BY symbol ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("bar stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cov         Coverage
			first, last string
		)
		if err := rows.Scan(&cov.Symbol, &cov.Bars, &first, &last); err != nil {
			return nil, fmt.Errorf("scan bar stats: %w", err)
		}
		cov.FirstDate, _ = time.Parse(dateLayout, first)
		cov.LastDate, _ = time.Parse(dateLayout, last)
		st.Coverage = append(st.Coverage, cov)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := c.db.QueryContext(ctx, `SELECT symbol FROM fetch_tracking ORDER BY last_fetch_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("tracking stats: %w", err)
	}
	var symbols []string
	for trows.Next() {
		var s string
		if err := trows.Scan(&s); err != nil {
			trows.Close()
			return nil, err
		}
		symbols = append(symbols, s)
	}
	trows.Close()
	for _, s := range symbols {
		tr, err := c.Tracking(ctx, s)
		if err != nil {
			return nil, err
		}
		if tr != nil {
			st.Tracking = append(st.Tracking, *tr)
		}
	}
	return st, nil
}

func (c *SQLiteCache) PurgeQuotes(ctx context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM quotes WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge quotes: %w", err)
	}
	n, _ := res.RowsAffected()
	c.log.Info("purged old quotes", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	return n, nil
}

func (c *SQLiteCache) Close() error {
	c.log.Info("closing sqlite cache")
	return c.db.Close()
}

package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"MarketAnalyst/internal/model"
)

// SQLiteRecorder stores reports in the analysis_reports table.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
// It may share a file with the cache.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_reports (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			price        REAL,
			price_source TEXT,
			action       TEXT,
			tier         TEXT,
			score        INTEGER,
			confidence   REAL,
			rsi          REAL,
			sentiment    TEXT,
			valid        INTEGER,
			degraded     INTEGER,
			factors      TEXT,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol_ts ON analysis_reports(symbol, timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordReport(ctx context.Context, rep model.Report) error {
	factors, err := json.Marshal(rep.Recommendation.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	ts := rep.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO analysis_reports
		(symbol, timestamp, price, price_source, action, tier, score, confidence,
		 rsi, sentiment, valid, degraded, factors, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		strings.ToUpper(rep.Symbol), ts.UnixMilli(), rep.CurrentPrice, rep.PriceSource,
		string(rep.Recommendation.Action), string(rep.Recommendation.Tier),
		rep.Recommendation.Score, rep.Recommendation.Confidence,
		rep.Indicators.RSI, rep.Sentiment.Overall,
		rep.Valid, rep.Degraded, string(factors), rep.Error,
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rep.Symbol, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecentReports(ctx context.Context, symbol string, limit int) ([]ReportRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, timestamp, price, price_source, action, tier,
		score, confidence, rsi, sentiment, valid, degraded, factors, error
		FROM analysis_reports WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var (
			rec          ReportRecord
			ts           int64
			action, tier string
			factors      string
		)
		if err := rows.Scan(&rec.Symbol, &ts, &rec.Price, &rec.PriceSource, &action, &tier,
			&rec.Score, &rec.Confidence, &rec.RSI, &rec.Sentiment, &rec.Valid, &rec.Degraded,
			&factors, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		rec.Action = model.Action(action)
		rec.Tier = model.Tier(tier)
		if factors != "" && factors != "null" {
			if err := json.Unmarshal([]byte(factors), &rec.Factors); err != nil {
				return nil, fmt.Errorf("decode factors: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}

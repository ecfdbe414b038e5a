package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema mirrors schema but uses sqlite's autoincrement and datetime
// conventions instead of Postgres SERIAL/TIMESTAMP.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ts DATETIME NOT NULL,
		allowed INTEGER NOT NULL,
		reason TEXT,
		stage TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_symbol_ts ON decisions(symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		fill_price REAL NOT NULL,
		slippage_bps REAL,
		ts DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fills_symbol_ts ON fills(symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS equity_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		equity REAL NOT NULL,
		drawdown_pct REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_equity_snapshots_ts ON equity_snapshots(ts)`,
}

// SQLiteStore implements Store for single-operator/local deployments that
// don't want to stand up Postgres, selected via the same Store interface
// so engine code never branches on which backend is active.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the sqlite file at dsn, e.g.
// "file:./eqtrader_audit.db?cache=shared".
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // sqlite serializes writers; avoid lock contention
	for i, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: sqlite migration statement %d: %w", i+1, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordDecision(ctx context.Context, rec DecisionRecord) error {
	const q = `INSERT INTO decisions (symbol, ts, allowed, reason, stage) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, rec.Symbol, rec.Timestamp, rec.Allowed, rec.Reason, rec.Stage)
	if err != nil {
		return fmt.Errorf("audit: record decision: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordFill(ctx context.Context, rec FillRecord) error {
	const q = `INSERT INTO fills (symbol, side, quantity, fill_price, slippage_bps, ts) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, rec.Symbol, rec.Side, rec.Quantity, rec.FillPrice, rec.ExpectedBps, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("audit: record fill: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordEquitySnapshot(ctx context.Context, rec EquitySnapshot) error {
	const q = `INSERT INTO equity_snapshots (ts, equity, drawdown_pct) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, rec.Timestamp, rec.Equity, rec.Drawdown)
	if err != nil {
		return fmt.Errorf("audit: record equity snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	const q = `
		SELECT id, symbol, ts, allowed, reason, stage
		FROM decisions
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var ts time.Time
		if err := rows.Scan(&rec.ID, &rec.Symbol, &ts, &rec.Allowed, &rec.Reason, &rec.Stage); err != nil {
			return nil, fmt.Errorf("audit: scan decision row: %w", err)
		}
		rec.Timestamp = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// schema is shared by both migration paths: CREATE TABLE IF NOT EXISTS so
// repeated startups are idempotent, grounded on the migration list in
// koshedutech-binance-trading-app's db.go.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS decisions (
		id SERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		ts TIMESTAMP NOT NULL,
		allowed BOOLEAN NOT NULL,
		reason TEXT,
		stage VARCHAR(64)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_symbol_ts ON decisions(symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS fills (
		id SERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		quantity INTEGER NOT NULL,
		fill_price DECIMAL(20, 8) NOT NULL,
		slippage_bps DECIMAL(10, 4),
		ts TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fills_symbol_ts ON fills(symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS equity_snapshots (
		id SERIAL PRIMARY KEY,
		ts TIMESTAMP NOT NULL,
		equity DECIMAL(20, 8) NOT NULL,
		drawdown_pct DECIMAL(10, 4) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_equity_snapshots_ts ON equity_snapshots(ts)`,
}

// MigratePostgres runs the schema bootstrap through database/sql + lib/pq,
// a one-shot DDL path kept separate from the hot-path pgxpool writes so
// migrations can run with a plain SQL driver (grounded on the teacher's
// scripts/run_migration.go, which drove schema setup the same way).
func MigratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("audit: open migration connection: %w", err)
	}
	defer db.Close()

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("audit: migration statement %d: %w", i+1, err)
		}
	}
	return nil
}

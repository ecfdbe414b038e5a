package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a pooled pgx connection, grounded
// on koshedutech-binance-trading-app's Repository: parameterized queries,
// QueryRow+Scan for single rows, Pool.Exec for writes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and bootstraps the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping postgres: %w", err)
	}
	if err := MigratePostgres(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) RecordDecision(ctx context.Context, rec DecisionRecord) error {
	const q = `
		INSERT INTO decisions (symbol, ts, allowed, reason, stage)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return s.pool.QueryRow(ctx, q, rec.Symbol, rec.Timestamp, rec.Allowed, rec.Reason, rec.Stage).Scan(&rec.ID)
}

func (s *PostgresStore) RecordFill(ctx context.Context, rec FillRecord) error {
	const q = `
		INSERT INTO fills (symbol, side, quantity, fill_price, slippage_bps, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return s.pool.QueryRow(ctx, q, rec.Symbol, rec.Side, rec.Quantity, rec.FillPrice, rec.ExpectedBps, rec.Timestamp).Scan(&rec.ID)
}

func (s *PostgresStore) RecordEquitySnapshot(ctx context.Context, rec EquitySnapshot) error {
	const q = `
		INSERT INTO equity_snapshots (ts, equity, drawdown_pct)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return s.pool.QueryRow(ctx, q, rec.Timestamp, rec.Equity, rec.Drawdown).Scan(&rec.ID)
}

func (s *PostgresStore) RecentDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	const q = `
		SELECT id, symbol, ts, allowed, reason, stage
		FROM decisions
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, symbol, limit)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

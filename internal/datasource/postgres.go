package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pinebt/internal/bterrors"
	"pinebt/internal/ohlcv"
)

// PostgresSource loads 1m bars from the same TimescaleDB-backed ohlcv
// table the original data source read, via a pgx connection pool —
// reusing the run ledger's own driver rather than introducing a second
// one.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource opens a connection pool against dsn.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("datasource: pgxpool.New: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresSource) Close() { s.pool.Close() }

// Load1m mirrors TimescaleSource's query shape: ascending 1m bars for the
// given symbol/exchange, optionally bounded by start/end, forced to UTC.
func (s *PostgresSource) Load1m(ctx context.Context, symbol, exchange string, start, end *time.Time) (*ohlcv.Table, error) {
	var b strings.Builder
	b.WriteString("SELECT ts, open, high, low, close, volume FROM ohlcv WHERE symbol = $1 AND exchange = $2")
	args := []interface{}{symbol, exchange}
	if start != nil {
		args = append(args, start.UTC())
		fmt.Fprintf(&b, " AND ts >= $%d", len(args))
	}
	if end != nil {
		args = append(args, end.UTC())
		fmt.Fprintf(&b, " AND ts <= $%d", len(args))
	}
	b.WriteString(" ORDER BY ts")

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("datasource: query: %w", err)
	}
	defer rows.Close()

	table := &ohlcv.Table{}
	for rows.Next() {
		var ts time.Time
		var o, h, l, c, v float64
		if err := rows.Scan(&ts, &o, &h, &l, &c, &v); err != nil {
			return nil, fmt.Errorf("datasource: scan: %w", err)
		}
		table.Timestamps = append(table.Timestamps, ts.UTC())
		table.Open = append(table.Open, o)
		table.High = append(table.High, h)
		table.Low = append(table.Low, l)
		table.Close = append(table.Close, c)
		table.Volume = append(table.Volume, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasource: rows: %w", err)
	}
	if table.Len() == 0 {
		return nil, &bterrors.DataError{Msg: fmt.Sprintf("no bars for %s/%s in range", symbol, exchange)}
	}
	return table, nil
}

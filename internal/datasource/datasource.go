// Package datasource defines the historical-bar loading contract and two
// implementations: a Postgres-backed one using the same pgx driver the
// run ledger uses, and a CSV one for tests and local runs without a
// database. Resampling/ingestion internals beyond Load1m stay out of
// scope, per the loading contract's own boundary.
package datasource

import (
	"context"
	"time"

	"pinebt/internal/ohlcv"
)

// DataSource loads strictly 1-minute-spaced, UTC, ascending-sorted OHLCV
// bars for a symbol/exchange pair. An empty result is an error, never an
// empty table.
type DataSource interface {
	Load1m(ctx context.Context, symbol, exchange string, start, end *time.Time) (*ohlcv.Table, error)
}

// Package db is the run ledger: async-safe persistence for compiled
// strategy metadata, per-run parameter sets, and final result summaries.
// Adapted from the teacher's trade/event logger — same pgxpool pool,
// ensure-schema-on-connect, and fire-and-forget goroutine-per-insert
// pattern, repurposed from live trade/event rows to backtest run rows.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger wraps a pgx pool and provides the run ledger's insert/query
// helpers.
type Logger struct {
	pool *pgxpool.Pool
}

// RunRow represents a row in backtest_runs for API responses.
type RunRow struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	Symbol     string          `json:"symbol"`
	Exchange   string          `json:"exchange"`
	Strategy   string          `json:"strategyName"`
	Mode       string          `json:"mode"`
	Params     json.RawMessage `json:"params"`
	Status     string          `json:"status"`
}

// TradeRow represents a row in backtest_trades for API responses.
type TradeRow struct {
	RunID      string    `json:"runId"`
	EntryBar   int       `json:"entryBar"`
	ExitBar    int       `json:"exitBar"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Qty        float64   `json:"qty"`
	Side       string    `json:"side"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"returnPct"`
	RecordedAt time.Time `json:"recordedAt"`
}

// NewLogger creates a connection pool and ensures tables exist.
func NewLogger(dsn string) (*Logger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	l := &Logger{pool: pool}
	if err := l.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the pool.
func (l *Logger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

func (l *Logger) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`create table if not exists backtest_runs (
			id bigserial primary key,
			run_id text unique not null,
			started_at timestamptz not null default now(),
			finished_at timestamptz,
			symbol text not null,
			exchange text not null,
			strategy_name text not null,
			mode text not null,
			params jsonb,
			status text not null default 'running',
			error text
		)`,
		`create index if not exists idx_backtest_runs_symbol on backtest_runs(symbol, exchange, started_at desc)`,
		`create table if not exists backtest_trades (
			id bigserial primary key,
			run_id text not null,
			entry_bar int not null,
			exit_bar int not null,
			entry_price numeric,
			exit_price numeric,
			qty numeric,
			side text,
			pnl numeric,
			return_pct numeric,
			recorded_at timestamptz not null default now()
		)`,
		`create index if not exists idx_backtest_trades_run on backtest_trades(run_id, entry_bar)`,
		`create table if not exists backtest_stats (
			run_id text primary key references backtest_runs(run_id),
			total_return numeric,
			annualized_return numeric,
			annualized_vol numeric,
			sharpe numeric,
			sortino numeric,
			calmar numeric,
			omega numeric,
			max_drawdown numeric,
			win_rate numeric,
			profit_factor numeric,
			expectancy numeric,
			trade_count int
		)`,
		`create table if not exists logs (
			id bigserial primary key,
			ts timestamptz not null default now(),
			level text,
			category text,
			message text,
			details jsonb
		)`,
	}
	for _, s := range stmts {
		if _, err := l.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensureSchema: %w", err)
		}
	}
	return nil
}

// LogEvent writes an arbitrary log row.
func (l *Logger) LogEvent(level, category, message string, details any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		var dj []byte
		if details != nil {
			dj, _ = json.Marshal(details)
		}
		_, _ = l.pool.Exec(ctx, `insert into logs(level, category, message, details) values($1,$2,$3,$4)`, level, category, message, dj)
	}()
}

// LogRunStart records a new backtest run.
func (l *Logger) LogRunStart(runID, symbol, exchange, strategyName, mode string, params map[string]float64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		var pj []byte
		if params != nil {
			pj, _ = json.Marshal(params)
		}
		_, _ = l.pool.Exec(ctx, `insert into backtest_runs(run_id, symbol, exchange, strategy_name, mode, params, status)
			values($1,$2,$3,$4,$5,$6,'running')`, runID, symbol, exchange, strategyName, mode, pj)
	}()
}

// LogRunFinished marks a run complete (or failed, with errMsg set).
func (l *Logger) LogRunFinished(runID, status, errMsg string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = l.pool.Exec(ctx, `update backtest_runs set finished_at = now(), status=$2, error=$3 where run_id=$1`, runID, status, errMsg)
	}()
}

// LogTrade persists one closed round-trip from a portfolio.Result.
func (l *Logger) LogTrade(runID string, entryBar, exitBar int, entryPrice, exitPrice, qty float64, side string, pnl, returnPct float64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = l.pool.Exec(ctx, `insert into backtest_trades(run_id, entry_bar, exit_bar, entry_price, exit_price, qty, side, pnl, return_pct)
			values($1,$2,$3,$4,$5,$6,$7,$8,$9)`, runID, entryBar, exitBar, entryPrice, exitPrice, qty, side, pnl, returnPct)
	}()
}

// LogStats persists the summary statistics of a finished run.
func (l *Logger) LogStats(runID string, totalReturn, annReturn, annVol, sharpe, sortino, calmar, omega, maxDD, winRate, profitFactor, expectancy float64, tradeCount int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = l.pool.Exec(ctx, `insert into backtest_stats(run_id, total_return, annualized_return, annualized_vol, sharpe, sortino, calmar, omega, max_drawdown, win_rate, profit_factor, expectancy, trade_count)
			values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			on conflict (run_id) do update set total_return=excluded.total_return, annualized_return=excluded.annualized_return,
				annualized_vol=excluded.annualized_vol, sharpe=excluded.sharpe, sortino=excluded.sortino, calmar=excluded.calmar,
				omega=excluded.omega, max_drawdown=excluded.max_drawdown, win_rate=excluded.win_rate,
				profit_factor=excluded.profit_factor, expectancy=excluded.expectancy, trade_count=excluded.trade_count`,
			runID, totalReturn, annReturn, annVol, sharpe, sortino, calmar, omega, maxDD, winRate, profitFactor, expectancy, tradeCount)
	}()
}

// QueryRuns lists recent runs, optionally filtered by symbol/exchange.
func (l *Logger) QueryRuns(ctx context.Context, symbol, exchange string, limit int) ([]RunRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `select run_id, started_at, finished_at, symbol, exchange, strategy_name, mode, coalesce(params,'{}'::jsonb), status
		from backtest_runs where ($1='' or symbol=$1) and ($2='' or exchange=$2)
		order by started_at desc limit $3`, symbol, exchange, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []RunRow{}
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Symbol, &r.Exchange, &r.Strategy, &r.Mode, &r.Params, &r.Status); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

// QueryTrades lists the trades for a single run, most recent first.
func (l *Logger) QueryTrades(ctx context.Context, runID string, limit int) ([]TradeRow, error) {
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	rows, err := l.pool.Query(ctx, `select run_id, entry_bar, exit_bar, coalesce(entry_price,0), coalesce(exit_price,0), coalesce(qty,0), coalesce(side,''), coalesce(pnl,0), coalesce(return_pct,0), recorded_at
		from backtest_trades where run_id=$1 order by entry_bar desc limit $2`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []TradeRow{}
	for rows.Next() {
		var t TradeRow
		if err := rows.Scan(&t.RunID, &t.EntryBar, &t.ExitBar, &t.EntryPrice, &t.ExitPrice, &t.Qty, &t.Side, &t.PnL, &t.ReturnPct, &t.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

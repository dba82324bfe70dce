// Package engine runs a compiled strategy against historical bars in
// either standard mode (one vectorized batch call) or magnifier mode
// (windowed sub-bar recompute), producing the four signal series the
// portfolio simulator consumes.
package engine

import (
	"context"

	"pinebt/internal/bterrors"
	"pinebt/internal/compiled"
	"pinebt/internal/ohlcv"
)

// Progress reports completed/total units of work at a phase boundary.
// Implementations must return quickly; the engine makes no ordering
// guarantee across concurrently running backtests.
type Progress func(done, total int)

// RunStandard evaluates the strategy's batch routine once over the whole
// table. This is the entire standard-mode contract: no indicator is
// recomputed at a finer resolution.
func RunStandard(ctx context.Context, strat *compiled.Strategy, table *ohlcv.Table, params compiled.Params, progress Progress) (compiled.Signals, error) {
	if err := ctx.Err(); err != nil {
		return compiled.Signals{}, bterrors.Cancelled
	}
	if progress != nil {
		progress(0, table.Len())
	}
	signals, err := strat.Batch(table, params)
	if err != nil {
		return compiled.Signals{}, err
	}
	if err := ctx.Err(); err != nil {
		return compiled.Signals{}, bterrors.Cancelled
	}
	if progress != nil {
		progress(table.Len(), table.Len())
	}
	return signals, nil
}

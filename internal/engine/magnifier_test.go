package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pinebt/internal/compiled"
	"pinebt/internal/ohlcv"
)

func makeSubTable(n int, stepMinutes int) *ohlcv.Table {
	tbl := &ohlcv.Table{
		Timestamps: make([]time.Time, n),
		Open:       make([]float64, n),
		High:       make([]float64, n),
		Low:        make([]float64, n),
		Close:      make([]float64, n),
		Volume:     make([]float64, n),
	}
	base := time.Unix(0, 0).UTC()
	for i := 0; i < n; i++ {
		tbl.Timestamps[i] = base.Add(time.Duration(i*stepMinutes) * time.Minute)
		tbl.Open[i] = 100
		tbl.High[i] = 101
		tbl.Low[i] = 99
		tbl.Close[i] = 100
		tbl.Volume[i] = 1
	}
	return tbl
}

// alwaysSignalStrategy always signals a long entry: this exercises the
// magnifier's idempotency guard (LongEntry && pos == flat) rather than the
// signal-generation logic itself.
func alwaysSignalStrategy() *compiled.Strategy {
	return &compiled.Strategy{
		Name: "always-signal",
		Step: func(in compiled.StepInputs, params compiled.Params) (compiled.StepResult, error) {
			return compiled.StepResult{LongEntry: true}, nil
		},
	}
}

func TestRunMagnifierEntersOnceAndStaysIdempotent(t *testing.T) {
	chart := makeTable(3) // 3 bars, 5-minute spacing (only timestamps matter here)
	chart.Timestamps[0] = time.Unix(0, 0).UTC()
	chart.Timestamps[1] = time.Unix(0, 0).UTC().Add(5 * time.Minute)
	chart.Timestamps[2] = time.Unix(0, 0).UTC().Add(10 * time.Minute)

	sub := makeSubTable(15, 1) // 1-minute ticks spanning all three chart bars
	strat := alwaysSignalStrategy() // Warmup is unset (floors to 1): bar 0 is never evaluated

	signals, err := RunMagnifier(context.Background(), strat, chart, sub, 5, compiled.Params{}, nil)
	assert.NoError(t, err)
	assert.False(t, signals.LongEntries[0]) // below warmup, never evaluated
	assert.True(t, signals.LongEntries[1])  // first evaluated bar enters
	assert.False(t, signals.LongEntries[2]) // already long, no re-entry
}

func TestRunMagnifierEmptyChartReturnsEmptySignals(t *testing.T) {
	chart := &ohlcv.Table{}
	sub := makeSubTable(0, 1)
	strat := alwaysSignalStrategy()

	signals, err := RunMagnifier(context.Background(), strat, chart, sub, 5, compiled.Params{}, nil)
	assert.NoError(t, err)
	assert.Empty(t, signals.LongEntries)
}

func TestRunMagnifierRespectsCancellation(t *testing.T) {
	chart := makeTable(5)
	sub := makeSubTable(25, 1)
	strat := alwaysSignalStrategy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunMagnifier(ctx, strat, chart, sub, 5, compiled.Params{}, nil)
	assert.Error(t, err)
}

// risingCloseStrategy enters long whenever the trailing window's last
// close is above its prior close: a condition readable from only the
// last two closed values, so it needs no history beyond what a 1:1
// magnifier window (ticksPerBar=1) always retains.
func risingCloseStrategy() *compiled.Strategy {
	decide := func(c []float64) compiled.StepResult {
		n := len(c)
		if n < 2 {
			return compiled.StepResult{}
		}
		return compiled.StepResult{LongEntry: c[n-1] > c[n-2]}
	}
	return &compiled.Strategy{
		Name: "rising-close",
		Batch: func(table *ohlcv.Table, params compiled.Params) (compiled.Signals, error) {
			n := table.Len()
			s := compiled.Signals{
				LongEntries: make([]bool, n), LongExits: make([]bool, n),
				ShortEntries: make([]bool, n), ShortExits: make([]bool, n),
			}
			holding := false
			for i := 1; i < n; i++ {
				if !holding && decide(table.Close[:i+1]).LongEntry {
					s.LongEntries[i] = true
					holding = true // no exit condition is ever modeled, matching the magnifier's never-exits strategy below
				}
			}
			return s, nil
		},
		Step: func(in compiled.StepInputs, params compiled.Params) (compiled.StepResult, error) {
			return decide(in.Close), nil
		},
	}
}

// TestRunMagnifierMatchesStandardForHTCloseOnlyStrategy covers the
// magnifier-fidelity-vs-standard scenario: when the magnifier's sub-table
// is resampled 1:1 with the chart (ticksPerBar=1) and the strategy's
// decision only looks at already-closed bars, magnifier and standard must
// agree bar-for-bar, since every idempotency guard they each apply is
// identical once there is exactly one tick per chart bar.
func TestRunMagnifierMatchesStandardForHTCloseOnlyStrategy(t *testing.T) {
	chart := makeTable(12)
	closes := []float64{100, 101, 100, 102, 101, 103, 103, 104, 103, 105, 104, 106}
	for i, c := range closes {
		chart.Close[i] = c
	}
	strat := risingCloseStrategy()

	standard, err := RunStandard(context.Background(), strat, chart, compiled.Params{}, nil)
	assert.NoError(t, err)

	// A 1:1 magnifier (sub resolution equal to chart resolution) sees
	// exactly one tick per chart bar, so its window degenerates to the
	// same trailing two closes the standard path's decide() reads.
	magnifier, err := RunMagnifier(context.Background(), strat, chart, chart, 1, compiled.Params{}, nil)
	assert.NoError(t, err)

	assert.Equal(t, standard.LongEntries, magnifier.LongEntries)
}

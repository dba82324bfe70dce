// Package ohlcv defines the OHLCV table data model shared by the code
// generator, kernel library, and backtest engine.
package ohlcv

import (
	"fmt"
	"time"
)

// Table is an ordered sequence of timestamped bars with uniform spacing.
// Timestamps are strictly increasing.
type Table struct {
	Timestamps []time.Time
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64
}

// Len returns the number of bars.
func (t *Table) Len() int { return len(t.Close) }

// Validate checks the invariants the engine and kernels rely on: equal
// column lengths and strictly increasing, uniformly spaced timestamps.
func (t *Table) Validate() error {
	n := len(t.Timestamps)
	if len(t.Open) != n || len(t.High) != n || len(t.Low) != n || len(t.Close) != n || len(t.Volume) != n {
		return fmt.Errorf("ohlcv: column length mismatch")
	}
	if n == 0 {
		return fmt.Errorf("ohlcv: empty table")
	}
	if n < 2 {
		return nil
	}
	step := t.Timestamps[1].Sub(t.Timestamps[0])
	if step <= 0 {
		return fmt.Errorf("ohlcv: timestamps not strictly increasing")
	}
	for i := 2; i < n; i++ {
		d := t.Timestamps[i].Sub(t.Timestamps[i-1])
		if d != step {
			return fmt.Errorf("ohlcv: non-uniform bar spacing at index %d", i)
		}
	}
	return nil
}

// HL2 is the element-wise mean of high and low.
func (t *Table) HL2() []float64 { return meanN(t.High, t.Low) }

// HLC3 is the element-wise mean of high, low, and close.
func (t *Table) HLC3() []float64 { return meanN(t.High, t.Low, t.Close) }

// HLCC4 is the element-wise mean of high, low, close, close.
func (t *Table) HLCC4() []float64 { return meanN(t.High, t.Low, t.Close, t.Close) }

// OHLC4 is the element-wise mean of open, high, low, and close.
func (t *Table) OHLC4() []float64 { return meanN(t.Open, t.High, t.Low, t.Close) }

func meanN(cols ...[]float64) []float64 {
	n := len(cols[0])
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, col := range cols {
			sum += col[i]
		}
		out[i] = sum / float64(len(cols))
	}
	return out
}

// Window returns a shallow slice-view [start,end) of the table. It shares
// backing arrays; callers that mutate a forming-bar row must use a
// pre-allocated buffer (see internal/engine) instead of this view.
func (t *Table) Window(start, end int) *Table {
	return &Table{
		Timestamps: t.Timestamps[start:end],
		Open:       t.Open[start:end],
		High:       t.High[start:end],
		Low:        t.Low[start:end],
		Close:      t.Close[start:end],
		Volume:     t.Volume[start:end],
	}
}

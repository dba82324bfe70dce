package codegen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pinebt/internal/ohlcv"
)

// makeDipTable builds a table that falls for the first half (driving RSI
// into oversold territory) then recovers, so an RSI-oversold-cross
// strategy has a clean, unambiguous crossing bar to fire on.
func makeDipTable(n int) *ohlcv.Table {
	tbl := &ohlcv.Table{
		Timestamps: make([]time.Time, n),
		Open:       make([]float64, n),
		High:       make([]float64, n),
		Low:        make([]float64, n),
		Close:      make([]float64, n),
		Volume:     make([]float64, n),
	}
	base := time.Unix(0, 0).UTC()
	mid := n / 2
	price := 100.0
	for i := 0; i < n; i++ {
		tbl.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		if i < mid {
			price -= 2
		} else {
			price += 3
		}
		tbl.Open[i], tbl.High[i], tbl.Low[i], tbl.Close[i], tbl.Volume[i] = price, price+1, price-1, price, 10
	}
	return tbl
}

// TestCompileRSIOversoldCrossOpensLongOnRecovery covers the RSI-oversold-
// cross end-to-end scenario: a sustained decline drives RSI under 30, and
// the first bar RSI crosses back above 30 should fire a long entry.
func TestCompileRSIOversoldCrossOpensLongOnRecovery(t *testing.T) {
	src := "strategy(\"RSI Recovery\")\n" +
		"r = ta.rsi(close, 14)\n" +
		"longCond = ta.crossover(r, 30)\n" +
		"if longCond\n" +
		"    strategy.entry(\"L\", strategy.long)\n"
	strat, err := Compile(src)
	assert.NoError(t, err)

	tbl := makeDipTable(60)
	signals, err := strat.Batch(tbl, nil)
	assert.NoError(t, err)

	fired := false
	for _, v := range signals.LongEntries {
		if v {
			fired = true
			break
		}
	}
	assert.True(t, fired, "expected a long entry once RSI recovered above 30")
}

// TestCompileMACDCrossoverStepAgreesWithBatch covers the MACD-crossover
// batch/step parity scenario: a compiled strategy built on the
// three-output macd() call must agree at the trailing bar regardless of
// whether it's evaluated in Batch or Step form.
func TestCompileMACDCrossoverStepAgreesWithBatch(t *testing.T) {
	src := "strategy(\"MACD Cross\")\n" +
		"[macdLine, signalLine, hist] = ta.macd(close, 12, 26, 9)\n" +
		"longCond = ta.crossover(macdLine, signalLine)\n" +
		"shortCond = ta.crossunder(macdLine, signalLine)\n" +
		"if longCond\n" +
		"    strategy.entry(\"L\", strategy.long)\n" +
		"if shortCond\n" +
		"    strategy.entry(\"S\", strategy.short)\n"
	strat, err := Compile(src)
	assert.NoError(t, err)

	tbl := makeDipTable(120)
	batch, err := strat.Batch(tbl, nil)
	assert.NoError(t, err)

	for _, last := range []int{tbl.Len() - 1, tbl.Len() / 2} {
		step, err := strat.Step(compiledStepInputsFromTable(tbl, last), nil)
		assert.NoError(t, err)
		assert.Equal(t, batch.LongEntries[last], step.LongEntry, "bar %d long entry mismatch", last)
		assert.Equal(t, batch.ShortEntries[last], step.ShortEntry, "bar %d short entry mismatch", last)
	}
}

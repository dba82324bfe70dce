package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseConfig() SimConfig {
	return SimConfig{
		InitialCapital: 10000,
		QtyType:        "percent_of_equity",
		QtyValue:       100,
		BarsPerYear:    252,
	}
}

func TestSimulateLongRoundTripNoFrictionProducesExactPnL(t *testing.T) {
	close := []float64{100, 100, 130, 100}
	longEntries := []bool{true, false, false, false}
	longExits := []bool{false, false, true, false}
	shortEntries := make([]bool, 4)
	shortExits := make([]bool, 4)

	res, err := Simulate(close, longEntries, longExits, shortEntries, shortExits, baseConfig())
	assert.NoError(t, err)

	assert.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, "long", trade.Side)
	assert.InDelta(t, 100.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 130.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 3000.0, trade.PnL, 1e-9)

	assert.InDelta(t, 13000.0, res.Equity[3], 1e-9)
	assert.InDelta(t, 0.3, res.Stats.TotalReturn, 1e-9)
	assert.Equal(t, 1, res.Stats.TradeCount)
	assert.InDelta(t, 1.0, res.Stats.WinRate, 1e-9)
}

func TestSimulateShortRoundTripProfitsOnDecline(t *testing.T) {
	close := []float64{100, 100, 70, 70}
	longEntries := make([]bool, 4)
	longExits := make([]bool, 4)
	shortEntries := []bool{true, false, false, false}
	shortExits := []bool{false, false, true, false}

	res, err := Simulate(close, longEntries, longExits, shortEntries, shortExits, baseConfig())
	assert.NoError(t, err)

	assert.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, "short", trade.Side)
	assert.InDelta(t, 3000.0, trade.PnL, 1e-9) // 100 qty * (100-70)
}

func TestSimulateCommissionReducesPnL(t *testing.T) {
	close := []float64{100, 100, 130, 100}
	longEntries := []bool{true, false, false, false}
	longExits := []bool{false, false, true, false}
	shortEntries := make([]bool, 4)
	shortExits := make([]bool, 4)

	cfg := baseConfig()
	cfg.CommissionRate = 0.01 // 1% on each fill

	res, err := Simulate(close, longEntries, longExits, shortEntries, shortExits, cfg)
	assert.NoError(t, err)
	assert.Less(t, res.Trades[0].PnL, 3000.0) // fees eat into the frictionless PnL
}

func TestSimulateFlatWithNoSignalsLeavesEquityUnchanged(t *testing.T) {
	close := []float64{100, 101, 99, 102}
	flags := make([]bool, 4)

	res, err := Simulate(close, flags, flags, flags, flags, baseConfig())
	assert.NoError(t, err)
	assert.Empty(t, res.Trades)
	for _, e := range res.Equity {
		assert.InDelta(t, 10000.0, e, 1e-9)
	}
	assert.Equal(t, 0, res.Stats.TradeCount)
}

func TestSimulateEmptySeriesReturnsEmptyResult(t *testing.T) {
	res, err := Simulate(nil, nil, nil, nil, nil, baseConfig())
	assert.NoError(t, err)
	assert.Empty(t, res.Equity)
	assert.Equal(t, Stats{}, res.Stats)
}

func TestSimulateMaxDrawdownTracksPeakToTroughDecline(t *testing.T) {
	close := []float64{100, 200, 100}
	longEntries := []bool{true, false, false}
	longExits := make([]bool, 3)
	shortEntries := make([]bool, 3)
	shortExits := make([]bool, 3)

	res, err := Simulate(close, longEntries, longExits, shortEntries, shortExits, baseConfig())
	assert.NoError(t, err)
	// equity peaks at bar 1 (20000) then halves at bar 2 (10000): 50% drawdown
	assert.InDelta(t, 0.5, res.Stats.MaxDrawdown, 1e-9)
}

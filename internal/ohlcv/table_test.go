package ohlcv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func uniformTable(n int) *Table {
	tbl := &Table{
		Timestamps: make([]time.Time, n),
		Open:       make([]float64, n),
		High:       make([]float64, n),
		Low:        make([]float64, n),
		Close:      make([]float64, n),
		Volume:     make([]float64, n),
	}
	base := time.Unix(0, 0).UTC()
	for i := 0; i < n; i++ {
		tbl.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		tbl.Open[i], tbl.High[i], tbl.Low[i], tbl.Close[i], tbl.Volume[i] = 1, 2, 0, 1, 10
	}
	return tbl
}

func TestValidateAcceptsUniformSpacing(t *testing.T) {
	tbl := uniformTable(5)
	assert.NoError(t, tbl.Validate())
}

func TestValidateRejectsColumnLengthMismatch(t *testing.T) {
	tbl := uniformTable(5)
	tbl.Volume = tbl.Volume[:4]
	assert.Error(t, tbl.Validate())
}

func TestValidateRejectsEmptyTable(t *testing.T) {
	assert.Error(t, (&Table{}).Validate())
}

func TestValidateRejectsNonIncreasingTimestamps(t *testing.T) {
	tbl := uniformTable(3)
	tbl.Timestamps[1] = tbl.Timestamps[0]
	assert.Error(t, tbl.Validate())
}

func TestValidateRejectsNonUniformSpacing(t *testing.T) {
	tbl := uniformTable(4)
	tbl.Timestamps[3] = tbl.Timestamps[2].Add(2 * time.Minute)
	assert.Error(t, tbl.Validate())
}

func TestValidateSingleBarNeedsNoSpacingCheck(t *testing.T) {
	tbl := uniformTable(1)
	assert.NoError(t, tbl.Validate())
}

func TestHL2HLC3HLCC4OHLC4AverageTheRightColumns(t *testing.T) {
	tbl := &Table{
		Open:  []float64{10},
		High:  []float64{12},
		Low:   []float64{8},
		Close: []float64{11},
	}
	assert.Equal(t, []float64{10}, tbl.HL2())            // (12+8)/2
	assert.InDelta(t, 31.0/3, tbl.HLC3()[0], 1e-9)        // (12+8+11)/3
	assert.InDelta(t, (12.0+8+11+11)/4, tbl.HLCC4()[0], 1e-9)
	assert.InDelta(t, (10.0+12+8+11)/4, tbl.OHLC4()[0], 1e-9)
}

func TestWindowSharesBackingArrayWithParent(t *testing.T) {
	tbl := uniformTable(10)
	w := tbl.Window(2, 5)
	assert.Equal(t, 3, w.Len())

	w.Close[0] = 999
	assert.Equal(t, 999.0, tbl.Close[2], "Window must share backing storage, not copy")
}

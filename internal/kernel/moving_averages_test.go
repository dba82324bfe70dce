package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMAWarmupIsNaN(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	out := SMA(x, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMANaNRecoversAfterWindowClears(t *testing.T) {
	x := []float64{1, 2, NaN, 4, 5, 6}
	out := SMA(x, 3)
	assert.True(t, math.IsNaN(out[2]))
	assert.True(t, math.IsNaN(out[3]))
	assert.True(t, math.IsNaN(out[4])) // window {NaN,4,5} still tainted
	assert.InDelta(t, 5.0, out[5], 1e-9) // window {4,5,6} clears
}

func TestEMAConvergesTowardConstantSeries(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 10
	}
	out := EMA(x, 5)
	assert.InDelta(t, 10.0, out[len(out)-1], 1e-6)
}

func TestWMAWeightsRecentBarsMore(t *testing.T) {
	x := []float64{1, 1, 1, 10}
	out := WMA(x, 4)
	assert.Greater(t, out[3], 4.0)
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossoverDetectsUpwardCross(t *testing.T) {
	a := []float64{1, 2, 5, 4}
	b := []float64{3, 3, 3, 3}
	out := Crossover(a, b)
	assert.Equal(t, []float64{0, 0, 1, 0}, out)
}

func TestCrossunderDetectsDownwardCross(t *testing.T) {
	a := []float64{5, 4, 1, 2}
	b := []float64{3, 3, 3, 3}
	out := Crossunder(a, b)
	assert.Equal(t, []float64{0, 0, 1, 0}, out)
}

func TestCrossoverIgnoresNaNBars(t *testing.T) {
	a := []float64{1, NaN, 5, 4}
	b := []float64{3, 3, 3, 3}
	out := Crossover(a, b)
	assert.Equal(t, 0.0, out[1])
	assert.Equal(t, 0.0, out[2]) // previous bar NaN so no comparable transition
}

func TestHighestLowestOverWindow(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	hi := Highest(x, 3)
	lo := Lowest(x, 3)
	assert.InDelta(t, 4.0, hi[2], 1e-9)
	assert.InDelta(t, 9.0, hi[5], 1e-9)
	assert.InDelta(t, 1.0, lo[2], 1e-9)
	assert.InDelta(t, 1.0, lo[3], 1e-9)
}

func TestRisingFallingMonotoneWindow(t *testing.T) {
	x := []float64{1, 2, 3, 4, 3, 2}
	rising := Rising(x, 3)
	assert.Equal(t, 1.0, rising[3])
	assert.Equal(t, 0.0, rising[4])

	falling := Falling(x, 2)
	assert.Equal(t, 1.0, falling[5])
	assert.Equal(t, 0.0, falling[3]) // still rising at index 3
}

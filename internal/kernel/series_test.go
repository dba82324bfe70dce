package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShiftPadsFrontWithNaN(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	out := Shift(x, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 1.0, out[2], 1e-9)
	assert.InDelta(t, 2.0, out[3], 1e-9)
}

func TestShiftNegativeKTreatedAsZero(t *testing.T) {
	x := []float64{1, 2, 3}
	out := Shift(x, -1)
	assert.Equal(t, x, out)
}

func TestArithmeticPropagatesNaN(t *testing.T) {
	a := []float64{1, NaN, 3}
	b := []float64{1, 2, 3}
	assert.True(t, math.IsNaN(Add(a, b)[1]))
	assert.InDelta(t, 6.0, Mul(a, b)[2], 1e-9)
}

func TestDivByZeroYieldsNaN(t *testing.T) {
	a := []float64{10, 10}
	b := []float64{0, 5}
	out := Div(a, b)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 2.0, out[1], 1e-9)
}

func TestMeanHelpersAverageAcrossSeries(t *testing.T) {
	a := []float64{10, 10}
	b := []float64{20, 20}
	c := []float64{30, 30}
	d := []float64{40, 40}
	assert.InDelta(t, 15.0, Mean2(a, b)[0], 1e-9)
	assert.InDelta(t, 20.0, Mean3(a, b, c)[0], 1e-9)
	assert.InDelta(t, 25.0, Mean4(a, b, c, d)[0], 1e-9)
}

func TestDiffFirstPositionIsNaN(t *testing.T) {
	x := []float64{5, 8, 4}
	out := Diff(x)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 3.0, out[1], 1e-9)
	assert.InDelta(t, -4.0, out[2], 1e-9)
}

func TestCoerceBoolTreatsNaNAndZeroAsFalse(t *testing.T) {
	x := []float64{0, 1, NaN, -1}
	out := CoerceBool(x)
	assert.Equal(t, []bool{false, true, false, true}, out)
}

func TestNzReplacesNaNWithDefault(t *testing.T) {
	x := []float64{NaN, 2, NaN}
	out := Nz(x, 7)
	assert.Equal(t, []float64{7, 2, 7}, out)
}

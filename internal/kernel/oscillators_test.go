package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSIStrictlyIncreasingApproaches100(t *testing.T) {
	x := make([]float64, 30)
	for i := range x {
		x[i] = float64(i)
	}
	out := RSI(x, 14)
	assert.InDelta(t, 100.0, out[len(out)-1], 1e-6)
}

func TestRSIStrictlyDecreasingApproachesZero(t *testing.T) {
	x := make([]float64, 30)
	for i := range x {
		x[i] = float64(30 - i)
	}
	out := RSI(x, 14)
	assert.True(t, math.IsNaN(out[len(out)-1]) || out[len(out)-1] < 1e-6)
}

func TestMACDHistogramIsLineMinusSignal(t *testing.T) {
	x := make([]float64, 60)
	for i := range x {
		x[i] = math.Sin(float64(i) / 5.0) * 10
	}
	r := MACD(x, 12, 26, 9)
	for i := 40; i < len(x); i++ {
		assert.InDelta(t, r.Line[i]-r.Signal[i], r.Hist[i], 1e-9)
	}
}

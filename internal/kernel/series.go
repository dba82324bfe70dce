// Package kernel implements the deterministic, allocation-frugal numerical
// primitives used by both the batch and step code paths: moving averages,
// oscillators, volatility bands, and trend detectors.
//
// Every kernel preserves input length and positional alignment: outputs
// are NaN-padded at leading positions until enough history exists. NaN
// propagates through arithmetic and coerces to false in boolean contexts,
// matching IEEE-754 semantics throughout.
package kernel

import "math"

// NaN is the canonical not-a-number sentinel used for unstabilized output.
var NaN = math.NaN()

func isNaN(x float64) bool { return math.IsNaN(x) }

// filled returns a new slice of length n filled with NaN.
func filled(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NaN
	}
	return out
}

// Shift returns a copy of x shifted right by k positions, NaN-padding the
// front. Implements Subscript(expr, k) lowering: historical lookback.
func Shift(x []float64, k int) []float64 {
	n := len(x)
	out := filled(n)
	if k < 0 {
		k = 0
	}
	for i := k; i < n; i++ {
		out[i] = x[i-k]
	}
	return out
}

// Add, Sub, Mul, Div are element-wise arithmetic over equal-length series;
// NaN operands propagate.
func Add(a, b []float64) []float64 { return zip(a, b, func(x, y float64) float64 { return x + y }) }
func Sub(a, b []float64) []float64 { return zip(a, b, func(x, y float64) float64 { return x - y }) }
func Mul(a, b []float64) []float64 { return zip(a, b, func(x, y float64) float64 { return x * y }) }
func Div(a, b []float64) []float64 {
	return zip(a, b, func(x, y float64) float64 {
		if y == 0 {
			return NaN
		}
		return x / y
	})
}

func zip(a, b []float64, f func(x, y float64) float64) []float64 {
	n := len(a)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(a[i]) || isNaN(b[i]) {
			out[i] = NaN
			continue
		}
		out[i] = f(a[i], b[i])
	}
	return out
}

// Mean2/Mean3/Mean4 compute element-wise averages — used for hl2/hlc3/
// hlcc4/ohlc4 derived series.
func Mean2(a, b []float64) []float64 {
	return zip(a, b, func(x, y float64) float64 { return (x + y) / 2 })
}

func Mean3(a, b, c []float64) []float64 {
	n := len(a)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(a[i]) || isNaN(b[i]) || isNaN(c[i]) {
			out[i] = NaN
			continue
		}
		out[i] = (a[i] + b[i] + c[i]) / 3
	}
	return out
}

func Mean4(a, b, c, d []float64) []float64 {
	n := len(a)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(a[i]) || isNaN(b[i]) || isNaN(c[i]) || isNaN(d[i]) {
			out[i] = NaN
			continue
		}
		out[i] = (a[i] + b[i] + c[i] + d[i]) / 4
	}
	return out
}

// Diff returns x[i]-x[i-1], NaN at position 0.
func Diff(x []float64) []float64 {
	n := len(x)
	out := filled(n)
	for i := 1; i < n; i++ {
		if isNaN(x[i]) || isNaN(x[i-1]) {
			continue
		}
		out[i] = x[i] - x[i-1]
	}
	return out
}

// CoerceBool maps a boolean-condition series to bool, with NaN -> false.
func CoerceBool(x []float64) []bool {
	out := make([]bool, len(x))
	for i, v := range x {
		out[i] = !isNaN(v) && v != 0
	}
	return out
}

// Nz replaces NaN in x with r (default 0 when r is omitted by the caller).
// When x has no NaNs, this is a no-op pass-through, matching the reference
// fillna behavior.
func Nz(x []float64, r float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if isNaN(v) {
			out[i] = r
		} else {
			out[i] = v
		}
	}
	return out
}

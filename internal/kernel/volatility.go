package kernel

import "math"

// TrueRange computes the per-bar true range: max(h-l, |h-c[-1]|, |l-c[-1]|);
// the first bar is simply h[0]-l[0].
func TrueRange(h, l, c []float64) []float64 {
	n := len(h)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = h[0] - l[0]
	for i := 1; i < n; i++ {
		if isNaN(h[i]) || isNaN(l[i]) || isNaN(c[i-1]) {
			out[i] = NaN
			continue
		}
		tr := h[i] - l[i]
		tr = math.Max(tr, math.Abs(h[i]-c[i-1]))
		tr = math.Max(tr, math.Abs(l[i]-c[i-1]))
		out[i] = tr
	}
	return out
}

// ATR is the RMA-smoothed true range.
func ATR(h, l, c []float64, length int) []float64 {
	return RMA(TrueRange(h, l, c), length)
}

// Stdev is the trailing population standard deviation over a window of
// length L.
func Stdev(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	if length <= 0 {
		return out
	}
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		mean := sumOf(window) / float64(length)
		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(length)
		out[i] = math.Sqrt(variance)
	}
	return out
}

// BBResult holds Bollinger Band output series.
type BBResult struct {
	Basis []float64
	Upper []float64
	Lower []float64
}

// BB computes sma, sma+mult*stdev, sma-mult*stdev (population std).
func BB(x []float64, length int, mult float64) BBResult {
	basis := SMA(x, length)
	dev := Stdev(x, length)
	n := len(x)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(basis[i]) || isNaN(dev[i]) {
			upper[i], lower[i] = NaN, NaN
			continue
		}
		upper[i] = basis[i] + mult*dev[i]
		lower[i] = basis[i] - mult*dev[i]
	}
	return BBResult{Basis: basis, Upper: upper, Lower: lower}
}

// BBW is Bollinger Band Width: (upper-lower)/basis.
func BBW(x []float64, length int, mult float64) []float64 {
	bb := BB(x, length, mult)
	n := len(x)
	out := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(bb.Basis[i]) || bb.Basis[i] == 0 {
			continue
		}
		out[i] = (bb.Upper[i] - bb.Lower[i]) / bb.Basis[i]
	}
	return out
}

// KCResult holds Keltner Channel output series.
type KCResult struct {
	Basis []float64
	Upper []float64
	Lower []float64
}

// KC computes ema(x,L), with bands at +/- mult*atr(h,l,c,L).
func KC(x, h, l, c []float64, length int, mult float64) KCResult {
	basis := EMA(x, length)
	rng := ATR(h, l, c, length)
	n := len(x)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(basis[i]) || isNaN(rng[i]) {
			upper[i], lower[i] = NaN, NaN
			continue
		}
		upper[i] = basis[i] + mult*rng[i]
		lower[i] = basis[i] - mult*rng[i]
	}
	return KCResult{Basis: basis, Upper: upper, Lower: lower}
}

// KCW is Keltner Channel Width: (upper-lower)/basis.
func KCW(x, h, l, c []float64, length int, mult float64) []float64 {
	kc := KC(x, h, l, c, length, mult)
	n := len(x)
	out := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(kc.Basis[i]) || kc.Basis[i] == 0 {
			continue
		}
		out[i] = (kc.Upper[i] - kc.Lower[i]) / kc.Basis[i]
	}
	return out
}

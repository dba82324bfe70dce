package kernel

import "math"

// RSI computes the Relative Strength Index: gain/loss split from diff(x),
// each RMA-smoothed, then 100 - 100/(1+gain/loss). loss=0 -> 100 if gain>0
// else NaN (constant input). Either RMA NaN propagates. First position is
// NaN (diff seed).
func RSI(x []float64, length int) []float64 {
	n := len(x)
	d := Diff(x)
	gain := make([]float64, n)
	loss := make([]float64, n)
	gain[0], loss[0] = NaN, NaN
	for i := 1; i < n; i++ {
		if isNaN(d[i]) {
			gain[i], loss[i] = NaN, NaN
			continue
		}
		if d[i] > 0 {
			gain[i] = d[i]
			loss[i] = 0
		} else {
			gain[i] = 0
			loss[i] = -d[i]
		}
	}
	avgGain := RMA(gain, length)
	avgLoss := RMA(loss, length)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(avgGain[i]) || isNaN(avgLoss[i]) {
			out[i] = NaN
			continue
		}
		if avgLoss[i] == 0 {
			if avgGain[i] > 0 {
				out[i] = 100
			} else {
				out[i] = NaN
			}
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACDResult holds the three MACD output series.
type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// MACD computes (ema(x,fast)-ema(x,slow), ema(line,signal), line-signal).
func MACD(x []float64, fast, slow, signal int) MACDResult {
	line := Sub(EMA(x, fast), EMA(x, slow))
	sig := EMA(line, signal)
	hist := Sub(line, sig)
	return MACDResult{Line: line, Signal: sig, Hist: hist}
}

// CCI is (x - mean)/(0.015 * mean_absolute_deviation) over a trailing
// window of length L.
func CCI(x []float64, length int) []float64 {
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
		mad := 0.0
		for _, v := range window {
			mad += math.Abs(v - mean)
		}
		mad /= float64(length)
		if mad == 0 {
			continue
		}
		out[i] = (x[i] - mean) / (0.015 * mad)
	}
	return out
}

func sumOf(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}

// PercentRank, over the trailing L+1 window, is the count of prior values
// <= the last value, divided by L, times 100.
func PercentRank(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	for i := length; i < n; i++ {
		window := x[i-length : i+1]
		if hasNaN(window) {
			continue
		}
		last := window[length]
		count := 0
		for k := 0; k < length; k++ {
			if window[k] <= last {
				count++
			}
		}
		out[i] = float64(count) / float64(length) * 100
	}
	return out
}

// StochResult holds the %K and %D stochastic output series.
type StochResult struct {
	K []float64
	D []float64
}

// Stoch computes raw = 100*(c-min(l,L))/(max(h,L)-min(l,L)) (range 0 ->
// NaN), then SMA-smooths by k, then by d.
func Stoch(c, h, l []float64, length, kSmooth, dSmooth int) StochResult {
	n := len(c)
	lowest := Lowest(l, length)
	highest := Highest(h, length)
	raw := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(lowest[i]) || isNaN(highest[i]) || isNaN(c[i]) {
			continue
		}
		rng := highest[i] - lowest[i]
		if rng == 0 {
			continue
		}
		raw[i] = 100 * (c[i] - lowest[i]) / rng
	}
	k := SMA(raw, kSmooth)
	d := SMA(k, dSmooth)
	return StochResult{K: k, D: d}
}

// CMO is the Chande Momentum Oscillator: 100*(sumUp-sumDown)/(sumUp+sumDown)
// over the trailing L differences.
func CMO(x []float64, length int) []float64 {
	n := len(x)
	d := Diff(x)
	out := filled(n)
	for i := length; i < n; i++ {
		window := d[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		up, down := 0.0, 0.0
		for _, v := range window {
			if v > 0 {
				up += v
			} else {
				down -= v
			}
		}
		if up+down == 0 {
			continue
		}
		out[i] = 100 * (up - down) / (up + down)
	}
	return out
}

// ROC is the rate of change: 100*(x[i]-x[i-L])/x[i-L].
func ROC(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	for i := length; i < n; i++ {
		if isNaN(x[i]) || isNaN(x[i-length]) || x[i-length] == 0 {
			continue
		}
		out[i] = 100 * (x[i] - x[i-length]) / x[i-length]
	}
	return out
}

// Mom is the raw momentum: x[i]-x[i-L].
func Mom(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	for i := length; i < n; i++ {
		if isNaN(x[i]) || isNaN(x[i-length]) {
			continue
		}
		out[i] = x[i] - x[i-length]
	}
	return out
}

// TSI is the True Strength Index: double-EMA-smoothed momentum divided by
// double-EMA-smoothed absolute momentum, times 100.
func TSI(x []float64, long, short int) []float64 {
	n := len(x)
	d := Diff(x)
	absD := make([]float64, n)
	for i, v := range d {
		if isNaN(v) {
			absD[i] = NaN
		} else {
			absD[i] = math.Abs(v)
		}
	}
	numer := EMA(EMA(d, long), short)
	denom := EMA(EMA(absD, long), short)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(numer[i]) || isNaN(denom[i]) || denom[i] == 0 {
			out[i] = NaN
			continue
		}
		out[i] = 100 * numer[i] / denom[i]
	}
	return out
}

// WPR is the Williams %R: -100*(highest(h,L)-c)/(highest(h,L)-lowest(l,L)).
func WPR(h, l, c []float64, length int) []float64 {
	n := len(c)
	hh := Highest(h, length)
	ll := Lowest(l, length)
	out := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(hh[i]) || isNaN(ll[i]) || isNaN(c[i]) {
			continue
		}
		rng := hh[i] - ll[i]
		if rng == 0 {
			continue
		}
		out[i] = -100 * (hh[i] - c[i]) / rng
	}
	return out
}

// MFI is the Money Flow Index. source is accepted for signature symmetry
// with the other oscillators but, matching the original, plays no part in
// the calculation: raw money flow is always typical price * volume.
func MFI(source, h, l, c, volume []float64, length int) []float64 {
	n := len(c)
	typical := make([]float64, n)
	for i := 0; i < n; i++ {
		typical[i] = (h[i] + l[i] + c[i]) / 3
	}
	rawFlow := Mul(typical, volume)
	pos := filled(n)
	neg := filled(n)
	for i := 1; i < n; i++ {
		if isNaN(typical[i]) || isNaN(typical[i-1]) || isNaN(rawFlow[i]) {
			continue
		}
		if typical[i] > typical[i-1] {
			pos[i] = rawFlow[i]
		} else {
			neg[i] = rawFlow[i]
		}
	}
	posSum := rollingSum(pos, length)
	negSum := rollingSum(neg, length)
	out := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(posSum[i]) || isNaN(negSum[i]) {
			continue
		}
		if negSum[i] == 0 {
			if posSum[i] > 0 {
				out[i] = 100
			}
			continue
		}
		mr := posSum[i] / negSum[i]
		out[i] = 100 - 100/(1+mr)
	}
	return out
}

func rollingSum(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	sum := 0.0
	for i := 0; i < n; i++ {
		v := x[i]
		if isNaN(v) {
			v = 0
		}
		sum += v
		if i >= length {
			pv := x[i-length]
			if isNaN(pv) {
				pv = 0
			}
			sum -= pv
		}
		if i >= length-1 {
			out[i] = sum
		}
	}
	return out
}

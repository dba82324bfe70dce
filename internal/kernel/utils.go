package kernel

import "sort"

// Highest is the trailing maximum over a window of length L.
func Highest(x []float64, length int) []float64 {
	return rollingExtreme(x, length, func(a, b float64) bool { return a > b })
}

// Lowest is the trailing minimum over a window of length L.
func Lowest(x []float64, length int) []float64 {
	return rollingExtreme(x, length, func(a, b float64) bool { return a < b })
}

func rollingExtreme(x []float64, length int, better func(a, b float64) bool) []float64 {
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
		best := window[0]
		for _, v := range window[1:] {
			if better(v, best) {
				best = v
			}
		}
		out[i] = best
	}
	return out
}

// Change is x[i]-x[i-L].
func Change(x []float64, length int) []float64 {
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

// Median is the trailing median over a window of length L.
func Median(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	if length <= 0 {
		return out
	}
	buf := make([]float64, length)
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		copy(buf, window)
		sort.Float64s(buf)
		if length%2 == 1 {
			out[i] = buf[length/2]
		} else {
			out[i] = (buf[length/2-1] + buf[length/2]) / 2
		}
	}
	return out
}

// RangeIndicator is the trailing high-low range: highest(h,L)-lowest(l,L).
// Renamed internally from "range" to avoid a target-language builtin
// collision; ta.range is the source-facing spelling.
func RangeIndicator(h, l []float64, length int) []float64 {
	hh := Highest(h, length)
	ll := Lowest(l, length)
	n := len(h)
	out := filled(n)
	for i := 0; i < n; i++ {
		if isNaN(hh[i]) || isNaN(ll[i]) {
			continue
		}
		out[i] = hh[i] - ll[i]
	}
	return out
}

// Rising reports whether x has increased for L consecutive bars.
func Rising(x []float64, length int) []float64 {
	return monotone(x, length, func(a, b float64) bool { return a > b })
}

// Falling reports whether x has decreased for L consecutive bars.
func Falling(x []float64, length int) []float64 {
	return monotone(x, length, func(a, b float64) bool { return a < b })
}

func monotone(x []float64, length int, holds func(a, b float64) bool) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < length {
			out[i] = 0
			continue
		}
		ok := true
		for k := 0; k < length; k++ {
			a, b := x[i-k], x[i-k-1]
			if isNaN(a) || isNaN(b) || !holds(a, b) {
				ok = false
				break
			}
		}
		if ok {
			out[i] = 1
		}
	}
	return out
}

// Cum is the running cumulative sum, treating NaN as 0.
func Cum(x []float64) []float64 {
	out := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		if !isNaN(v) {
			sum += v
		}
		out[i] = sum
	}
	return out
}

// Crossover reports a[i]>b[i] && a[i-1]<=b[i-1]. b may be a scalar series
// (e.g. a constant broadcast by the caller).
func Crossover(a, b []float64) []float64 {
	return crossBool(a, b, func(ai, bi, ap, bp float64) bool { return ai > bi && ap <= bp })
}

// Crossunder reports a[i]<b[i] && a[i-1]>=b[i-1].
func Crossunder(a, b []float64) []float64 {
	return crossBool(a, b, func(ai, bi, ap, bp float64) bool { return ai < bi && ap >= bp })
}

// Cross reports either a Crossover or a Crossunder at each bar.
func Cross(a, b []float64) []float64 {
	n := len(a)
	over := Crossover(a, b)
	under := Crossunder(a, b)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if over[i] != 0 || under[i] != 0 {
			out[i] = 1
		}
	}
	return out
}

func crossBool(a, b []float64, f func(ai, bi, ap, bp float64) bool) []float64 {
	n := len(a)
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		if isNaN(a[i]) || isNaN(b[i]) || isNaN(a[i-1]) || isNaN(b[i-1]) {
			continue
		}
		if f(a[i], b[i], a[i-1], b[i-1]) {
			out[i] = 1
		}
	}
	return out
}

// Broadcast returns a constant series of length n for comparing a series
// against a scalar threshold (e.g. crossover(rsi, 30)).
func Broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

package kernel

import "math"

// OBV is the On-Balance Volume: cumulative volume signed by the direction
// of the close-to-close change.
func OBV(c, volume []float64) []float64 {
	n := len(c)
	out := make([]float64, n)
	running := 0.0
	for i := 0; i < n; i++ {
		if i == 0 {
			out[i] = 0
			continue
		}
		if isNaN(c[i]) || isNaN(c[i-1]) || isNaN(volume[i]) {
			out[i] = running
			continue
		}
		switch {
		case c[i] > c[i-1]:
			running += volume[i]
		case c[i] < c[i-1]:
			running -= volume[i]
		}
		out[i] = running
	}
	return out
}

// AccDist is the Accumulation/Distribution line.
func AccDist(h, l, c, volume []float64) []float64 {
	n := len(h)
	out := make([]float64, n)
	running := 0.0
	for i := 0; i < n; i++ {
		if isNaN(h[i]) || isNaN(l[i]) || isNaN(c[i]) || isNaN(volume[i]) || h[i] == l[i] {
			out[i] = running
			continue
		}
		mfm := ((c[i] - l[i]) - (h[i] - c[i])) / (h[i] - l[i])
		running += mfm * volume[i]
		out[i] = running
	}
	return out
}

// PVT is the Price Volume Trend: cumulative volume * percent price change.
func PVT(c, volume []float64) []float64 {
	n := len(c)
	out := make([]float64, n)
	running := 0.0
	for i := 1; i < n; i++ {
		if isNaN(c[i]) || isNaN(c[i-1]) || isNaN(volume[i]) || c[i-1] == 0 {
			out[i] = running
			continue
		}
		running += volume[i] * (c[i] - c[i-1]) / c[i-1]
		out[i] = running
	}
	return out
}

// WAD is Williams Accumulation/Distribution.
func WAD(h, l, c []float64) []float64 {
	n := len(h)
	out := make([]float64, n)
	running := 0.0
	for i := 1; i < n; i++ {
		if isNaN(h[i]) || isNaN(l[i]) || isNaN(c[i]) || isNaN(c[i-1]) {
			out[i] = running
			continue
		}
		trh := math.Max(h[i], c[i-1])
		trl := math.Min(l[i], c[i-1])
		switch {
		case c[i] > c[i-1]:
			running += c[i] - trl
		case c[i] < c[i-1]:
			running += c[i] - trh
		}
		out[i] = running
	}
	return out
}

// VWAP is the cumulative volume-weighted average price.
func VWAP(h, l, c, volume []float64) []float64 {
	n := len(h)
	tp := Mean3(h, l, c)
	out := filled(n)
	cumPV, cumV := 0.0, 0.0
	for i := 0; i < n; i++ {
		if isNaN(tp[i]) || isNaN(volume[i]) {
			continue
		}
		cumPV += tp[i] * volume[i]
		cumV += volume[i]
		if cumV == 0 {
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}

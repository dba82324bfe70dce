package kernel

import "math"

// SMA is the arithmetic mean of the trailing L values; NaN if any trailing
// value is NaN or the index is below L-1.
func SMA(x []float64, length int) []float64 {
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
		out[i] = sumOf(window) / float64(length)
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if isNaN(v) {
			return true
		}
	}
	return false
}

// EMA applies the exponential weighted moving average with alpha=2/(L+1).
// Seeded at out[0]=x[0]; when x[i] is NaN the previous output carries
// forward (adjust=false convention).
func EMA(x []float64, length int) []float64 {
	return ewma(x, 2.0/(float64(length)+1.0))
}

// RMA is Wilder's smoothing: EMA with alpha=1/L.
func RMA(x []float64, length int) []float64 {
	if length <= 0 {
		return filled(len(x))
	}
	return ewma(x, 1.0/float64(length))
}

func ewma(x []float64, alpha float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = x[0]
	for i := 1; i < n; i++ {
		if isNaN(x[i]) {
			out[i] = out[i-1]
			continue
		}
		if isNaN(out[i-1]) {
			out[i] = x[i]
			continue
		}
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// WMA is the trailing linearly-weighted mean with weights 1..L.
func WMA(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	if length <= 0 {
		return out
	}
	norm := float64(length*(length+1)) / 2
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		sum := 0.0
		for k, v := range window {
			sum += v * float64(k+1)
		}
		out[i] = sum / norm
	}
	return out
}

// VWMA is volume-weighted moving average.
func VWMA(x, volume []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	if length <= 0 {
		return out
	}
	for i := length - 1; i < n; i++ {
		xw := x[i-length+1 : i+1]
		vw := volume[i-length+1 : i+1]
		if hasNaN(xw) || hasNaN(vw) {
			continue
		}
		num, den := 0.0, 0.0
		for k := range xw {
			num += xw[k] * vw[k]
			den += vw[k]
		}
		if den == 0 {
			continue
		}
		out[i] = num / den
	}
	return out
}

// HMA is the Hull moving average: WMA(2*WMA(x,L/2)-WMA(x,L), sqrt(L)).
func HMA(x []float64, length int) []float64 {
	half := length / 2
	sqrtL := int(math.Sqrt(float64(length)))
	wmaHalf := WMA(x, half)
	wmaFull := WMA(x, length)
	diff := make([]float64, len(x))
	for i := range x {
		if isNaN(wmaHalf[i]) || isNaN(wmaFull[i]) {
			diff[i] = NaN
			continue
		}
		diff[i] = 2*wmaHalf[i] - wmaFull[i]
	}
	return WMA(diff, sqrtL)
}

// ALMA is the Arnaud Legoux moving average: a Gaussian-weighted trailing
// mean with weights exp(-(k-m)^2/(2s^2)), m=offset*(L-1), s=L/sigma.
func ALMA(x []float64, length int, offset, sigma float64) []float64 {
	n := len(x)
	out := filled(n)
	if length <= 0 {
		return out
	}
	m := offset * float64(length-1)
	s := float64(length) / sigma
	weights := make([]float64, length)
	norm := 0.0
	for k := 0; k < length; k++ {
		w := math.Exp(-((float64(k) - m) * (float64(k) - m)) / (2 * s * s))
		weights[k] = w
		norm += w
	}
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		sum := 0.0
		for k, v := range window {
			sum += v * weights[k]
		}
		out[i] = sum / norm
	}
	return out
}

// SWMA is the fixed symmetric 4-bar weighted average with weights 1,2,2,1
// over 6.
func SWMA(x []float64) []float64 {
	n := len(x)
	out := filled(n)
	for i := 3; i < n; i++ {
		window := x[i-3 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = (window[0] + 2*window[1] + 2*window[2] + window[3]) / 6
	}
	return out
}

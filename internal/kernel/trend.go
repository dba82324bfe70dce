package kernel

import "math"

// DMIResult holds the Directional Movement Index output series.
type DMIResult struct {
	PlusDI []float64
	MinusDI []float64
	ADX     []float64
}

// DMI computes +DM/-DM from directional moves, RMA-smooths each against
// ATR into +DI/-DI, then DX and its RMA-smoothed ADX.
func DMI(h, l, c []float64, diLength, adxLength int) DMIResult {
	n := len(h)
	plusDM := filled(n)
	minusDM := filled(n)
	for i := 1; i < n; i++ {
		if isNaN(h[i]) || isNaN(h[i-1]) || isNaN(l[i]) || isNaN(l[i-1]) {
			continue
		}
		up := h[i] - h[i-1]
		down := l[i-1] - l[i]
		if up > down && up > 0 {
			plusDM[i] = up
		} else {
			plusDM[i] = 0
		}
		if down > up && down > 0 {
			minusDM[i] = down
		} else {
			minusDM[i] = 0
		}
	}
	atr := ATR(h, l, c, diLength)
	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)
	smPlus := RMA(plusDM, diLength)
	smMinus := RMA(minusDM, diLength)
	for i := 0; i < n; i++ {
		if isNaN(atr[i]) || atr[i] == 0 || isNaN(smPlus[i]) || isNaN(smMinus[i]) {
			plusDI[i], minusDI[i], dx[i] = NaN, NaN, NaN
			continue
		}
		plusDI[i] = 100 * smPlus[i] / atr[i]
		minusDI[i] = 100 * smMinus[i] / atr[i]
		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			dx[i] = NaN
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}
	adx := RMA(dx, adxLength)
	return DMIResult{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}
}

// SuperTrendResult holds the SuperTrend line and direction series.
// Direction -1 encodes bullish (price above line), +1 bearish.
type SuperTrendResult struct {
	Line []float64
	Dir  []float64
}

// SuperTrend implements the band-tightening and direction-flip state
// machine described in the kernel contract.
func SuperTrend(h, l, c []float64, factor float64, length int) SuperTrendResult {
	n := len(h)
	hl2 := Mean2(h, l)
	atr := ATR(h, l, c, length)
	ubRaw := make([]float64, n)
	lbRaw := make([]float64, n)
	for i := 0; i < n; i++ {
		if isNaN(hl2[i]) || isNaN(atr[i]) {
			ubRaw[i], lbRaw[i] = NaN, NaN
			continue
		}
		ubRaw[i] = hl2[i] + factor*atr[i]
		lbRaw[i] = hl2[i] - factor*atr[i]
	}

	ub := make([]float64, n)
	lb := make([]float64, n)
	dir := make([]float64, n)
	line := make([]float64, n)
	if n == 0 {
		return SuperTrendResult{Line: line, Dir: dir}
	}

	ub[0] = ubRaw[0]
	lb[0] = lbRaw[0]
	dir[0] = 1
	line[0] = 0

	for i := 1; i < n; i++ {
		if isNaN(ubRaw[i]) || isNaN(lbRaw[i]) {
			line[i] = NaN
			dir[i] = dir[i-1]
			ub[i] = ub[i-1]
			lb[i] = lb[i-1]
			continue
		}
		if ubRaw[i] < ub[i-1] || c[i-1] > ub[i-1] {
			ub[i] = ubRaw[i]
		} else {
			ub[i] = ub[i-1]
		}
		if lbRaw[i] > lb[i-1] || c[i-1] < lb[i-1] {
			lb[i] = lbRaw[i]
		} else {
			lb[i] = lb[i-1]
		}

		if dir[i-1] == -1 {
			if c[i] < lb[i] {
				dir[i] = 1
				line[i] = ub[i]
			} else {
				dir[i] = -1
				line[i] = lb[i]
			}
		} else {
			if c[i] > ub[i] {
				dir[i] = -1
				line[i] = lb[i]
			} else {
				dir[i] = 1
				line[i] = ub[i]
			}
		}
	}
	return SuperTrendResult{Line: line, Dir: dir}
}

// SARResult holds the Parabolic SAR output series.
type SARResult struct {
	Line []float64
}

// SAR implements the trend/ep/af recurrence described in the kernel
// contract: trend in {+1 uptrend, -1 downtrend}.
func SAR(h, l []float64, start, increment, max float64) SARResult {
	n := len(h)
	out := make([]float64, n)
	if n == 0 {
		return SARResult{Line: out}
	}

	trend := 1.0
	ep := h[0]
	af := start
	out[0] = l[0]

	for i := 1; i < n; i++ {
		prev := out[i-1]
		psar := prev + af*(ep-prev)

		if trend == 1 {
			if i >= 2 {
				psar = math.Min(psar, math.Min(l[i-1], l[i-2]))
			} else {
				psar = math.Min(psar, l[i-1])
			}
			if l[i] < psar {
				trend = -1
				psar = ep
				ep = l[i]
				af = start
			} else if h[i] > ep {
				ep = h[i]
				af = math.Min(af+increment, max)
			}
		} else {
			if i >= 2 {
				psar = math.Max(psar, math.Max(h[i-1], h[i-2]))
			} else {
				psar = math.Max(psar, h[i-1])
			}
			if h[i] > psar {
				trend = 1
				psar = ep
				ep = h[i]
				af = start
			} else if l[i] < ep {
				ep = l[i]
				af = math.Min(af+increment, max)
			}
		}
		out[i] = psar
	}
	return SARResult{Line: out}
}

// COG is the center of gravity oscillator: -sum(x_i*(i+1))/sum(x_i) over
// the trailing L window.
func COG(x []float64, length int) []float64 {
	n := len(x)
	out := filled(n)
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		num, den := 0.0, 0.0
		for k, v := range window {
			num += v * float64(k+1)
			den += v
		}
		if den == 0 {
			continue
		}
		out[i] = -num / den
	}
	return out
}

// LinReg is the least-squares regression value at offset `off` from the
// end of a trailing window of length L: intercept + slope*(L-1-off).
func LinReg(x []float64, length, off int) []float64 {
	n := len(x)
	out := filled(n)
	for i := length - 1; i < n; i++ {
		window := x[i-length+1 : i+1]
		if hasNaN(window) {
			continue
		}
		slope, intercept := leastSquares(window)
		out[i] = intercept + slope*float64(length-1-off)
	}
	return out
}

func leastSquares(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

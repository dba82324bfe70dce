package codegen

import (
	"fmt"
	"math"

	"pinebt/internal/ast"
	"pinebt/internal/kernel"
)

// evalCall evaluates a (possibly namespaced) function call after applying
// implicit-argument injection and name canonicalization, returning every
// output series the call produces (length 1 for single-output kernels).
func evalCall(call *ast.FuncCall, env *Env) ([][]float64, error) {
	name := canonicalName(call.Name)
	args := applyInjection(name, call.Positional())
	named := call.Named()

	arg := func(i int) (ast.Expr, bool) {
		if i < len(args) {
			return args[i], true
		}
		return nil, false
	}
	series := func(i int) ([]float64, error) {
		e, ok := arg(i)
		if !ok {
			return nil, fmt.Errorf("codegen: %s: missing argument %d", name, i)
		}
		return evalExpr(e, env)
	}
	intArg := func(i int, def int) (int, error) {
		e, ok := arg(i)
		if !ok {
			if names := intArgNames[name]; i < len(names) && names[i] != "" {
				if n, ok2 := named[names[i]]; ok2 {
					e = n
					ok = true
				}
			}
			if !ok {
				return def, nil
			}
		}
		n, err := resolveInt(e, env)
		if err == nil {
			env.trackPeriod(n)
		}
		return n, err
	}
	floatArg := func(i int, def float64) (float64, error) {
		e, ok := arg(i)
		if !ok {
			return def, nil
		}
		return resolveScalar(e, env)
	}

	switch name {
	case "sma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.SMA(src, l)), nil
	case "ema":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.EMA(src, l)), nil
	case "rma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.RMA(src, l)), nil
	case "wma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.WMA(src, l)), nil
	case "vwma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		vol, err := series(1)
		if err != nil {
			return nil, err
		}
		l, err := intArg(2, 20)
		if err != nil {
			return nil, err
		}
		return one(kernel.VWMA(src, vol, l)), nil
	case "hma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 9)
		if err != nil {
			return nil, err
		}
		return one(kernel.HMA(src, l)), nil
	case "alma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 9)
		if err != nil {
			return nil, err
		}
		offset, err := floatArg(2, 0.85)
		if err != nil {
			return nil, err
		}
		sigma, err := floatArg(3, 6)
		if err != nil {
			return nil, err
		}
		return one(kernel.ALMA(src, l, offset, sigma)), nil
	case "swma":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(kernel.SWMA(src)), nil
	case "rsi":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.RSI(src, l)), nil
	case "macd":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		fast, err := intArg(1, 12)
		if err != nil {
			return nil, err
		}
		slow, err := intArg(2, 26)
		if err != nil {
			return nil, err
		}
		sig, err := intArg(3, 9)
		if err != nil {
			return nil, err
		}
		r := kernel.MACD(src, fast, slow, sig)
		return [][]float64{r.Line, r.Signal, r.Hist}, nil
	case "cci":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 20)
		if err != nil {
			return nil, err
		}
		return one(kernel.CCI(src, l)), nil
	case "percentrank", "percent_rank":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 100)
		if err != nil {
			return nil, err
		}
		return one(kernel.PercentRank(src, l)), nil
	case "stoch":
		c, err := series(0)
		if err != nil {
			return nil, err
		}
		h, err := series(1)
		if err != nil {
			return nil, err
		}
		l, err := series(2)
		if err != nil {
			return nil, err
		}
		length, err := intArg(3, 14)
		if err != nil {
			return nil, err
		}
		kSmooth, err := intArg(4, 1)
		if err != nil {
			return nil, err
		}
		dSmooth, err := intArg(5, 3)
		if err != nil {
			return nil, err
		}
		r := kernel.Stoch(c, h, l, length, kSmooth, dSmooth)
		return [][]float64{r.K, r.D}, nil
	case "cmo":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 9)
		if err != nil {
			return nil, err
		}
		return one(kernel.CMO(src, l)), nil
	case "roc":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 9)
		if err != nil {
			return nil, err
		}
		return one(kernel.ROC(src, l)), nil
	case "mom":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 10)
		if err != nil {
			return nil, err
		}
		return one(kernel.Mom(src, l)), nil
	case "tsi":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		long, err := intArg(1, 25)
		if err != nil {
			return nil, err
		}
		short, err := intArg(2, 13)
		if err != nil {
			return nil, err
		}
		return one(kernel.TSI(src, long, short)), nil
	case "wpr":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		length, err := intArg(3, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.WPR(h, l, c, length)), nil
	case "mfi":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		h, err := series(1)
		if err != nil {
			return nil, err
		}
		l, err := series(2)
		if err != nil {
			return nil, err
		}
		c, err := series(3)
		if err != nil {
			return nil, err
		}
		vol, err := series(4)
		if err != nil {
			return nil, err
		}
		length, err := intArg(5, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.MFI(src, h, l, c, vol, length)), nil
	case "atr":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		length, err := intArg(3, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.ATR(h, l, c, length)), nil
	case "stdev":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 5)
		if err != nil {
			return nil, err
		}
		return one(kernel.Stdev(src, l)), nil
	case "bb":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 20)
		if err != nil {
			return nil, err
		}
		mult, err := floatArg(2, 2)
		if err != nil {
			return nil, err
		}
		r := kernel.BB(src, l, mult)
		return [][]float64{r.Basis, r.Upper, r.Lower}, nil
	case "bbw":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 20)
		if err != nil {
			return nil, err
		}
		mult, err := floatArg(2, 2)
		if err != nil {
			return nil, err
		}
		return one(kernel.BBW(src, l, mult)), nil
	case "kc":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		h, err := series(1)
		if err != nil {
			return nil, err
		}
		l, err := series(2)
		if err != nil {
			return nil, err
		}
		c, err := series(3)
		if err != nil {
			return nil, err
		}
		length, err := intArg(4, 20)
		if err != nil {
			return nil, err
		}
		mult, err := floatArg(5, 1.5)
		if err != nil {
			return nil, err
		}
		r := kernel.KC(src, h, l, c, length, mult)
		return [][]float64{r.Basis, r.Upper, r.Lower}, nil
	case "kcw":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		h, err := series(1)
		if err != nil {
			return nil, err
		}
		l, err := series(2)
		if err != nil {
			return nil, err
		}
		c, err := series(3)
		if err != nil {
			return nil, err
		}
		length, err := intArg(4, 20)
		if err != nil {
			return nil, err
		}
		mult, err := floatArg(5, 1.5)
		if err != nil {
			return nil, err
		}
		return one(kernel.KCW(src, h, l, c, length, mult)), nil
	case "dmi":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		diLen, err := intArg(3, 14)
		if err != nil {
			return nil, err
		}
		adxLen, err := intArg(4, 14)
		if err != nil {
			return nil, err
		}
		r := kernel.DMI(h, l, c, diLen, adxLen)
		return [][]float64{r.PlusDI, r.MinusDI, r.ADX}, nil
	case "supertrend":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		factor, err := floatArg(3, 3)
		if err != nil {
			return nil, err
		}
		length, err := intArg(4, 10)
		if err != nil {
			return nil, err
		}
		r := kernel.SuperTrend(h, l, c, factor, length)
		return [][]float64{r.Line, r.Dir}, nil
	case "sar":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		start, err := floatArg(2, 0.02)
		if err != nil {
			return nil, err
		}
		inc, err := floatArg(3, 0.02)
		if err != nil {
			return nil, err
		}
		maxAF, err := floatArg(4, 0.2)
		if err != nil {
			return nil, err
		}
		r := kernel.SAR(h, l, start, inc, maxAF)
		return one(r.Line), nil
	case "cog":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 10)
		if err != nil {
			return nil, err
		}
		return one(kernel.COG(src, l)), nil
	case "linreg":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		off, err := intArg(2, 0)
		if err != nil {
			return nil, err
		}
		return one(kernel.LinReg(src, l, off)), nil
	case "highest":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.Highest(src, l)), nil
	case "lowest":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.Lowest(src, l)), nil
	case "change":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Change(src, l)), nil
	case "median":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 3)
		if err != nil {
			return nil, err
		}
		return one(kernel.Median(src, l)), nil
	case "range_indicator":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		length, err := intArg(2, 14)
		if err != nil {
			return nil, err
		}
		return one(kernel.RangeIndicator(h, l, length)), nil
	case "rising":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Rising(src, l)), nil
	case "falling":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := intArg(1, 1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Falling(src, l)), nil
	case "cum":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(kernel.Cum(src)), nil
	case "crossover":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Crossover(a, b)), nil
	case "crossunder":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Crossunder(a, b)), nil
	case "cross":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(kernel.Cross(a, b)), nil
	case "obv":
		c, err := series(0)
		if err != nil {
			return nil, err
		}
		vol, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(kernel.OBV(c, vol)), nil
	case "accdist":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		vol, err := series(3)
		if err != nil {
			return nil, err
		}
		return one(kernel.AccDist(h, l, c, vol)), nil
	case "pvt":
		c, err := series(0)
		if err != nil {
			return nil, err
		}
		vol, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(kernel.PVT(c, vol)), nil
	case "wad":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		return one(kernel.WAD(h, l, c)), nil
	case "vwap":
		h, err := series(0)
		if err != nil {
			return nil, err
		}
		l, err := series(1)
		if err != nil {
			return nil, err
		}
		c, err := series(2)
		if err != nil {
			return nil, err
		}
		vol, err := series(3)
		if err != nil {
			return nil, err
		}
		return one(kernel.VWAP(h, l, c, vol)), nil
	case "nz":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		r, err := floatArg(1, 0)
		if err != nil {
			return nil, err
		}
		return one(kernel.Nz(src, r)), nil
	case "abs":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Abs)), nil
	case "sqrt":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Sqrt)), nil
	case "log":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Log)), nil
	case "log10":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Log10)), nil
	case "ceil":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Ceil)), nil
	case "floor":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Floor)), nil
	case "round":
		src, err := series(0)
		if err != nil {
			return nil, err
		}
		return one(mapSeries(src, math.Round)), nil
	case "pow":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(zip2(a, b, math.Pow)), nil
	case "max":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(zip2(a, b, math.Max)), nil
	case "min":
		a, err := series(0)
		if err != nil {
			return nil, err
		}
		b, err := series(1)
		if err != nil {
			return nil, err
		}
		return one(zip2(a, b, math.Min)), nil
	default:
		return nil, fmt.Errorf("codegen: unknown kernel function %q", name)
	}
}

func one(s []float64) [][]float64 { return [][]float64{s} }

func mapSeries(x []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if isNaN(v) {
			out[i] = kernel.NaN
			continue
		}
		out[i] = f(v)
	}
	return out
}

func zip2(a, b []float64, f func(float64, float64) float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if isNaN(a[i]) || isNaN(b[i]) {
			out[i] = kernel.NaN
			continue
		}
		out[i] = f(a[i], b[i])
	}
	return out
}

// resolveScalar evaluates e as a compile-time-constant scalar: a literal,
// a bound input parameter, or (last resort) the first element of its
// evaluated series.
func resolveScalar(e ast.Expr, env *Env) (float64, error) {
	switch v := e.(type) {
	case *ast.Literal:
		if v.Kind == ast.LitNumber {
			return v.Num, nil
		}
	case *ast.Ident:
		if p, ok := env.Params[v.Name]; ok {
			return p, nil
		}
	}
	s, err := evalExpr(e, env)
	if err != nil {
		return 0, err
	}
	if len(s) == 0 {
		return 0, fmt.Errorf("codegen: cannot resolve scalar argument")
	}
	return s[0], nil
}

func resolveInt(e ast.Expr, env *Env) (int, error) {
	v, err := resolveScalar(e, env)
	if err != nil {
		return 0, err
	}
	return int(math.Round(v)), nil
}

// intArgNames supports named-argument lookup for a handful of kernels
// whose period arguments are commonly passed by keyword.
var intArgNames = map[string][]string{
	"sma":    {"source", "length"},
	"ema":    {"source", "length"},
	"rma":    {"source", "length"},
	"wma":    {"source", "length"},
	"rsi":    {"source", "length"},
	"atr":    {"", "", "", "length"},
	"bb":     {"source", "length"},
	"stoch":  {"", "", "", "length", "k", "d"},
	"linreg": {"source", "length", "offset"},
}

package engine

import (
	"context"
	"fmt"

	"pinebt/internal/bterrors"
	"pinebt/internal/compiled"
	"pinebt/internal/ohlcv"
)

// position tracks which side, if any, the magnifier currently holds so
// entries/exits are idempotent across sub-bars within one chart bar.
type position int

const (
	flat position = iota
	long
	short
)

// RunMagnifier recomputes the strategy's step routine at sub-bar
// resolution within each chart bar. sub must be pre-resampled to the
// resolution ComputeMagnifierResolution selected and span the same
// period as chart. Signal priority is long_entry -> long_exit ->
// short_entry -> short_exit, breaking on the first signal that actually
// changes position state.
//
// The window fed to strat.Step is up to 3*Warmup completed chart bars
// (chart[max(0,i-3*Warmup):i)) plus one forming row built from the
// sub-bars inside chart bar i; only that forming row is rewritten
// per sub-bar, never appended, so the buffer never accumulates partial
// forming-bar snapshots across chart bars. The completed-bar portion is
// refilled once per chart bar (an O(3*Warmup) copy), not once per
// sub-bar, so the buffer is still allocated once and reused for the
// whole run. Chart bars before Warmup have no complete indicator
// history and are skipped entirely, matching warmup semantics
// everywhere else in this module. The remaining per-sub-bar allocation
// lives inside strat.Step itself: this implementation's step routine
// runs the same AST evaluator as batch over the trailing window
// rather than a dedicated zero-allocation scalar interpreter (see
// internal/codegen's package doc). That trades the step path's
// allocation-free ideal for a single, unambiguously correct evaluator;
// a future pass that wants zero-alloc step can split batch and step
// into separate interpreters without changing this loop's shape.
func RunMagnifier(ctx context.Context, strat *compiled.Strategy, chart *ohlcv.Table, sub *ohlcv.Table, ticksPerBar int, params compiled.Params, progress Progress) (compiled.Signals, error) {
	n := chart.Len()
	out := compiled.Signals{
		LongEntries:  make([]bool, n),
		LongExits:    make([]bool, n),
		ShortEntries: make([]bool, n),
		ShortExits:   make([]bool, n),
	}
	if n == 0 {
		return out, nil
	}
	W := ticksPerBar
	if W <= 0 {
		W = 1
	}
	warmup := strat.Warmup
	if warmup <= 0 {
		warmup = 1
	}
	if warmup >= n {
		return out, nil
	}

	bufLen := 3*warmup + 1
	winOpen := make([]float64, bufLen)
	winHigh := make([]float64, bufLen)
	winLow := make([]float64, bufLen)
	winClose := make([]float64, bufLen)
	winVolume := make([]float64, bufLen)

	pos := flat
	subIdx := 0
	subN := sub.Len()

	// Advance past every sub-bar belonging to the warmup-only chart
	// bars: they're never evaluated, so their ticks must never reach
	// the main loop's window either.
	firstEvaluated := chart.Timestamps[warmup]
	for subIdx < subN && sub.Timestamps[subIdx].Before(firstEvaluated) {
		subIdx++
	}

	totalBars := n - warmup
	reportEvery := totalBars / 50
	if reportEvery == 0 {
		reportEvery = 1
	}

	for i := warmup; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return compiled.Signals{}, bterrors.Cancelled
		}

		// Chart bar i spans [t_i, t_{i+1}); the last bar takes the
		// remaining sub-bars, still capped at ticksPerBar.
		lastBar := i == n-1
		inBar := func(k int) bool {
			return lastBar || sub.Timestamps[k].Before(chart.Timestamps[i+1])
		}

		winStart := i - 3*warmup
		if winStart < 0 {
			winStart = 0
		}
		nCompleted := i - winStart
		copy(winOpen[:nCompleted], chart.Open[winStart:i])
		copy(winHigh[:nCompleted], chart.High[winStart:i])
		copy(winLow[:nCompleted], chart.Low[winStart:i])
		copy(winClose[:nCompleted], chart.Close[winStart:i])
		copy(winVolume[:nCompleted], chart.Volume[winStart:i])

		var formOpen, formHigh, formLow, formClose, formVolume float64
		formingStarted := false
		ticksThisBar := 0

		for subIdx < subN && inBar(subIdx) && ticksThisBar < W {
			o, h, l, c, v := sub.Open[subIdx], sub.High[subIdx], sub.Low[subIdx], sub.Close[subIdx], sub.Volume[subIdx]
			subIdx++
			ticksThisBar++

			if !formingStarted {
				formOpen, formHigh, formLow, formClose, formVolume = o, h, l, c, v
				formingStarted = true
			} else {
				if h > formHigh {
					formHigh = h
				}
				if l < formLow {
					formLow = l
				}
				formClose = c
				formVolume += v
			}

			winOpen[nCompleted] = formOpen
			winHigh[nCompleted] = formHigh
			winLow[nCompleted] = formLow
			winClose[nCompleted] = formClose
			winVolume[nCompleted] = formVolume

			result, err := stepSafe(strat, winOpen[:nCompleted+1], winHigh[:nCompleted+1], winLow[:nCompleted+1], winClose[:nCompleted+1], winVolume[:nCompleted+1], params)
			if err != nil {
				continue
			}

			switch {
			case result.LongEntry && pos == flat:
				pos = long
				out.LongEntries[i] = true
			case result.LongExit && pos == long:
				pos = flat
				out.LongExits[i] = true
			case result.ShortEntry && pos == flat:
				pos = short
				out.ShortEntries[i] = true
			case result.ShortExit && pos == short:
				pos = flat
				out.ShortExits[i] = true
			default:
				continue
			}
			break
		}
		// Skip this bar's sub-bars left unread after a signal broke the loop.
		for subIdx < subN && inBar(subIdx) {
			subIdx++
		}

		barsDone := i - warmup
		if progress != nil && (barsDone%reportEvery == 0 || i == n-1) {
			progress(i+1, n)
		}
	}

	return out, nil
}

// stepSafe recovers a panicking kernel call and reports it as "no signal
// for this sub-bar" rather than aborting the whole magnifier run.
func stepSafe(strat *compiled.Strategy, o, h, l, c, v []float64, params compiled.Params) (result compiled.StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &bterrors.RuntimeKernelError{Kernel: strat.Name, BarIndex: len(c) - 1, Msg: fmt.Sprintf("%v", r)}
		}
	}()
	return strat.Step(compiled.StepInputs{Open: o, High: h, Low: l, Close: c, Volume: v}, params)
}

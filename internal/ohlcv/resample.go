package ohlcv

import "time"

// Resample aggregates a table into fixed-width buckets of targetMinutes,
// aligned to the epoch, using {open:first, high:max, low:min, close:last,
// volume:sum} over right-open intervals — the same aggregation the data
// source's own resampling uses when it derives a chart timeframe from 1m
// bars. Buckets with no contributing bars are dropped (never interpolated).
func Resample(one *Table, targetMinutes int) *Table {
	bucket := time.Duration(targetMinutes) * time.Minute
	n := one.Len()
	out := &Table{}
	if n == 0 {
		return out
	}

	var curStart time.Time
	var o, h, l, c, v float64
	open := false

	flush := func() {
		out.Timestamps = append(out.Timestamps, curStart)
		out.Open = append(out.Open, o)
		out.High = append(out.High, h)
		out.Low = append(out.Low, l)
		out.Close = append(out.Close, c)
		out.Volume = append(out.Volume, v)
	}

	for i := 0; i < n; i++ {
		ts := one.Timestamps[i]
		start := ts
		if bucket > 0 {
			rem := ts.Sub(time.Unix(0, 0)) % bucket
			if rem < 0 {
				rem += bucket
			}
			start = ts.Add(-rem)
		}
		if !open || !start.Equal(curStart) {
			if open {
				flush()
			}
			curStart = start
			o, h, l, c, v = one.Open[i], one.High[i], one.Low[i], one.Close[i], one.Volume[i]
			open = true
			continue
		}
		if one.High[i] > h {
			h = one.High[i]
		}
		if one.Low[i] < l {
			l = one.Low[i]
		}
		c = one.Close[i]
		v += one.Volume[i]
	}
	if open {
		flush()
	}
	return out
}

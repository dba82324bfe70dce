package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"pinebt/internal/bterrors"
	"pinebt/internal/ohlcv"
)

// CSVSource loads 1m bars from a local CSV file with header
// "ts,open,high,low,close,volume" (RFC3339 timestamps) — used by tests
// and local backtests that don't have a database to talk to.
type CSVSource struct {
	Path string
}

func (s *CSVSource) Load1m(ctx context.Context, symbol, exchange string, start, end *time.Time) (*ohlcv.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", s.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("datasource: read %s: %w", s.Path, err)
	}
	if len(records) < 2 {
		return nil, &bterrors.DataError{Msg: fmt.Sprintf("%s: no bars", s.Path)}
	}

	table := &ohlcv.Table{}
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("datasource: bad timestamp %q: %w", rec[0], err)
		}
		ts = ts.UTC()
		if start != nil && ts.Before(start.UTC()) {
			continue
		}
		if end != nil && ts.After(end.UTC()) {
			continue
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("datasource: bad numeric field %q: %w", rec[i+1], err)
			}
			vals[i] = v
		}
		table.Timestamps = append(table.Timestamps, ts)
		table.Open = append(table.Open, vals[0])
		table.High = append(table.High, vals[1])
		table.Low = append(table.Low, vals[2])
		table.Close = append(table.Close, vals[3])
		table.Volume = append(table.Volume, vals[4])
	}
	if table.Len() == 0 {
		return nil, &bterrors.DataError{Msg: fmt.Sprintf("%s: no bars in range", s.Path)}
	}
	return table, nil
}

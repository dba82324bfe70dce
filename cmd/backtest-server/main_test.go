package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pinebt/internal/codegen"
	"pinebt/internal/ledger"
	"pinebt/internal/ohlcv"
	"pinebt/internal/runner"
)

// fakeSource serves a fixed flat table regardless of symbol/exchange, so
// the HTTP handlers can be exercised without a live Postgres connection.
type fakeSource struct{}

func (fakeSource) Load1m(ctx context.Context, symbol, exchange string, start, end *time.Time) (*ohlcv.Table, error) {
	n := 30
	tbl := &ohlcv.Table{
		Timestamps: make([]time.Time, n),
		Open:       make([]float64, n),
		High:       make([]float64, n),
		Low:        make([]float64, n),
		Close:      make([]float64, n),
		Volume:     make([]float64, n),
	}
	base := time.Unix(0, 0).UTC()
	for i := 0; i < n; i++ {
		tbl.Timestamps[i] = base.Add(time.Duration(i) * time.Minute)
		tbl.Open[i], tbl.High[i], tbl.Low[i], tbl.Close[i], tbl.Volume[i] = 100, 101, 99, 100, 10
	}
	return tbl, nil
}

func newTestServer() (*http.ServeMux, *runner.Coordinator) {
	coord := runner.NewCoordinator(fakeSource{}, nil, 2)
	cl := ledger.NewCentralLedger(nil, nil, coord)
	_ = cl.Start()
	mux := http.NewServeMux()
	registerHTTPHandlers(mux, coord, nil, cl, nil)
	return mux, coord
}

func TestBarsPerYearScalesInverselyWithTimeframe(t *testing.T) {
	assert.InDelta(t, 365*24*60, barsPerYear(1), 0.01)
	assert.InDelta(t, 365*24, barsPerYear(60), 0.01)
}

func TestBarsPerYearTreatsNonPositiveTimeframeAsOneMinute(t *testing.T) {
	assert.InDelta(t, barsPerYear(1), barsPerYear(0), 0.01)
	assert.InDelta(t, barsPerYear(1), barsPerYear(-5), 0.01)
}

func TestSubmitJobRejectsUnparseableStrategySource(t *testing.T) {
	mux, _ := newTestServer()

	body, _ := json.Marshal(map[string]any{
		"runId":  "bad-1",
		"source": "strategy(\"x\"\n", // malformed: unbalanced paren
		"symbol": "BTCUSD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp["runId"])
}

func TestAPIJobsAcceptsValidStrategyAndReturnsRunID(t *testing.T) {
	mux, _ := newTestServer()

	body, _ := json.Marshal(map[string]any{
		"runId":          "good-1",
		"source":         "strategy(\"flat\")\n",
		"symbol":         "BTCUSD",
		"exchange":       "binance",
		"chartTFMinutes": 1,
		"initialCapital": 10000,
		"qtyType":        "percent_of_equity",
		"qtyValue":       100,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["runId"])
}

func TestAPIJobsRejectsNonPostMethod(t *testing.T) {
	mux, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIJobsStatusReturnsNotFoundForUnknownRunID(t *testing.T) {
	mux, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/status?runId=missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIJobsStatusReflectsSubmittedRun(t *testing.T) {
	mux, coord := newTestServer()

	strat, err := codegen.Compile("strategy(\"flat\")\n")
	assert.NoError(t, err)
	req := runner.JobRequest{
		Strategy:       strat,
		Mode:           runner.ModeStandard,
		ChartTFMinutes: 1,
	}
	runID := coord.Submit(context.Background(), req)

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/status?runId="+runID, nil))
		return rec.Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
}

func TestAPIRunsReturnsEmptyArrayWithoutDBLogger(t *testing.T) {
	mux, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "[]", rec.Body.String())
}

func TestAPIRunsTradesReturnsEmptyArrayWithoutDBLogger(t *testing.T) {
	mux, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/runs/trades?runId=x", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "[]", rec.Body.String())
}

func TestAPILedgerStatsReturnsAggregateCounters(t *testing.T) {
	mux, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats ledger.Stats
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
}

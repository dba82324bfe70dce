// Package runner is the one-shot job coordinator replacing the teacher's
// always-on strategy-polling Engine: it accepts compile+backtest jobs,
// runs each on its own goroutine, tracks status, and supports
// cancellation — the same runs-map/per-run-goroutine shape, generalized
// from continuous live-polling to one-shot execution that exits on
// completion. Grounded on internal/strategy.Engine (runs map,
// StartStrategy/StopStrategy, per-run goroutine, Statuses, newRunID).
package runner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"pinebt/internal/compiled"
	"pinebt/internal/datasource"
	"pinebt/internal/engine"
	"pinebt/internal/ohlcv"
	"pinebt/internal/portfolio"
)

// Mode selects standard vs magnifier backtest execution.
type Mode string

const (
	ModeStandard  Mode = "standard"
	ModeMagnifier Mode = "magnifier"
)

// JobRequest is one compile+backtest job submission.
type JobRequest struct {
	Strategy       *compiled.Strategy
	Params         compiled.Params
	Symbol         string
	Exchange       string
	Start, End     *time.Time
	ChartTFMinutes int
	Mode           Mode
	SimConfig      portfolio.SimConfig
}

// Status is a point-in-time snapshot of one run.
type Status struct {
	RunID      string
	Strategy   string
	Mode       Mode
	Running    bool
	Done       int
	Total      int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        string
}

type run struct {
	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	result *portfolio.Result
}

// Coordinator tracks every submitted job.
type Coordinator struct {
	ds          datasource.DataSource
	log         *zap.SugaredLogger
	concurrency int
	sem         chan struct{}

	mu   sync.Mutex
	runs map[string]*run
}

// NewCoordinator builds a coordinator bounded to concurrency simultaneous
// backtests, mirroring config.WorkerConcurrency.
func NewCoordinator(ds datasource.DataSource, log *zap.SugaredLogger, concurrency int) *Coordinator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Coordinator{
		ds:          ds,
		log:         log,
		concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
		runs:        make(map[string]*run),
	}
}

// Submit starts a job on its own goroutine and returns its run ID
// immediately; the caller polls Status/Result or calls Cancel.
func (c *Coordinator) Submit(ctx context.Context, req JobRequest) string {
	runID := newRunID()
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		status: Status{RunID: runID, Strategy: req.Strategy.Name, Mode: req.Mode, Running: true, StartedAt: time.Now()},
		cancel: cancel,
	}

	c.mu.Lock()
	c.runs[runID] = r
	c.mu.Unlock()

	go c.execute(runCtx, runID, r, req)
	return runID
}

func (c *Coordinator) execute(ctx context.Context, runID string, r *run, req JobRequest) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()
	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.status.FinishedAt = time.Now()
		r.mu.Unlock()
	}()

	table, err := c.ds.Load1m(ctx, req.Symbol, req.Exchange, req.Start, req.End)
	if err != nil {
		c.fail(r, err)
		return
	}

	chartTable := table
	if req.ChartTFMinutes > 1 {
		chartTable = ohlcv.Resample(table, req.ChartTFMinutes)
	}

	progress := func(done, total int) {
		r.mu.Lock()
		r.status.Done, r.status.Total = done, total
		r.mu.Unlock()
		if c.log != nil {
			c.log.Debugw("backtest progress", "run_id", runID, "done", done, "total", total)
		}
	}

	var signals compiled.Signals
	if req.Mode == ModeMagnifier {
		subRes := engine.ComputeMagnifierResolution(req.ChartTFMinutes, 10)
		subTable := table
		if subRes > 1 {
			subTable = ohlcv.Resample(table, subRes)
		}
		ticksPerBar := req.ChartTFMinutes / subRes
		signals, err = engine.RunMagnifier(ctx, req.Strategy, chartTable, subTable, ticksPerBar, req.Params, progress)
	} else {
		signals, err = engine.RunStandard(ctx, req.Strategy, chartTable, req.Params, progress)
	}
	if err != nil {
		c.fail(r, err)
		return
	}

	result, err := portfolio.Simulate(chartTable.Close, signals.LongEntries, signals.LongExits, signals.ShortEntries, signals.ShortExits, req.SimConfig)
	if err != nil {
		c.fail(r, err)
		return
	}

	r.mu.Lock()
	r.result = result
	r.mu.Unlock()

	if c.log != nil {
		c.log.Infow("backtest finished", "run_id", runID, "strategy", req.Strategy.Name, "trades", len(result.Trades))
	}
}

func (c *Coordinator) fail(r *run, err error) {
	r.mu.Lock()
	r.status.Err = err.Error()
	r.mu.Unlock()
	if c.log != nil {
		c.log.Errorw("backtest failed", "run_id", r.status.RunID, "error", err)
	}
}

// Cancel requests cancellation of a running job; the engine checks it at
// the next progress-report boundary.
func (c *Coordinator) Cancel(runID string) {
	c.mu.Lock()
	r, ok := c.runs[runID]
	c.mu.Unlock()
	if ok {
		r.cancel()
	}
}

// Status returns a snapshot of one run, or false if unknown.
func (c *Coordinator) Status(runID string) (Status, bool) {
	c.mu.Lock()
	r, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, true
}

// Result returns the completed backtest result, or nil if the run hasn't
// finished (or failed).
func (c *Coordinator) Result(runID string) *portfolio.Result {
	c.mu.Lock()
	r, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Statuses returns a snapshot of every tracked run.
func (c *Coordinator) Statuses() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Status, 0, len(c.runs))
	for _, r := range c.runs {
		r.mu.Lock()
		out = append(out, r.status)
		r.mu.Unlock()
	}
	return out
}

func newRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b) + "-" + time.Now().Format("20060102T150405.000")
}

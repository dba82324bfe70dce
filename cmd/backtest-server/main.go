// Command backtest-server is the service entrypoint: it wires
// configuration, logging, the data source, the compiler, the backtest
// engine, the portfolio simulator, the job queue, the run ledger, and
// the live progress hub together, then serves HTTP/WebSocket while
// listening for job requests over AMQP. Grounded on the teacher's
// cmd/trading-system/main.go bootstrap — env-driven config, defer-Close
// resource chain, HTTP handler registration, signal-based graceful
// shutdown — generalized from the live-trading bootstrap to a one-shot
// backtest-job service.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pinebt/internal/amqp"
	"pinebt/internal/codegen"
	"pinebt/internal/config"
	"pinebt/internal/datasource"
	"pinebt/internal/db"
	"pinebt/internal/ledger"
	"pinebt/internal/logging"
	"pinebt/internal/portfolio"
	"pinebt/internal/runner"
	"pinebt/internal/wsapi"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	logger.Infow("starting backtest-server", "log_level", cfg.LogLevel)

	ds, err := datasource.NewPostgresSource(context.Background(), cfg.PostgresDSN)
	if err != nil {
		logger.Fatalw("failed to initialize data source", "error", err)
	}
	defer ds.Close()
	logger.Info("data source initialized")

	dbLogger, err := db.NewLogger(cfg.PostgresDSN)
	if err != nil {
		logger.Warnw("failed to initialize run ledger db, continuing without persistence", "error", err)
	} else {
		defer dbLogger.Close()
		logger.Info("run ledger db initialized")
	}

	hub := wsapi.NewHub()
	go hub.Run()
	logger.Info("progress hub started")

	coordinator := runner.NewCoordinator(ds, logger, cfg.WorkerConcurrency)

	centralLedger := ledger.NewCentralLedger(dbLogger, hub, coordinator)
	if err := centralLedger.Start(); err != nil {
		logger.Fatalw("failed to start central ledger", "error", err)
	}
	defer centralLedger.Stop()
	logger.Info("central ledger started")

	publisher, err := amqp.NewPublisher(cfg.AMQPURI)
	if err != nil {
		logger.Warnw("failed to initialize AMQP publisher, job results will not be re-published", "error", err)
	} else {
		defer publisher.Close()
	}

	submit := func(job amqp.JobMessage) {
		runID := submitJob(coordinator, dbLogger, centralLedger, publisher, job)
		logger.Infow("job submitted", "run_id", runID, "source_run_id", job.RunID)
	}

	consumer, err := amqp.NewConsumer(cfg.AMQPURI, submit)
	if err != nil {
		logger.Warnw("failed to initialize AMQP consumer, jobs must be submitted over HTTP", "error", err)
	} else {
		if err := consumer.StartConsuming(cfg.WorkerConcurrency); err != nil {
			logger.Warnw("failed to start AMQP consumer", "error", err)
		} else {
			defer consumer.Close()
			logger.Info("AMQP job consumer started")
		}
	}

	mux := http.NewServeMux()
	registerHTTPHandlers(mux, coordinator, dbLogger, centralLedger, publisher)
	mux.HandleFunc("/ws", hub.ServeWs)

	server := &http.Server{Addr: cfg.WSBindAddr, Handler: mux}
	go func() {
		logger.Infow("http server listening", "addr", cfg.WSBindAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received, closing connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

// submitJob compiles the job's strategy source and hands it to the
// coordinator, logging the run's start and wiring its eventual outcome
// back through the ledger, db, and (if available) the job result queue.
func submitJob(coordinator *runner.Coordinator, dbLogger *db.Logger, centralLedger *ledger.CentralLedger, publisher *amqp.Publisher, job amqp.JobMessage) string {
	strat, err := codegen.Compile(job.Source)
	if err != nil {
		centralLedger.SendEvent(ledger.Event{Type: "run_failed", RunID: job.RunID, Data: err.Error()})
		if publisher != nil {
			publisher.PublishResult(amqp.ResultMessage{RunID: job.RunID, Status: "failed", Error: err.Error()})
		}
		return ""
	}

	var start, end *time.Time
	if job.StartUnixMs != nil {
		t := time.UnixMilli(*job.StartUnixMs).UTC()
		start = &t
	}
	if job.EndUnixMs != nil {
		t := time.UnixMilli(*job.EndUnixMs).UTC()
		end = &t
	}

	mode := runner.ModeStandard
	if job.Mode == string(runner.ModeMagnifier) {
		mode = runner.ModeMagnifier
	}

	req := runner.JobRequest{
		Strategy:       strat,
		Params:         job.Params,
		Symbol:         job.Symbol,
		Exchange:       job.Exchange,
		Start:          start,
		End:            end,
		ChartTFMinutes: job.ChartTFMinutes,
		Mode:           mode,
		SimConfig: portfolio.SimConfig{
			InitialCapital: job.InitialCapital,
			CommissionRate: job.CommissionRate,
			SlippageRate:   job.SlippageRate,
			QtyType:        job.QtyType,
			QtyValue:       job.QtyValue,
			BarsPerYear:    barsPerYear(job.ChartTFMinutes),
		},
	}

	runID := coordinator.Submit(context.Background(), req)
	if dbLogger != nil {
		dbLogger.LogRunStart(runID, job.Symbol, job.Exchange, strat.Name, string(mode), job.Params)
	}
	centralLedger.SendEvent(ledger.Event{Type: "run_started", RunID: runID, Data: job.Symbol})

	go awaitCompletion(coordinator, dbLogger, centralLedger, publisher, runID)
	return runID
}

// awaitCompletion polls until the run finishes, then persists and
// broadcasts its outcome. Polling keeps this decoupled from the
// coordinator's internal goroutine instead of adding a completion
// channel to its public surface.
func awaitCompletion(coordinator *runner.Coordinator, dbLogger *db.Logger, centralLedger *ledger.CentralLedger, publisher *amqp.Publisher, runID string) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		status, ok := coordinator.Status(runID)
		if !ok || status.Running {
			continue
		}

		if status.Err != "" {
			if dbLogger != nil {
				dbLogger.LogRunFinished(runID, "failed", status.Err)
			}
			centralLedger.SendEvent(ledger.Event{Type: "run_failed", RunID: runID, Data: status.Err})
			if publisher != nil {
				publisher.PublishResult(amqp.ResultMessage{RunID: runID, Status: "failed", Error: status.Err})
			}
			return
		}

		result := coordinator.Result(runID)
		if dbLogger != nil {
			dbLogger.LogRunFinished(runID, "completed", "")
			for _, t := range result.Trades {
				dbLogger.LogTrade(runID, t.EntryBar, t.ExitBar, t.EntryPrice, t.ExitPrice, t.Qty, t.Side, t.PnL, t.ReturnPct)
			}
			s := result.Stats
			dbLogger.LogStats(runID, s.TotalReturn, s.AnnualizedReturn, s.AnnualizedVol, s.Sharpe, s.Sortino, s.Calmar, s.Omega, s.MaxDrawdown, s.WinRate, s.ProfitFactor, s.Expectancy, s.TradeCount)
		}
		centralLedger.SendEvent(ledger.Event{Type: "run_completed", RunID: runID, Data: result.Stats})
		if publisher != nil {
			publisher.PublishResult(amqp.ResultMessage{
				RunID:       runID,
				Status:      "completed",
				TradeCount:  result.Stats.TradeCount,
				TotalReturn: result.Stats.TotalReturn,
				Sharpe:      result.Stats.Sharpe,
				MaxDrawdown: result.Stats.MaxDrawdown,
			})
		}
		return
	}
}

func barsPerYear(chartTFMinutes int) float64 {
	if chartTFMinutes <= 0 {
		chartTFMinutes = 1
	}
	return 365.0 * 24.0 * 60.0 / float64(chartTFMinutes)
}

func registerHTTPHandlers(mux *http.ServeMux, coordinator *runner.Coordinator, dbLogger *db.Logger, centralLedger *ledger.CentralLedger, publisher *amqp.Publisher) {
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var job amqp.JobMessage
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		runID := submitJob(coordinator, dbLogger, centralLedger, publisher, job)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"runId": runID})
	})

	mux.HandleFunc("/api/jobs/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		runID := r.URL.Query().Get("runId")
		status, ok := coordinator.Status(runID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if dbLogger == nil {
			w.Write([]byte("[]"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		runs, err := dbLogger.QueryRuns(ctx, r.URL.Query().Get("symbol"), r.URL.Query().Get("exchange"), 50)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "db"})
			return
		}
		json.NewEncoder(w).Encode(runs)
	})

	mux.HandleFunc("/api/runs/trades", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if dbLogger == nil {
			w.Write([]byte("[]"))
			return
		}
		runID := r.URL.Query().Get("runId")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		trades, err := dbLogger.QueryTrades(ctx, runID, 500)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "db"})
			return
		}
		json.NewEncoder(w).Encode(trades)
	})

	mux.HandleFunc("/api/ledger/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(centralLedger.GetStats())
	})
}

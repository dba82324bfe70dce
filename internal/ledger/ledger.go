// Package ledger is the central aggregator: it fans job lifecycle events
// (started/progress/completed/failed) out to the run ledger and the live
// progress hub, and maintains aggregate statistics. Adapted from the
// teacher's CentralLedger — same command-channel/stop-channel/periodic-
// broadcaster shape — generalized from tick/bar state-manager polling to
// polling a runner.Coordinator's job statuses.
package ledger

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"pinebt/internal/db"
	"pinebt/internal/runner"
	"pinebt/internal/wsapi"
)

// Event represents one job lifecycle notification fed into the ledger.
type Event struct {
	Type  string // "run_started" | "run_completed" | "run_failed"
	RunID string
	Data  interface{}
}

// Stats is a snapshot of the ledger's aggregate view.
type Stats struct {
	Uptime        time.Duration
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	ActiveRuns    int
}

// CentralLedger coordinates the run ledger and progress hub.
type CentralLedger struct {
	db          *db.Logger
	hub         *wsapi.Hub
	coordinator *runner.Coordinator

	eventChannel chan Event
	stopChannel  chan struct{}
	wg           sync.WaitGroup

	startTime time.Time
	started   int64
	completed int64
	failed    int64
	mu        sync.RWMutex
}

// NewCentralLedger wires the run ledger, progress hub, and job
// coordinator together.
func NewCentralLedger(dbLogger *db.Logger, hub *wsapi.Hub, coordinator *runner.Coordinator) *CentralLedger {
	return &CentralLedger{
		db:           dbLogger,
		hub:          hub,
		coordinator:  coordinator,
		eventChannel: make(chan Event, 256),
		stopChannel:  make(chan struct{}),
		startTime:    time.Now(),
	}
}

// Start launches the event processor and the periodic status broadcaster.
func (cl *CentralLedger) Start() error {
	log.Println("ledger: starting central ledger")
	cl.wg.Add(2)
	go cl.eventProcessor()
	go cl.statusBroadcaster()
	return nil
}

// Stop gracefully shuts the ledger down.
func (cl *CentralLedger) Stop() {
	log.Println("ledger: stopping central ledger")
	close(cl.stopChannel)
	cl.wg.Wait()
	log.Println("ledger: stopped")
}

// SendEvent enqueues one job lifecycle event.
func (cl *CentralLedger) SendEvent(ev Event) {
	select {
	case cl.eventChannel <- ev:
	case <-cl.stopChannel:
		log.Printf("ledger: dropping event, shutting down: %s", ev.Type)
	}
}

func (cl *CentralLedger) eventProcessor() {
	defer cl.wg.Done()
	for {
		select {
		case <-cl.stopChannel:
			return
		case ev := <-cl.eventChannel:
			cl.processEvent(ev)
		}
	}
}

func (cl *CentralLedger) processEvent(ev Event) {
	cl.mu.Lock()
	switch ev.Type {
	case "run_started":
		cl.started++
	case "run_completed":
		cl.completed++
	case "run_failed":
		cl.failed++
	}
	cl.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ledger: marshal event: %v", err)
		return
	}
	if cl.hub != nil {
		cl.hub.Broadcast(payload)
	}
	if cl.db != nil {
		cl.db.LogEvent("info", "run_event", ev.Type, ev.Data)
	}
}

// statusBroadcaster periodically pushes the coordinator's full status
// snapshot to the progress hub, covering clients that connect mid-run.
func (cl *CentralLedger) statusBroadcaster() {
	defer cl.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stopChannel:
			return
		case <-ticker.C:
			if cl.coordinator == nil || cl.hub == nil {
				continue
			}
			statuses := cl.coordinator.Statuses()
			payload, err := json.Marshal(struct {
				Type     string           `json:"type"`
				Statuses []runner.Status  `json:"statuses"`
			}{Type: "status_snapshot", Statuses: statuses})
			if err != nil {
				log.Printf("ledger: marshal status snapshot: %v", err)
				continue
			}
			cl.hub.Broadcast(payload)
		}
	}
}

// GetStats returns the ledger's aggregate counters.
func (cl *CentralLedger) GetStats() Stats {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	active := 0
	if cl.coordinator != nil {
		for _, s := range cl.coordinator.Statuses() {
			if s.Running {
				active++
			}
		}
	}
	return Stats{
		Uptime:        time.Since(cl.startTime),
		RunsStarted:   cl.started,
		RunsCompleted: cl.completed,
		RunsFailed:    cl.failed,
		ActiveRuns:    active,
	}
}

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCentralLedgerAggregatesLifecycleCounters(t *testing.T) {
	cl := NewCentralLedger(nil, nil, nil)
	assert.NoError(t, cl.Start())
	defer cl.Stop()

	cl.SendEvent(Event{Type: "run_started", RunID: "r1"})
	cl.SendEvent(Event{Type: "run_started", RunID: "r2"})
	cl.SendEvent(Event{Type: "run_completed", RunID: "r1"})
	cl.SendEvent(Event{Type: "run_failed", RunID: "r2"})

	assert.Eventually(t, func() bool {
		s := cl.GetStats()
		return s.RunsStarted == 2 && s.RunsCompleted == 1 && s.RunsFailed == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCentralLedgerUptimeGrowsFromStart(t *testing.T) {
	cl := NewCentralLedger(nil, nil, nil)
	assert.NoError(t, cl.Start())
	defer cl.Stop()

	time.Sleep(5 * time.Millisecond)
	s := cl.GetStats()
	assert.Greater(t, s.Uptime, time.Duration(0))
	assert.Equal(t, 0, s.ActiveRuns) // no coordinator wired in
}

func TestCentralLedgerStopUnblocksPendingSendEvent(t *testing.T) {
	cl := NewCentralLedger(nil, nil, nil)
	assert.NoError(t, cl.Start())
	cl.Stop()

	done := make(chan struct{})
	go func() {
		cl.SendEvent(Event{Type: "run_started", RunID: "late"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendEvent after Stop should return promptly via the closed stopChannel")
	}
}

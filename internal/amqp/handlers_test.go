package amqp

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

// fakeAcker satisfies amqp091.Acknowledger without a live broker connection,
// recording which outcome the handler chose for each delivery tag.
type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	rejects []uint64
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, tag)
	return nil
}

func deliveryFor(t *testing.T, acker amqp091.Acknowledger, tag uint64, job JobMessage) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(job)
	assert.NoError(t, err)
	return amqp091.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: body}
}

func TestMessageHandlerDecodesAndDispatchesJob(t *testing.T) {
	var mu sync.Mutex
	var received []JobMessage
	handler := NewMessageHandler(func(j JobMessage) {
		mu.Lock()
		received = append(received, j)
		mu.Unlock()
	})
	handler.Start(2)
	defer handler.Stop()

	acker := &fakeAcker{}
	handler.EnqueueJob(deliveryFor(t, acker, 1, JobMessage{RunID: "r1", Symbol: "BTCUSD"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return len(acker.acked) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "r1", received[0].RunID)
	mu.Unlock()
}

func TestMessageHandlerNacksMalformedPayload(t *testing.T) {
	handler := NewMessageHandler(func(j JobMessage) {
		t.Fatalf("handle should not be called for malformed payload")
	})
	handler.Start(1)
	defer handler.Stop()

	acker := &fakeAcker{}
	bad := amqp091.Delivery{Acknowledger: acker, DeliveryTag: 9, Body: []byte("not json")}
	handler.EnqueueJob(bad)

	assert.Eventually(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return len(acker.nacked) == 1
	}, time.Second, 5*time.Millisecond)
}

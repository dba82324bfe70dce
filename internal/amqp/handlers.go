package amqp

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

// MessageHandler dispatches job deliveries to a bounded pool of worker
// goroutines, following the teacher's dedicated-channel-per-concern
// design (tickProcessor/barProcessor/...) generalized to one concern:
// decoding and running backtest jobs.
type MessageHandler struct {
	jobChannel  chan amqp091.Delivery
	stopChannel chan struct{}
	wg          sync.WaitGroup
	handle      func(JobMessage)
}

// NewMessageHandler creates a handler that invokes handle for every
// successfully decoded job.
func NewMessageHandler(handle func(JobMessage)) *MessageHandler {
	return &MessageHandler{
		jobChannel:  make(chan amqp091.Delivery, 256),
		stopChannel: make(chan struct{}),
		handle:      handle,
	}
}

// Start launches workers dedicated job-processing goroutines.
func (mh *MessageHandler) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		mh.wg.Add(1)
		go mh.jobProcessor(i)
	}
}

// Stop gracefully shuts down every worker goroutine.
func (mh *MessageHandler) Stop() {
	close(mh.stopChannel)
	mh.wg.Wait()
}

// EnqueueJob sends a job delivery to the processing pool, discarding it
// (nack, no requeue) if the pool is saturated rather than blocking the
// consumer's delivery channel.
func (mh *MessageHandler) EnqueueJob(delivery amqp091.Delivery) {
	select {
	case mh.jobChannel <- delivery:
	case <-mh.stopChannel:
	default:
		log.Printf("amqp: job channel full, discarding delivery")
		delivery.Nack(false, false)
	}
}

func (mh *MessageHandler) jobProcessor(id int) {
	defer mh.wg.Done()
	for {
		select {
		case <-mh.stopChannel:
			return
		case delivery := <-mh.jobChannel:
			mh.processJob(delivery)
		}
	}
}

func (mh *MessageHandler) processJob(delivery amqp091.Delivery) {
	var job JobMessage
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		log.Printf("amqp: error unmarshalling job: %s", err)
		delivery.Nack(false, false)
		return
	}
	mh.handle(job)
	delivery.Ack(false)
}

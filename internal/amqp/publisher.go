// Package amqp is the job queue transport: backtest job requests travel
// in on jobsQueue, job outcomes travel out on resultsQueue. Adapted from
// the teacher's trade-command/historical-bar-request publisher — same
// retrying Dial, queue-declare-on-connect, and PublishWithContext
// pattern — generalized from FX trade commands to backtest jobs.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	jobsQueue    = "Backtest_Jobs"
	resultsQueue = "Backtest_Results"
)

// JobMessage is one compile+backtest job request.
type JobMessage struct {
	RunID          string             `json:"runId"`
	Source         string             `json:"source"`
	Params         map[string]float64 `json:"params,omitempty"`
	Symbol         string             `json:"symbol"`
	Exchange       string             `json:"exchange"`
	StartUnixMs    *int64             `json:"startUnixMs,omitempty"`
	EndUnixMs      *int64             `json:"endUnixMs,omitempty"`
	ChartTFMinutes int                `json:"chartTfMinutes"`
	Mode           string             `json:"mode"` // "standard" | "magnifier"

	InitialCapital float64 `json:"initialCapital"`
	CommissionRate float64 `json:"commissionRate"`
	SlippageRate   float64 `json:"slippageRate"`
	QtyType        string  `json:"qtyType"`
	QtyValue       float64 `json:"qtyValue"`
}

// ResultMessage is the outcome of one job, published once it finishes or
// fails.
type ResultMessage struct {
	RunID      string  `json:"runId"`
	Status     string  `json:"status"` // "completed" | "failed"
	Error      string  `json:"error,omitempty"`
	TradeCount int     `json:"tradeCount,omitempty"`
	TotalReturn float64 `json:"totalReturn,omitempty"`
	Sharpe     float64 `json:"sharpe,omitempty"`
	MaxDrawdown float64 `json:"maxDrawdown,omitempty"`
}

// Publisher handles sending job requests and results to RabbitMQ.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewPublisher creates and connects a new Publisher, retrying the dial a
// handful of times since RabbitMQ may still be starting up.
func NewPublisher(amqpURI string) (*Publisher, error) {
	var conn *amqp091.Connection
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp091.Dial(amqpURI)
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after 10 attempts: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		// publisher confirms are a reliability nicety; proceed without them
	}

	for _, q := range []string{jobsQueue, resultsQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare queue %q: %w", q, err)
		}
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

// PublishJob enqueues one backtest job request.
func (p *Publisher) PublishJob(job JobMessage) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.RunID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.channel.PublishWithContext(ctx, "", jobsQueue, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// PublishResult enqueues one job outcome.
func (p *Publisher) PublishResult(result ResultMessage) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result %s: %w", result.RunID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.channel.PublishWithContext(ctx, "", resultsQueue, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close closes the publisher's channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

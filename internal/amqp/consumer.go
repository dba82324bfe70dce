package amqp

import (
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer handles receiving job requests from RabbitMQ.
type Consumer struct {
	conn    *amqp091.Connection
	handler *MessageHandler
}

// NewConsumer creates and connects a new Consumer, retrying the dial a
// handful of times since RabbitMQ may still be starting up.
func NewConsumer(amqpURI string, handle func(JobMessage)) (*Consumer, error) {
	var conn *amqp091.Connection
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp091.Dial(amqpURI)
		if err == nil {
			break
		}
		log.Printf("RabbitMQ connection attempt %d failed: %s", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after 10 attempts: %w", err)
	}

	return &Consumer{conn: conn, handler: NewMessageHandler(handle)}, nil
}

// StartConsuming starts workers job-processing goroutines and begins
// consuming from the jobs queue.
func (c *Consumer) StartConsuming(workers int) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		log.Printf("Warning: Failed to set QoS: %s", err)
	}
	if _, err := ch.QueueDeclare(jobsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", jobsQueue, err)
	}

	msgs, err := ch.Consume(jobsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer for %q: %w", jobsQueue, err)
	}

	c.handler.Start(workers)
	go func() {
		for d := range msgs {
			c.handler.EnqueueJob(d)
		}
		log.Printf("amqp: consumer for %s shut down", jobsQueue)
	}()

	log.Printf("amqp: consuming %s with %d workers", jobsQueue, workers)
	return nil
}

// Close closes the consumer's connection and stops its worker pool.
func (c *Consumer) Close() {
	c.handler.Stop()
	if c.conn != nil {
		c.conn.Close()
	}
}

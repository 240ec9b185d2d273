package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPoison marks a message that can never be processed, such as a body that
// does not decode. It is parked in the failed queue without retries.
var ErrPoison = errors.New("poison message")

// MessageHandler processes one message body
type MessageHandler func(ctx context.Context, body []byte) error

// JSONHandler wraps a typed handler and turns decode failures into ErrPoison
func JSONHandler[T any](h func(context.Context, T) error) MessageHandler {
	return func(ctx context.Context, body []byte) error {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		return h(ctx, v)
	}
}

type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionPark
)

// dispose decides what happens to a delivery once its handler returned err
func dispose(err error) disposition {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, ErrPoison):
		return dispositionPark
	default:
		return dispositionRetry
	}
}

// Consumer consumes messages from a RabbitMQ work queue
type Consumer struct {
	conn    *Connection
	spec    QueueSpec
	handler MessageHandler
}

// NewConsumer creates a new consumer instance
func NewConsumer(conn *Connection, spec QueueSpec, handler MessageHandler) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if spec.Name == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	return &Consumer{
		conn:    conn,
		spec:    spec,
		handler: handler,
	}, nil
}

// Run consumes until ctx is cancelled or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.NewChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	defer ch.Close()

	if err := declareTopology(ch, c.spec); err != nil {
		return err
	}

	prefetch := c.spec.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.spec.Name,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual acknowledgement)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Printf("👂 Consumer listening on queue: %s", c.spec.Name)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Consumer on %s stopping...", c.spec.Name)
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.spec.Name)
			}
			c.handle(ctx, ch, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	if c.spec.MaxAttempts > 0 && DeathCount(d, c.spec.Name) >= c.spec.MaxAttempts {
		log.Printf("💀 Message %s exhausted %d attempts on %s, parking", d.MessageId, c.spec.MaxAttempts, c.spec.Name)
		c.park(ctx, ch, d)
		return
	}

	err := c.handler(ctx, d.Body)
	switch dispose(err) {
	case dispositionAck:
		d.Ack(false)
	case dispositionPark:
		log.Printf("☠️  Poison message %s on %s: %v", d.MessageId, c.spec.Name, err)
		c.park(ctx, ch, d)
	case dispositionRetry:
		log.Printf("❌ Error processing message %s on %s: %v", d.MessageId, c.spec.Name, err)
		// dead-letters into the retry queue
		d.Nack(false, false)
	}
}

func (c *Consumer) park(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	err := ch.PublishWithContext(ctx, "", c.spec.FailedQueue(), false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		Headers:      d.Headers,
		MessageId:    d.MessageId,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		log.Printf("Failed to park message %s: %v", d.MessageId, err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

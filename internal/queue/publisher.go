package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes JSON jobs to one work queue
type Publisher struct {
	conn *Connection
	spec QueueSpec
	mu   sync.Mutex
}

// NewPublisher declares the queue topology and returns a publisher for it
func NewPublisher(conn *Connection, spec QueueSpec) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if spec.Name == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if err := declareTopology(ch, spec); err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, spec: spec}, nil
}

// Publish marshals job and publishes it as a persistent message
func (p *Publisher) Publish(ctx context.Context, job interface{}) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return p.publishRaw(ctx, p.spec.Name, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (p *Publisher) publishRaw(ctx context.Context, queue string, msg amqp.Publishing) error {
	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	return nil
}

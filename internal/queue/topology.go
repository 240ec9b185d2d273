package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueSpec describes a work queue and its retry pipeline.
//
// A rejected message is dead-lettered through the default exchange into
// <name>.retry, waits RetryDelay there, then expires back into <name>.
// Once it has been rejected MaxAttempts times it is parked in <name>.failed.
type QueueSpec struct {
	Name        string
	RetryDelay  time.Duration
	MaxAttempts int
	Prefetch    int
}

// RetryQueue returns the name of the delay queue
func (s QueueSpec) RetryQueue() string {
	return s.Name + ".retry"
}

// FailedQueue returns the name of the parking queue for exhausted messages
func (s QueueSpec) FailedQueue() string {
	return s.Name + ".failed"
}

// declareTopology declares the main, retry and failed queues. It is
// idempotent, so publishers and consumers both call it.
func declareTopology(ch *amqp.Channel, s QueueSpec) error {
	mainArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": s.RetryQueue(),
	}
	if _, err := ch.QueueDeclare(s.Name, true, false, false, false, mainArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", s.Name, err)
	}

	delay := s.RetryDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	retryArgs := amqp.Table{
		"x-message-ttl":             int32(delay / time.Millisecond),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": s.Name,
	}
	if _, err := ch.QueueDeclare(s.RetryQueue(), true, false, false, false, retryArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", s.RetryQueue(), err)
	}

	if _, err := ch.QueueDeclare(s.FailedQueue(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", s.FailedQueue(), err)
	}

	return nil
}

// DeathCount returns how many times d was dead-lettered out of queue
func DeathCount(d amqp.Delivery, queue string) int {
	raw, ok := d.Headers["x-death"]
	if !ok {
		return 0
	}
	list, ok := raw.([]interface{})
	if !ok {
		return 0
	}
	for _, it := range list {
		m, ok := it.(amqp.Table)
		if !ok {
			continue
		}
		if q, _ := m["queue"].(string); q != queue {
			continue
		}
		switch n := m["count"].(type) {
		case int64:
			return int(n)
		case int32:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

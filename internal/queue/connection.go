package queue

import (
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a RabbitMQ connection that redials when it finds itself closed.
// The shared channel is used for publishing; consumers open their own.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.Mutex
}

// NewConnection dials RabbitMQ and opens the shared publishing channel
func NewConnection(url string) (*Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url cannot be empty")
	}

	c := &Connection{url: url}
	if err := c.dial(); err != nil {
		return nil, err
	}

	log.Println("✅ Connected to RabbitMQ")
	return c, nil
}

// Channel returns the shared channel, reconnecting if necessary
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	if c.channel == nil || c.channel.IsClosed() {
		ch, err := c.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to reopen channel: %w", err)
		}
		c.channel = ch
	}

	return c.channel, nil
}

// NewChannel opens a dedicated channel, used by consumers so that each one
// owns its QoS and delivery stream.
func (c *Connection) NewChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// ensureOpen redials when the underlying connection is gone. Caller holds mu.
func (c *Connection) ensureOpen() error {
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	log.Println("🔄 RabbitMQ connection closed, reconnecting...")
	if err := c.dial(); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	log.Println("✅ Reconnected to RabbitMQ")
	return nil
}

func (c *Connection) dial() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// Close closes the connection gracefully
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Println("RabbitMQ connection closed")
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil
}

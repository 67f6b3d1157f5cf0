package broker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection wraps the AMQP connection and owns the exchange topology.
// Channels are cheap; each publisher and consumer opens its own.
type Connection struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger
}

// Connect dials the broker, retrying with constant backoff until the broker
// accepts or the retry budget runs out, then declares the exchange topology.
func Connect(url, exchange string, reconnectDelay time.Duration, logger *slog.Logger) (*Connection, error) {
	var conn *amqp.Connection

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(reconnectDelay), 5)
	err := backoff.Retry(func() error {
		var dialErr error
		conn, dialErr = amqp.Dial(url)
		if dialErr != nil {
			logger.Warn("broker dial failed, retrying", "error", dialErr)
		}
		return dialErr
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	c := &Connection{conn: conn, exchange: exchange, logger: logger}
	if err := c.declareTopology(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("broker connected", "exchange", exchange)
	return c, nil
}

// declareTopology sets up the frame exchange plus the dead-letter pair.
// Rejected deliveries land on <exchange>.dead-letter for inspection.
func (c *Connection) declareTopology() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}

	dlx := c.DeadLetterExchange()
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", dlx, err)
	}

	dlq := c.exchange + ".dead-letter"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, "#", dlx, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", dlq, err)
	}

	return nil
}

// Exchange returns the frame exchange name
func (c *Connection) Exchange() string {
	return c.exchange
}

// DeadLetterExchange returns the exchange rejected deliveries route to
func (c *Connection) DeadLetterExchange() string {
	return c.exchange + ".dlx"
}

// Channel opens a fresh channel on the underlying connection
func (c *Connection) Channel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// IsClosed reports whether the underlying connection is gone
func (c *Connection) IsClosed() bool {
	return c.conn.IsClosed()
}

// Close shuts the connection down, closing every channel opened on it
func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery. A nil return acks the message; an error
// rejects it without requeue, routing it to the dead-letter queue.
type Handler func(ctx context.Context, d amqp.Delivery) error

// ConsumerOptions configures the queue a Consumer reads from
type ConsumerOptions struct {
	Queue      string
	RoutingKey string
	Durable    bool
	Prefetch   int
}

// Consumer reads deliveries from one queue on its own channel. It satisfies
// the lifecycle worker contract so managers can supervise it.
type Consumer struct {
	conn    *Connection
	opts    ConsumerOptions
	handler Handler
	logger  *slog.Logger

	ch       *amqp.Channel
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	alive    atomic.Bool
}

// NewConsumer builds a consumer; Start declares the queue and begins delivery
func NewConsumer(conn *Connection, opts ConsumerOptions, handler Handler, logger *slog.Logger) *Consumer {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	return &Consumer{
		conn:    conn,
		opts:    opts,
		handler: handler,
		logger:  logger.With("queue", opts.Queue),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start declares and binds the queue, then consumes on a background goroutine
func (c *Consumer) Start() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}

	if err := ch.Qos(c.opts.Prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": c.conn.DeadLetterExchange()}
	queue, err := ch.QueueDeclare(c.opts.Queue, c.opts.Durable, !c.opts.Durable, false, false, args)
	if err != nil {
		ch.Close()
		return fmt.Errorf("declare queue %s: %w", c.opts.Queue, err)
	}

	if err := ch.QueueBind(queue.Name, c.opts.RoutingKey, c.conn.Exchange(), false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("bind queue %s to %s: %w", queue.Name, c.opts.RoutingKey, err)
	}

	tag := fmt.Sprintf("%s-%s", c.opts.Queue, uuid.NewString()[:8])
	deliveries, err := ch.Consume(queue.Name, tag, false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("consume from %s: %w", queue.Name, err)
	}

	c.ch = ch
	c.alive.Store(true)
	go c.loop(deliveries)

	c.logger.Info("consumer started", "routing_key", c.opts.RoutingKey, "tag", tag)
	return nil
}

func (c *Consumer) loop(deliveries <-chan amqp.Delivery) {
	defer func() {
		c.alive.Store(false)
		c.ch.Close()
		close(c.done)
	}()

	ctx := context.Background()
	for {
		select {
		case <-c.stopCh:
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			if err := c.handler(ctx, d); err != nil {
				c.logger.Error("handler failed, dead-lettering",
					"routing_key", d.RoutingKey, "error", err)
				if nackErr := d.Nack(false, false); nackErr != nil {
					c.logger.Error("nack failed", "error", nackErr)
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				c.logger.Error("ack failed", "error", err)
			}
		}
	}
}

// Stop signals the delivery loop to exit. Safe to call more than once and
// before Start.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.ch == nil {
			close(c.done)
		}
	})
}

// Done is closed once the delivery loop has exited
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// IsAlive reports whether the delivery loop is running
func (c *Consumer) IsAlive() bool {
	return c.alive.Load()
}

package rabbitmq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	log     *zap.Logger
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
	// Exchange is a durable topic exchange declared on connect.
	Exchange string
	// Queue receives every event published to Exchange when consuming.
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the exchange.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Exchange))

	return &Client{
		conn:    conn,
		channel: ch,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsHealthy reports whether the connection is still open.
func (c *Client) IsHealthy() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Publish sends a persistent JSON message.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	c.log.Debug("Published event", zap.String("exchange", exchange), zap.String("routing_key", routingKey))
	return nil
}

// ConsumeCatalogEvents binds the configured queue to every routing key of
// the exchange and hands each delivery to handler in a goroutine. A handler
// error requeues the message.
func (c *Client) ConsumeCatalogEvents(handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := c.channel.QueueDeclare(
		c.cfg.Queue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.cfg.Queue, err)
	}

	if err := c.channel.QueueBind(queue.Name, "#", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("Waiting for catalog events", zap.String("queue", queue.Name))

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				c.log.Warn("Error processing message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
				if nackErr := msg.Nack(false, true); nackErr != nil {
					c.log.Error("Error nacking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.log.Error("Error acking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
	}()

	return nil
}

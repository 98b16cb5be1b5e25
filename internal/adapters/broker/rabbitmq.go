// Package broker publishes domain events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eventsphere/internal/domain"
)

const (
	ExchangeName = "eventsphere"
	ExchangeKind = "topic"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes JSON payloads to the topic exchange.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel channel
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher dials url, opens a channel and declares the durable exchange.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, logger: logger, now: time.Now}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.DebugContext(ctx, "domain event published", "exchange", ExchangeName, "routing_key", routingKey)
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher drops every event. Used when RABBITMQ_URL is empty.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n NoopPublisher) Publish(ctx context.Context, routingKey string, _ any) error {
	n.Logger.DebugContext(ctx, "domain event dropped (noop)", "routing_key", routingKey)
	return nil
}

var (
	_ domain.EventPublisher = (*Publisher)(nil)
	_ domain.EventPublisher = NoopPublisher{}
)

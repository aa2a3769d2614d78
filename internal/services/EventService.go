// This file contains the user event publishers. The AMQP implementation expects a rabbitMQ AMPQ 0.9.1 broker reachable
// at the configured URL. On startup it declares a durable topic exchange and then publishes one JSON message per user
// lifecycle change, routed by the event type (e.g. 'user.created'). Consumers bind their own queues to the exchange.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
)

// Event types, also used as routing keys.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the message body published for every user lifecycle change.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher announces user lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, event UserEvent) error
	Close() error
}

// NopEventPublisher drops every event. Used when no broker is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, UserEvent) error { return nil }
func (NopEventPublisher) Close() error { return nil }

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPEventPublisher struct {
	connection *amqp.Connection
	channel    amqpChannel
	exchange   string
	logger     *log.Logger
	// amqp channels must not be used for concurrent publishes
	mu sync.Mutex
}

// NewAMQPEventPublisher dials the broker, retrying for up to 15 seconds, opens a channel and declares the exchange.
func NewAMQPEventPublisher(url, exchange string, logger *log.Logger) (*AMQPEventPublisher, error) {
	timeout := time.Now().Add(time.Minute / 4)
	var (
		conn *amqp.Connection
		err  error
	)

	for time.Now().Before(timeout) {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	publisher, err := newAMQPEventPublisher(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher.connection = conn
	return publisher, nil
}

func newAMQPEventPublisher(ch amqpChannel, exchange string, logger *log.Logger) (*AMQPEventPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPEventPublisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends event to the exchange with the event type as routing key.
func (p *AMQPEventPublisher) Publish(ctx context.Context, event UserEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.Debugf("Published %s for user %s", event.Type, event.UserID)
	return nil
}

// Close closes the channel and the broker connection.
func (p *AMQPEventPublisher) Close() error {
	p.logger.Info("Shutting down AMQP event publisher...")
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Close()
	if p.connection != nil {
		if cerr := p.connection.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

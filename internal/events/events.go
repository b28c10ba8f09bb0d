// Package events publishes facts about committed reservation changes to a
// RabbitMQ topic exchange. Notification and payment systems subscribe to
// those facts; the core never calls them directly.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/metrics"
)

// Routing keys.
const (
	RegistrationCreated = "registration.created"

	BorrowingRequested = "borrowing.requested"
	BorrowingApproved  = "borrowing.approved"
	BorrowingRejected  = "borrowing.rejected"
	BorrowingReturned  = "borrowing.returned"

	ActivityCreated = "activity.created"
	ActivityUpdated = "activity.updated"
	ActivityDeleted = "activity.deleted"

	ItemCreated = "item.created"
	ItemUpdated = "item.updated"
	ItemDeleted = "item.deleted"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Publisher emits a fact after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NopPublisher drops every fact. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

type sendFunc func(ctx context.Context, routingKey string, msg amqp.Publishing) error

// AMQPPublisher publishes JSON envelopes to a topic exchange through a
// circuit breaker, so a broker outage fails fast instead of stalling writes.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	breaker  *gobreaker.CircuitBreaker
	send     sendFunc
	now      func() time.Time
}

// NewAMQPPublisher dials url and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	p := newPublisher(exchange, func(ctx context.Context, key string, msg amqp.Publishing) error {
		return ch.PublishWithContext(ctx, exchange, key, false, false, msg)
	})
	p.conn, p.ch = conn, ch
	return p, nil
}

func newPublisher(exchange string, send sendFunc) *AMQPPublisher {
	name := "amqp:" + exchange
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(metrics.BreakerStateValue(to))
			log.Info().
				Str("circuit", cbName).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &AMQPPublisher{
		exchange: exchange,
		breaker:  cb,
		send:     send,
		now:      time.Now,
	}
}

// Publish wraps payload in an Envelope and sends it with routingKey.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(Envelope{Type: routingKey, Timestamp: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.send(ctx, routingKey, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Type:         routingKey,
			Body:         body,
		})
	})
	if err != nil {
		metrics.PublishFailures.WithLabelValues(routingKey).Inc()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

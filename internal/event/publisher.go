package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type amqpPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
// Routing keys are the event types.
func NewAMQPPublisher(url, exchange string, log *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &amqpPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      log.With(zap.String("publisher", "amqp")),
	}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg); err != nil {
		p.log.Error("Failed to publish event",
			zap.Error(err),
			zap.String("type", string(ev.Type)),
			zap.String("booking_id", ev.BookingID),
		)
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.log.Warn("Failed to close channel", zap.Error(err))
	}
	return p.conn.Close()
}

func newPublishing(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID + ":" + string(ev.Type) + ":" + ev.OccurredAt.Format("20060102150405.000000"),
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}, nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when no broker URL is configured
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }

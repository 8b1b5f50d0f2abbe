package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const auditQueue = "booking.audit"

// RunAuditConsumer binds a durable queue to every booking event and writes
// each one to the structured log. It reconnects with backoff until ctx is
// cancelled.
func RunAuditConsumer(ctx context.Context, url, exchange string, log *zap.Logger) {
	log = log.With(zap.String("consumer", auditQueue))
	backoff := time.Second

	for {
		err := consumeAudit(ctx, url, exchange, log)
		if ctx.Err() != nil {
			log.Info("Audit consumer stopped")
			return
		}

		log.Warn("Audit consumer disconnected, retrying",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func consumeAudit(ctx context.Context, url, exchange string, log *zap.Logger) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(auditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(auditQueue, "booking.#", exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("Set QoS failed", zap.Error(err))
	}

	msgs, err := ch.ConsumeWithContext(ctx, auditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	log.Info("Audit consumer started")
	for d := range msgs {
		if err := handleAudit(d.Body, log); err != nil {
			log.Warn("Rejecting audit message", zap.Error(err))
			_ = d.Nack(false, false) // do not requeue poison messages
			continue
		}
		_ = d.Ack(false)
	}

	return errors.New("deliveries channel closed")
}

func handleAudit(body []byte, log *zap.Logger) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == "" {
		return errors.New("event without type or booking id")
	}

	log.Info("Booking event",
		zap.String("type", string(ev.Type)),
		zap.String("booking_id", ev.BookingID),
		zap.String("booking_ref", ev.BookingRef),
		zap.String("user_id", ev.UserID),
		zap.String("trip_id", ev.TripID),
		zap.Ints("seat_numbers", ev.SeatNumbers),
		zap.String("booking_status", string(ev.BookingStatus)),
		zap.String("payment_status", string(ev.PaymentStatus)),
		zap.Int("available_seats", ev.AvailableSeats),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}

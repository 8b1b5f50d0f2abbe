// Package event carries booking lifecycle events over RabbitMQ.
package event

import (
	"time"

	"bus-booking/internal/data/entity"
)

type Type string

const (
	BookingCreated        Type = "booking.created"
	BookingCancelled      Type = "booking.cancelled"
	BookingSeatsCancelled Type = "booking.seats_cancelled"
	BookingPaid           Type = "booking.paid"
)

// Event is published after the ledger transaction that produced it commits
type Event struct {
	Type           Type                 `json:"type"`
	BookingID      string               `json:"booking_id"`
	BookingRef     string               `json:"booking_ref"`
	UserID         string               `json:"user_id"`
	TripID         string               `json:"trip_id"`
	SeatNumbers    []int                `json:"seat_numbers"`
	BookingStatus  entity.BookingStatus `json:"booking_status"`
	PaymentStatus  entity.PaymentStatus `json:"payment_status"`
	AvailableSeats int                  `json:"available_seats"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// NewBookingEvent snapshots booking after a ledger change touching seats
func NewBookingEvent(t Type, booking *entity.Booking, seats []int, availableSeats int) Event {
	return Event{
		Type:           t,
		BookingID:      booking.ID.String(),
		BookingRef:     booking.BookingRef,
		UserID:         booking.UserID.String(),
		TripID:         booking.TripID.String(),
		SeatNumbers:    seats,
		BookingStatus:  booking.BookingStatus,
		PaymentStatus:  booking.PaymentStatus,
		AvailableSeats: availableSeats,
		OccurredAt:     time.Now().UTC(),
	}
}

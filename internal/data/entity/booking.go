package entity

import (
	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusCancelled SeatStatus = "cancelled"
)

func (s SeatStatus) Valid() bool {
	return s == SeatStatusBooked || s == SeatStatusCancelled
}

type BookingStatus string

const (
	BookingStatusConfirmed          BookingStatus = "confirmed"
	BookingStatusPartiallyCancelled BookingStatus = "partially_cancelled"
	BookingStatusCancelled          BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusPartiallyCancelled, BookingStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// BookingSeat is one seat entry of a booking. TripID is denormalised so
// storage can keep (trip_id, seat_number) unique among booked entries.
type BookingSeat struct {
	Base
	BookingID  uuid.UUID  `db:"booking_id"`
	TripID     uuid.UUID  `db:"trip_id"`
	SeatNumber int        `db:"seat_number"`
	Status     SeatStatus `db:"status"`
}

type Booking struct {
	Base
	BookingRef    string        `db:"booking_ref"`
	UserID        uuid.UUID     `db:"user_id"`
	TripID        uuid.UUID     `db:"trip_id"`
	BookingStatus BookingStatus `db:"booking_status"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	TotalAmount   float64       `db:"total_amount"`
	Seats         []*BookingSeat
}

// BookedSeatNumbers returns seat numbers still held, in seat order
func (b *Booking) BookedSeatNumbers() []int {
	var nums []int
	for _, s := range b.Seats {
		if s.Status == SeatStatusBooked {
			nums = append(nums, s.SeatNumber)
		}
	}
	return nums
}

func (b *Booking) ActiveSeatCount() int {
	return len(b.BookedSeatNumbers())
}

func (b *Booking) IsActive() bool {
	return b.ActiveSeatCount() > 0
}

// CancelSeats marks every booked entry whose number is in nums as
// cancelled and returns the numbers that actually changed. Unknown or
// already cancelled numbers are ignored.
func (b *Booking) CancelSeats(nums []int) []int {
	want := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		want[n] = struct{}{}
	}

	var changed []int
	for _, s := range b.Seats {
		if _, ok := want[s.SeatNumber]; !ok || s.Status != SeatStatusBooked {
			continue
		}
		s.Status = SeatStatusCancelled
		changed = append(changed, s.SeatNumber)
	}
	return changed
}

// CancelAll cancels every booked entry and returns the numbers released
func (b *Booking) CancelAll() []int {
	return b.CancelSeats(b.BookedSeatNumbers())
}

// DeriveStatus computes the aggregate booking status from the seat entries
func (b *Booking) DeriveStatus() BookingStatus {
	active := b.ActiveSeatCount()
	switch {
	case active == len(b.Seats):
		return BookingStatusConfirmed
	case active == 0:
		return BookingStatusCancelled
	default:
		return BookingStatusPartiallyCancelled
	}
}

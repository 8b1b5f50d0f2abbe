package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBooking(nums ...int) *Booking {
	b := &Booking{BookingStatus: BookingStatusConfirmed, PaymentStatus: PaymentStatusPending}
	for _, n := range nums {
		b.Seats = append(b.Seats, &BookingSeat{SeatNumber: n, Status: SeatStatusBooked})
	}
	return b
}

func TestBooking_CancelSeats(t *testing.T) {
	b := newBooking(1, 2, 3)

	changed := b.CancelSeats([]int{2, 9})
	assert.Equal(t, []int{2}, changed)
	assert.Equal(t, []int{1, 3}, b.BookedSeatNumbers())
	assert.Equal(t, BookingStatusPartiallyCancelled, b.DeriveStatus())

	// already cancelled entries are not counted again
	assert.Empty(t, b.CancelSeats([]int{2}))

	changed = b.CancelSeats([]int{1, 3, 3})
	assert.Equal(t, []int{1, 3}, changed)
	assert.Equal(t, BookingStatusCancelled, b.DeriveStatus())
	assert.False(t, b.IsActive())
}

func TestBooking_CancelAll(t *testing.T) {
	b := newBooking(4, 5)
	b.CancelSeats([]int{4})

	assert.Equal(t, []int{5}, b.CancelAll())
	assert.Equal(t, 0, b.ActiveSeatCount())
	assert.Empty(t, b.CancelAll())
}

func TestBooking_DeriveStatus(t *testing.T) {
	assert.Equal(t, BookingStatusConfirmed, newBooking(1, 2).DeriveStatus())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, SeatStatusBooked.Valid())
	assert.False(t, SeatStatus("held").Valid())
	assert.True(t, BookingStatusPartiallyCancelled.Valid())
	assert.False(t, BookingStatus("pending").Valid())
	assert.True(t, PaymentStatusPartiallyRefunded.Valid())
	assert.False(t, PaymentStatus("completed").Valid())
}

func TestTrip_ValidSeat(t *testing.T) {
	trip := &Trip{TotalSeats: 40}
	assert.True(t, trip.ValidSeat(1))
	assert.True(t, trip.ValidSeat(40))
	assert.False(t, trip.ValidSeat(0))
	assert.False(t, trip.ValidSeat(41))
}

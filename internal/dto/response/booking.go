package response

import (
	"time"

	"bus-booking/internal/data/entity"
)

type SeatResponse struct {
	SeatNumber int               `json:"seat_number"`
	Status     entity.SeatStatus `json:"status"`
}

type BookingResponse struct {
	ID            string               `json:"id"`
	BookingRef    string               `json:"booking_ref"`
	UserID        string               `json:"user_id"`
	TripID        string               `json:"trip_id"`
	Seats         []SeatResponse       `json:"seats"`
	BookingStatus entity.BookingStatus `json:"booking_status"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	TotalAmount   float64              `json:"total_amount"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	seats := make([]SeatResponse, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = SeatResponse{SeatNumber: s.SeatNumber, Status: s.Status}
	}

	return BookingResponse{
		ID:            b.ID.String(),
		BookingRef:    b.BookingRef,
		UserID:        b.UserID.String(),
		TripID:        b.TripID.String(),
		Seats:         seats,
		BookingStatus: b.BookingStatus,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = BookingToResponse(b)
	}
	return out
}

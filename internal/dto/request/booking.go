package request

type CreateBookingRequest struct {
	TripID      string `json:"trip_id" validate:"required,uuid4"`
	SeatNumbers []int  `json:"seat_numbers" validate:"required,min=1,unique,dive,gte=1"`
}

// CancelSeatsRequest may name seats the booking does not hold. Those
// entries are skipped by the ledger rather than rejected here.
type CancelSeatsRequest struct {
	SeatNumbers []int `json:"seat_numbers" validate:"required,min=1"`
}

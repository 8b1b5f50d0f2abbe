package entity

import "time"

// Trip is a scheduled bus departure and the seat inventory for it.
// TotalSeats never changes after creation; AvailableSeats is only moved
// by the booking ledger.
type Trip struct {
	Base
	BusName        string    `db:"bus_name"`
	Origin         string    `db:"origin"`
	Destination    string    `db:"destination"`
	DepartureTime  time.Time `db:"departure_time"`
	Fare           float64   `db:"fare"`
	TotalSeats     int       `db:"total_seats"`
	AvailableSeats int       `db:"available_seats"`
}

// ValidSeat reports whether n is a seat number on this trip's bus
func (t *Trip) ValidSeat(n int) bool {
	return n >= 1 && n <= t.TotalSeats
}

package response

import (
	"time"

	"bus-booking/internal/data/entity"
)

type TripResponse struct {
	ID             string    `json:"id"`
	BusName        string    `json:"bus_name"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	Fare           float64   `json:"fare"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	TakenSeats     []int     `json:"taken_seats"`
}

func TripToResponse(t *entity.Trip, taken []int) TripResponse {
	if taken == nil {
		taken = []int{}
	}
	return TripResponse{
		ID:             t.ID.String(),
		BusName:        t.BusName,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartureTime:  t.DepartureTime,
		Fare:           t.Fare,
		TotalSeats:     t.TotalSeats,
		AvailableSeats: t.AvailableSeats,
		TakenSeats:     taken,
	}
}

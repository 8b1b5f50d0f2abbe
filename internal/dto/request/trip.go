package request

import "time"

type CreateTripRequest struct {
	BusName       string    `json:"bus_name" validate:"required,max=100"`
	Origin        string    `json:"origin" validate:"required,max=100"`
	Destination   string    `json:"destination" validate:"required,max=100,nefield=Origin"`
	DepartureTime time.Time `json:"departure_time" validate:"required"`
	Fare          float64   `json:"fare" validate:"gte=0"`
	TotalSeats    int       `json:"total_seats" validate:"required,min=1,max=100"`
}

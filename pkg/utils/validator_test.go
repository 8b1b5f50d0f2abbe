package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type seatsPayload struct {
	TripID      string `json:"trip_id" validate:"required,uuid4"`
	SeatNumbers []int  `json:"seat_numbers" validate:"required,min=1,unique,dive,gte=1"`
}

func TestValidateStruct(t *testing.T) {
	errs := ValidateStruct(seatsPayload{
		TripID:      "8f6b0c8e-8d1f-4c59-9a53-2d3c3b7f6f10",
		SeatNumbers: []int{1, 2},
	})
	assert.Nil(t, errs)

	errs = ValidateStruct(seatsPayload{TripID: "nope", SeatNumbers: []int{2, 2}})
	assert.Equal(t, "Must be a valid UUID", errs["trip_id"])
	assert.Equal(t, "Values must be unique", errs["seat_numbers"])

	errs = ValidateStruct(seatsPayload{TripID: "8f6b0c8e-8d1f-4c59-9a53-2d3c3b7f6f10", SeatNumbers: []int{0}})
	assert.Contains(t, errs, "seat_numbers[0]")
}

func TestFormatValidationErrors(t *testing.T) {
	msg := FormatValidationErrors(map[string]string{"trip_id": "This field is required"})
	assert.Equal(t, "trip_id: This field is required", msg)
}

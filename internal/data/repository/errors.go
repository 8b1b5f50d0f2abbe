package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSeatTaken is returned when a seat number is already held by a
// booked entry on the same trip.
var ErrSeatTaken = errors.New("seat already taken")

// ErrCapacityExceeded is returned when a counter update would move a
// trip's available seats outside [0, total_seats].
var ErrCapacityExceeded = errors.New("available seats out of range")

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

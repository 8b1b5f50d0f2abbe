package repository

import (
	"time"

	"bus-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User        UserRepository
	Session     SessionRepository
	Trip        TripRepository
	Booking     BookingRepository
	BookingSeat BookingSeatRepository

	// Tx scopes several repository calls into one transaction
	Tx database.Transactor
}

func NewRepository(db database.PgxIface, txTimeout time.Duration, log *zap.Logger) *Repository {
	return &Repository{
		User:        NewUserRepository(db, log),
		Session:     NewSessionRepository(db, log),
		Trip:        NewTripRepository(db, log),
		Booking:     NewBookingRepository(db, log),
		BookingSeat: NewBookingSeatRepository(db, log),
		Tx:          database.NewTransactor(db, txTimeout, log),
	}
}

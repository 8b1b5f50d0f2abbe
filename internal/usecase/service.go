package usecase

import (
	"bus-booking/internal/data/cache"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/event"
	"bus-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth    AuthService
	Trip    TripService
	Booking BookingService
}

func NewService(
	repo *repository.Repository,
	cache cache.Cache,
	publisher event.Publisher,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:    NewAuthService(repo, config, log),
		Trip:    NewTripService(repo, cache, log),
		Booking: NewBookingService(repo, cache, publisher, config.Booking, log),
	}
}

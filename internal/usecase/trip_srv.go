package usecase

import (
	"context"
	"time"

	"bus-booking/internal/data/cache"
	"bus-booking/internal/data/entity"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/dto/request"
	"bus-booking/internal/dto/response"
	"bus-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TripService interface {
	CreateTrip(ctx context.Context, req *request.CreateTripRequest) (*response.TripResponse, error)
	GetTrip(ctx context.Context, tripID string) (*response.TripResponse, error)
}

type tripService struct {
	repo  *repository.Repository
	cache cache.Cache
	log   *zap.Logger
}

func NewTripService(repo *repository.Repository, cache cache.Cache, log *zap.Logger) TripService {
	return &tripService{
		repo:  repo,
		cache: cache,
		log:   log.With(zap.String("service", "trip")),
	}
}

func (s *tripService) CreateTrip(ctx context.Context, req *request.CreateTripRequest) (*response.TripResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create trip validation failed", zap.Any("errors", errs))
		return nil, invalid("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := time.Now()
	trip := &entity.Trip{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BusName:        req.BusName,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		Fare:           req.Fare,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
	}

	if err := s.repo.Trip.Create(ctx, trip); err != nil {
		s.log.Error("Failed to create trip", zap.Error(err), zap.String("bus_name", req.BusName))
		return nil, infra("create trip", err)
	}

	s.log.Info("Trip created",
		zap.String("trip_id", trip.ID.String()),
		zap.String("route", trip.Origin+" -> "+trip.Destination),
		zap.Int("total_seats", trip.TotalSeats),
	)

	resp := response.TripToResponse(trip, nil)
	return &resp, nil
}

// GetTrip returns the trip with the seat numbers currently held
func (s *tripService) GetTrip(ctx context.Context, tripID string) (*response.TripResponse, error) {
	id, err := uuid.Parse(tripID)
	if err != nil {
		return nil, invalid("invalid trip ID format %s", tripID)
	}

	key := cache.TripKey(id)
	var cached response.TripResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("Trip cache read failed", zap.Error(err), zap.String("key", key))
	} else if ok {
		return &cached, nil
	}

	stamp, stampErr := s.cache.Stamp(ctx, key)
	if stampErr != nil {
		s.log.Warn("Trip cache stamp failed", zap.Error(stampErr), zap.String("key", key))
	}

	var trip *entity.Trip
	var taken []int
	err = s.repo.Tx.WithinReadTx(ctx, func(ctx context.Context) error {
		trip, err = s.repo.Trip.FindByID(ctx, id)
		if err != nil {
			return infra("load trip", err)
		}
		if trip == nil {
			return notFound("trip %s not found", tripID)
		}

		taken, err = s.repo.BookingSeat.FindBookedSeatNumbersByTrip(ctx, id)
		if err != nil {
			return infra("load booked seats", err)
		}
		return nil
	})
	if err != nil {
		if IsTransient(err) {
			s.log.Error("Failed to get trip", zap.Error(err), zap.String("trip_id", tripID))
		}
		return nil, infra("get trip", err)
	}

	resp := response.TripToResponse(trip, taken)
	if stampErr == nil {
		if _, err := s.cache.SetIfUnchanged(ctx, key, resp, stamp); err != nil {
			s.log.Warn("Trip cache write failed", zap.Error(err), zap.String("key", key))
		}
	}

	return &resp, nil
}

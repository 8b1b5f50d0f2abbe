package repository

import (
	"context"
	"errors"
	"fmt"

	"bus-booking/internal/data/entity"
	"bus-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TripRepository interface {
	Create(ctx context.Context, trip *entity.Trip) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error)

	// FindByIDForUpdate locks the trip row until the surrounding
	// transaction ends. Must be called inside Transactor.WithinTx.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trip, error)

	// AdjustAvailableSeats adds delta (negative to reserve) to the
	// counter. It returns ErrCapacityExceeded when the result would
	// leave [0, total_seats].
	AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type tripRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTripRepository(db database.PgxIface, log *zap.Logger) TripRepository {
	return &tripRepository{
		db:  db,
		log: log.With(zap.String("repository", "trip")),
	}
}

const tripColumns = `id, bus_name, origin, destination, departure_time, fare,
	total_seats, available_seats, created_at, updated_at`

func (r *tripRepository) Create(ctx context.Context, trip *entity.Trip) error {
	query := `
		INSERT INTO trips (id, bus_name, origin, destination, departure_time, fare,
		                   total_seats, available_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		trip.ID,
		trip.BusName,
		trip.Origin,
		trip.Destination,
		trip.DepartureTime,
		trip.Fare,
		trip.TotalSeats,
		trip.AvailableSeats,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create trip",
			zap.Error(err),
			zap.String("trip_id", trip.ID.String()),
		)
		return fmt.Errorf("create trip %s: %w", trip.ID.String(), err)
	}

	return nil
}

func (r *tripRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *tripRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *tripRepository) AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE trips
		SET available_seats = available_seats + $2, updated_at = NOW()
		WHERE id = $1
		  AND available_seats + $2 BETWEEN 0 AND total_seats
		RETURNING available_seats
	`

	var available int
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id, delta).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		r.log.Warn("Available seats update out of range",
			zap.String("trip_id", id.String()),
			zap.Int("delta", delta),
		)
		return 0, fmt.Errorf("adjust trip %s by %d: %w", id.String(), delta, ErrCapacityExceeded)
	}
	if err != nil {
		r.log.Error("Failed to adjust available seats",
			zap.Error(err),
			zap.String("trip_id", id.String()),
			zap.Int("delta", delta),
		)
		return 0, fmt.Errorf("adjust trip %s by %d: %w", id.String(), delta, err)
	}

	return available, nil
}

func (r *tripRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Trip, error) {
	var trip entity.Trip
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&trip.ID,
		&trip.BusName,
		&trip.Origin,
		&trip.Destination,
		&trip.DepartureTime,
		&trip.Fare,
		&trip.TotalSeats,
		&trip.AvailableSeats,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find trip by ID",
			zap.Error(err),
			zap.String("trip_id", id.String()),
		)
		return nil, fmt.Errorf("find trip by ID %s: %w", id.String(), err)
	}

	return &trip, nil
}

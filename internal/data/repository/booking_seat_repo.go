package repository

import (
	"context"
	"fmt"

	"bus-booking/internal/data/entity"
	"bus-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// liveSeatIndex is the partial unique index on (trip_id, seat_number)
// WHERE status = 'booked'.
const liveSeatIndex = "booking_seats_live_seat_uidx"

type BookingSeatRepository interface {
	// CreateBatch returns ErrSeatTaken if any seat is already booked on the trip
	CreateBatch(ctx context.Context, seats []*entity.BookingSeat) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error)
	FindByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID][]*entity.BookingSeat, error)
	FindBookedSeatNumbersByTrip(ctx context.Context, tripID uuid.UUID) ([]int, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, seatNumbers []int, status entity.SeatStatus) (int64, error)
}

type bookingSeatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingSeatRepository(db database.PgxIface, log *zap.Logger) BookingSeatRepository {
	return &bookingSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_seat")),
	}
}

func (r *bookingSeatRepository) CreateBatch(ctx context.Context, seats []*entity.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}

	query := `
		INSERT INTO booking_seats (id, booking_id, trip_id, seat_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	conn := database.Conn(ctx, r.db)
	for _, s := range seats {
		_, err := conn.Exec(ctx, query,
			s.ID,
			s.BookingID,
			s.TripID,
			s.SeatNumber,
			s.Status,
			s.CreatedAt,
			s.UpdatedAt,
		)
		if isUniqueViolation(err, liveSeatIndex) {
			return fmt.Errorf("seat %d on trip %s: %w", s.SeatNumber, s.TripID.String(), ErrSeatTaken)
		}
		if err != nil {
			r.log.Error("Failed to create booking seat",
				zap.Error(err),
				zap.String("booking_id", s.BookingID.String()),
				zap.Int("seat_number", s.SeatNumber),
			)
			return fmt.Errorf("create booking seat %d for booking %s: %w", s.SeatNumber, s.BookingID.String(), err)
		}
	}

	return nil
}

func (r *bookingSeatRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error) {
	seats, err := r.FindByBookingIDs(ctx, []uuid.UUID{bookingID})
	if err != nil {
		return nil, err
	}
	return seats[bookingID], nil
}

func (r *bookingSeatRepository) FindByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID][]*entity.BookingSeat, error) {
	result := make(map[uuid.UUID][]*entity.BookingSeat, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, booking_id, trip_id, seat_number, status, created_at, updated_at
		FROM booking_seats
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, seat_number
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, bookingIDs)
	if err != nil {
		r.log.Error("Failed to find booking seats", zap.Error(err), zap.Int("bookings", len(bookingIDs)))
		return nil, fmt.Errorf("find booking seats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s entity.BookingSeat
		if err := rows.Scan(
			&s.ID,
			&s.BookingID,
			&s.TripID,
			&s.SeatNumber,
			&s.Status,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			r.log.Error("Failed to scan booking seat row", zap.Error(err))
			return nil, fmt.Errorf("scan booking seat row: %w", err)
		}
		result[s.BookingID] = append(result[s.BookingID], &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking seat rows: %w", err)
	}

	return result, nil
}

func (r *bookingSeatRepository) FindBookedSeatNumbersByTrip(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	query := `
		SELECT seat_number
		FROM booking_seats
		WHERE trip_id = $1 AND status = 'booked'
		ORDER BY seat_number
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, tripID)
	if err != nil {
		r.log.Error("Failed to find booked seats by trip",
			zap.Error(err),
			zap.String("trip_id", tripID.String()),
		)
		return nil, fmt.Errorf("find booked seats by trip %s: %w", tripID.String(), err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan seat number row: %w", err)
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat number rows: %w", err)
	}

	return numbers, nil
}

func (r *bookingSeatRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, seatNumbers []int, status entity.SeatStatus) (int64, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}

	query := `
		UPDATE booking_seats
		SET status = $3, updated_at = NOW()
		WHERE booking_id = $1 AND seat_number = ANY($2)
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, bookingID, seatNumbers, status)
	if err != nil {
		r.log.Error("Failed to update booking seat status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Ints("seat_numbers", seatNumbers),
		)
		return 0, fmt.Errorf("update seats of booking %s to %s: %w", bookingID.String(), status, err)
	}

	return result.RowsAffected(), nil
}

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

// BookingRepository persists booking headers. Seat entries live in
// BookingSeatRepository; callers attach them to Booking.Seats.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)

	// FindByIDAndUserIDForUpdate returns nil when the booking does not
	// exist or belongs to someone else, and locks the row otherwise.
	FindByIDAndUserIDForUpdate(ctx context.Context, id, userID uuid.UUID) (*entity.Booking, error)

	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error)
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, bookingStatus entity.BookingStatus, paymentStatus entity.PaymentStatus) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `b.id, b.booking_ref, b.user_id, b.trip_id, b.booking_status,
	b.payment_status, b.total_amount, b.created_at, b.updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_ref, user_id, trip_id, booking_status,
		                      payment_status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.BookingRef,
		booking.UserID,
		booking.TripID,
		booking.BookingStatus,
		booking.PaymentStatus,
		booking.TotalAmount,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_ref", booking.BookingRef),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingRef, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *bookingRepository) FindByIDAndUserIDForUpdate(ctx context.Context, id, userID uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1 AND b.user_id = $2 FOR UPDATE`
	return r.findOne(ctx, query, id, userID)
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`
	return r.findMany(ctx, query, userID)
}

func (r *bookingRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1
		  AND EXISTS (
		      SELECT 1 FROM booking_seats s
		      WHERE s.booking_id = b.id AND s.status = 'booked'
		  )
		ORDER BY b.created_at DESC
	`
	return r.findMany(ctx, query, userID)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, bookingStatus entity.BookingStatus, paymentStatus entity.PaymentStatus) error {
	query := `
		UPDATE bookings
		SET booking_status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, bookingStatus, paymentStatus)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("booking_status", string(bookingStatus)),
			zap.String("payment_status", string(paymentStatus)),
		)
		return fmt.Errorf("update booking %s status to %s/%s: %w", id.String(), bookingStatus, paymentStatus, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}

func (r *bookingRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Booking, error) {
	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking", zap.Error(err), zap.Any("args", args))
		return nil, fmt.Errorf("find booking: %w", err)
	}

	return booking, nil
}

func (r *bookingRepository) findMany(ctx context.Context, query string, userID uuid.UUID) ([]*entity.Booking, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.BookingRef,
		&booking.UserID,
		&booking.TripID,
		&booking.BookingStatus,
		&booking.PaymentStatus,
		&booking.TotalAmount,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

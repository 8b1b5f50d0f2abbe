package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"bus-booking/internal/data/cache"
	"bus-booking/internal/data/entity"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/dto/request"
	"bus-booking/internal/dto/response"
	"bus-booking/internal/event"
	"bus-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Seat ledger
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error)
	CancelSeats(ctx context.Context, userID, bookingID string, req *request.CancelSeatsRequest) (*response.BookingResponse, error)
	PayBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error)

	// Read projections
	GetBookingHistory(ctx context.Context, userID string) ([]response.BookingResponse, error)
	GetCurrentBookings(ctx context.Context, userID string) ([]response.BookingResponse, error)
	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error)
}

type bookingService struct {
	repo      *repository.Repository
	cache     cache.Cache
	publisher event.Publisher
	config    utils.BookingConfig
	log       *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	cache cache.Cache,
	publisher event.Publisher,
	config utils.BookingConfig,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		config:    config,
		log:       log.With(zap.String("service", "booking")),
	}
}

// ==================== SEAT LEDGER ====================

func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, invalid("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, invalid("invalid user ID format %s", userID)
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, invalid("invalid trip ID format %s", req.TripID)
	}

	if s.config.MaxSeats > 0 && len(req.SeatNumbers) > s.config.MaxSeats {
		return nil, invalid("cannot book more than %d seats at once", s.config.MaxSeats)
	}

	seatNumbers := slices.Clone(req.SeatNumbers)
	slices.Sort(seatNumbers)

	var booking *entity.Booking
	var available int

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUser(ctx, userUUID); err != nil {
			return err
		}

		// Locks the trip row: concurrent bookings on one trip queue here
		trip, err := s.repo.Trip.FindByIDForUpdate(ctx, tripID)
		if err != nil {
			return infra("load trip", err)
		}
		if trip == nil {
			return notFound("trip %s not found", req.TripID)
		}

		for _, n := range seatNumbers {
			if !trip.ValidSeat(n) {
				return invalid("seat %d does not exist on this trip (1-%d)", n, trip.TotalSeats)
			}
		}

		taken, err := s.repo.BookingSeat.FindBookedSeatNumbersByTrip(ctx, tripID)
		if err != nil {
			return infra("load booked seats", err)
		}
		for _, n := range seatNumbers {
			if slices.Contains(taken, n) {
				return conflict("seat %d is already booked", n)
			}
		}

		if trip.AvailableSeats < len(seatNumbers) {
			return conflict("only %d seats available on trip %s", trip.AvailableSeats, req.TripID)
		}

		now := time.Now()
		booking = &entity.Booking{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingRef:    utils.GenerateBookingRef(),
			UserID:        userUUID,
			TripID:        tripID,
			BookingStatus: entity.BookingStatusConfirmed,
			PaymentStatus: entity.PaymentStatusPending,
			TotalAmount:   trip.Fare * float64(len(seatNumbers)),
		}
		for _, n := range seatNumbers {
			booking.Seats = append(booking.Seats, &entity.BookingSeat{
				Base: entity.Base{
					ID:        uuid.New(),
					CreatedAt: now,
					UpdatedAt: now,
				},
				BookingID:  booking.ID,
				TripID:     tripID,
				SeatNumber: n,
				Status:     entity.SeatStatusBooked,
			})
		}

		if err := s.repo.Booking.Create(ctx, booking); err != nil {
			return infra("create booking", err)
		}
		if err := s.repo.BookingSeat.CreateBatch(ctx, booking.Seats); err != nil {
			return s.ledgerErr("create booking seats", err)
		}

		available, err = s.repo.Trip.AdjustAvailableSeats(ctx, tripID, -len(seatNumbers))
		if err != nil {
			return s.ledgerErr("reserve seats", err)
		}

		return nil
	})
	if err != nil {
		return nil, s.fail("create booking", err,
			zap.String("user_id", userID),
			zap.String("trip_id", req.TripID),
			zap.Ints("seat_numbers", seatNumbers),
		)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_ref", booking.BookingRef),
		zap.String("user_id", userID),
		zap.String("trip_id", req.TripID),
		zap.Int("seat_count", len(seatNumbers)),
		zap.Int("available_seats", available),
	)

	s.afterCommit(ctx, event.NewBookingEvent(event.BookingCreated, booking, seatNumbers, available), booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error) {
	userUUID, bookingUUID, err := parseOwnerAndBooking(userID, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	var released []int
	var available int

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUser(ctx, userUUID); err != nil {
			return err
		}

		var trip *entity.Trip
		booking, trip, err = s.lockOwnedBooking(ctx, bookingUUID, userUUID)
		if err != nil {
			return err
		}

		previousPayment := booking.PaymentStatus
		released = booking.CancelAll()
		if len(released) == 0 {
			return noOp("booking %s has no active seats to cancel", bookingID)
		}

		booking.BookingStatus = booking.DeriveStatus()
		booking.PaymentStatus = s.wholeCancelPaymentStatus(previousPayment)

		if err := s.persistCancellation(ctx, booking, released); err != nil {
			return err
		}

		available, err = s.repo.Trip.AdjustAvailableSeats(ctx, trip.ID, len(released))
		if err != nil {
			return s.ledgerErr("release seats", err)
		}

		return nil
	})
	if err != nil {
		return nil, s.fail("cancel booking", err,
			zap.String("user_id", userID),
			zap.String("booking_id", bookingID),
		)
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("user_id", userID),
		zap.String("trip_id", booking.TripID.String()),
		zap.Int("seat_count", len(released)),
		zap.String("payment_status", string(booking.PaymentStatus)),
		zap.Int("available_seats", available),
	)

	s.afterCommit(ctx, event.NewBookingEvent(event.BookingCancelled, booking, released, available), booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelSeats(ctx context.Context, userID, bookingID string, req *request.CancelSeatsRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Cancel seats validation failed", zap.Any("errors", errs))
		return nil, invalid("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, bookingUUID, err := parseOwnerAndBooking(userID, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	var cancelled []int
	var available int

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var trip *entity.Trip
		booking, trip, err = s.lockOwnedBooking(ctx, bookingUUID, userUUID)
		if err != nil {
			return err
		}

		cancelled = booking.CancelSeats(req.SeatNumbers)
		if len(cancelled) == 0 {
			return noOp("no valid seats to cancel in booking %s", bookingID)
		}

		booking.BookingStatus = booking.DeriveStatus()
		if booking.BookingStatus == entity.BookingStatusCancelled {
			booking.PaymentStatus = entity.PaymentStatusRefunded
		} else {
			booking.PaymentStatus = entity.PaymentStatusPartiallyRefunded
		}

		if err := s.persistCancellation(ctx, booking, cancelled); err != nil {
			return err
		}

		available, err = s.repo.Trip.AdjustAvailableSeats(ctx, trip.ID, len(cancelled))
		if err != nil {
			return s.ledgerErr("release seats", err)
		}

		return nil
	})
	if err != nil {
		return nil, s.fail("cancel seats", err,
			zap.String("user_id", userID),
			zap.String("booking_id", bookingID),
			zap.Ints("seat_numbers", req.SeatNumbers),
		)
	}

	s.log.Info("Booking seats cancelled",
		zap.String("booking_id", bookingID),
		zap.String("user_id", userID),
		zap.Ints("seat_numbers", cancelled),
		zap.String("booking_status", string(booking.BookingStatus)),
		zap.Int("available_seats", available),
	)

	s.afterCommit(ctx, event.NewBookingEvent(event.BookingSeatsCancelled, booking, cancelled, available), booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) PayBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error) {
	userUUID, bookingUUID, err := parseOwnerAndBooking(userID, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *entity.Booking
	var available int

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var trip *entity.Trip
		booking, trip, err = s.lockOwnedBooking(ctx, bookingUUID, userUUID)
		if err != nil {
			return err
		}
		available = trip.AvailableSeats

		if !booking.IsActive() {
			return conflict("booking %s is cancelled, cannot process payment", bookingID)
		}
		if booking.PaymentStatus != entity.PaymentStatusPending {
			return conflict("booking payment is %s, cannot process payment", booking.PaymentStatus)
		}

		booking.PaymentStatus = entity.PaymentStatusPaid
		if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, booking.BookingStatus, booking.PaymentStatus); err != nil {
			return infra("update booking status", err)
		}

		return nil
	})
	if err != nil {
		return nil, s.fail("pay booking", err,
			zap.String("user_id", userID),
			zap.String("booking_id", bookingID),
		)
	}

	s.log.Info("Booking paid",
		zap.String("booking_id", bookingID),
		zap.String("user_id", userID),
		zap.Float64("amount", booking.TotalAmount),
	)

	s.afterCommit(ctx, event.NewBookingEvent(event.BookingPaid, booking, booking.BookedSeatNumbers(), available), booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// ==================== READ PROJECTIONS ====================

func (s *bookingService) GetBookingHistory(ctx context.Context, userID string) ([]response.BookingResponse, error) {
	return s.listBookings(ctx, userID, cache.BookingHistoryKey, s.repo.Booking.FindByUserID)
}

func (s *bookingService) GetCurrentBookings(ctx context.Context, userID string) ([]response.BookingResponse, error) {
	return s.listBookings(ctx, userID, cache.CurrentBookingsKey, s.repo.Booking.FindActiveByUserID)
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, invalid("invalid booking ID format %s", bookingID)
	}

	var booking *entity.Booking
	err = s.repo.Tx.WithinReadTx(ctx, func(ctx context.Context) error {
		booking, err = s.repo.Booking.FindByID(ctx, id)
		if err != nil {
			return infra("load booking", err)
		}
		if booking == nil {
			return notFound("booking %s not found", bookingID)
		}
		return s.attachSeats(ctx, []*entity.Booking{booking})
	})
	if err != nil {
		return nil, s.fail("get booking by ID", err, zap.String("booking_id", bookingID))
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) listBookings(
	ctx context.Context,
	userID string,
	key func(uuid.UUID) string,
	find func(context.Context, uuid.UUID) ([]*entity.Booking, error),
) ([]response.BookingResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, invalid("invalid user ID format %s", userID)
	}

	cacheKey := key(userUUID)
	var cached []response.BookingResponse
	if ok, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("Booking cache read failed", zap.Error(err), zap.String("key", cacheKey))
	} else if ok {
		return cached, nil
	}

	// Taken before the read so a commit landing mid-read blocks the fill
	stamp, stampErr := s.cache.Stamp(ctx, cacheKey)
	if stampErr != nil {
		s.log.Warn("Booking cache stamp failed", zap.Error(stampErr), zap.String("key", cacheKey))
	}

	var bookings []*entity.Booking
	err = s.repo.Tx.WithinReadTx(ctx, func(ctx context.Context) error {
		bookings, err = find(ctx, userUUID)
		if err != nil {
			return infra("load bookings", err)
		}
		return s.attachSeats(ctx, bookings)
	})
	if err != nil {
		return nil, s.fail("list bookings", err, zap.String("user_id", userID))
	}

	result := response.BookingsToResponse(bookings)
	if stampErr == nil {
		if _, err := s.cache.SetIfUnchanged(ctx, cacheKey, result, stamp); err != nil {
			s.log.Warn("Booking cache write failed", zap.Error(err), zap.String("key", cacheKey))
		}
	}

	s.log.Debug("User bookings retrieved",
		zap.String("user_id", userID),
		zap.String("projection", cacheKey),
		zap.Int("count", len(result)),
	)

	return result, nil
}

// ==================== HELPER METHODS ====================

func parseOwnerAndBooking(userID, bookingID string) (uuid.UUID, uuid.UUID, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, invalid("invalid user ID format %s", userID)
	}
	bookingUUID, err := uuid.Parse(bookingID)
	if err != nil {
		return uuid.Nil, uuid.Nil, invalid("invalid booking ID format %s", bookingID)
	}
	return userUUID, bookingUUID, nil
}

func (s *bookingService) ensureUser(ctx context.Context, userID uuid.UUID) error {
	exists, err := s.repo.User.Exists(ctx, userID)
	if err != nil {
		return infra("check user", err)
	}
	if !exists {
		return notFound("user %s not found", userID)
	}
	return nil
}

// lockOwnedBooking locks the booking (only when owned by userID) and then
// its trip, always in that order. A foreign booking reads as not found.
func (s *bookingService) lockOwnedBooking(ctx context.Context, bookingID, userID uuid.UUID) (*entity.Booking, *entity.Trip, error) {
	booking, err := s.repo.Booking.FindByIDAndUserIDForUpdate(ctx, bookingID, userID)
	if err != nil {
		return nil, nil, infra("load booking", err)
	}
	if booking == nil {
		return nil, nil, notFound("booking %s not found", bookingID)
	}

	booking.Seats, err = s.repo.BookingSeat.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, nil, infra("load booking seats", err)
	}

	trip, err := s.repo.Trip.FindByIDForUpdate(ctx, booking.TripID)
	if err != nil {
		return nil, nil, infra("load trip", err)
	}
	if trip == nil {
		s.log.Error("Booking references missing trip",
			zap.String("booking_id", bookingID.String()),
			zap.String("trip_id", booking.TripID.String()),
		)
		return nil, nil, notFound("trip %s not found", booking.TripID)
	}

	return booking, trip, nil
}

func (s *bookingService) persistCancellation(ctx context.Context, booking *entity.Booking, seats []int) error {
	updated, err := s.repo.BookingSeat.UpdateStatus(ctx, booking.ID, seats, entity.SeatStatusCancelled)
	if err != nil {
		return infra("cancel booking seats", err)
	}
	if updated != int64(len(seats)) {
		return infra("cancel booking seats", fmt.Errorf("updated %d of %d seats", updated, len(seats)))
	}

	if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, booking.BookingStatus, booking.PaymentStatus); err != nil {
		return infra("update booking status", err)
	}

	booking.UpdatedAt = time.Now()
	return nil
}

// wholeCancelPaymentStatus: cancelling a whole booking fails its payment,
// unless the booking was paid and refunds are enabled.
func (s *bookingService) wholeCancelPaymentStatus(previous entity.PaymentStatus) entity.PaymentStatus {
	if s.config.RefundPaidOnCancel && previous == entity.PaymentStatusPaid {
		return entity.PaymentStatusRefunded
	}
	return entity.PaymentStatusFailed
}

func (s *bookingService) attachSeats(ctx context.Context, bookings []*entity.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}

	seats, err := s.repo.BookingSeat.FindByBookingIDs(ctx, ids)
	if err != nil {
		return infra("load booking seats", err)
	}
	for _, b := range bookings {
		b.Seats = seats[b.ID]
	}
	return nil
}

// ledgerErr turns storage-level seat conflicts into domain conflicts
func (s *bookingService) ledgerErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatTaken):
		return conflict("one or more requested seats are already booked")
	case errors.Is(err, repository.ErrCapacityExceeded):
		return conflict("not enough available seats")
	default:
		return infra(op, err)
	}
}

// fail logs err at a level matching its kind and returns it typed
func (s *bookingService) fail(op string, err error, fields ...zap.Field) error {
	err = infra(op, err)
	fields = append(fields, zap.Error(err))

	if IsTransient(err) {
		s.log.Error("Failed to "+op, fields...)
	} else {
		s.log.Warn(op+" rejected", fields...)
	}
	return err
}

// afterCommit drops stale projections and announces the change. Neither
// step can undo the committed transaction.
func (s *bookingService) afterCommit(ctx context.Context, ev event.Event, booking *entity.Booking) {
	keys := append(cache.UserKeys(booking.UserID), cache.TripKey(booking.TripID))
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Cache invalidation failed", zap.Error(err), zap.Strings("keys", keys))
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("Event publish failed",
			zap.Error(err),
			zap.String("type", string(ev.Type)),
			zap.String("booking_id", ev.BookingID),
		)
	}
}

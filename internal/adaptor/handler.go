package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"bus-booking/internal/usecase"
	"bus-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Trip    *TripHandler
	Booking *BookingHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Trip:    NewTripHandler(service.Trip, log),
		Booking: NewBookingHandler(service.Booking, log),
	}
}

// decodeJSON rejects unknown fields so typos in seat payloads do not pass silently
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleServiceError maps a typed service error onto the response envelope
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	msg := err.Error()

	switch {
	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" failed - validation", zap.Error(err))
		utils.ResponseBadRequest(w, msg, nil)

	case errors.Is(err, usecase.ErrUnauthorized):
		log.Warn(operation+" failed - unauthorized", zap.Error(err))
		utils.ResponseUnauthorized(w, msg)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, msg)

	case errors.Is(err, usecase.ErrSeatUnavailable):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, msg)

	case errors.Is(err, usecase.ErrNoSeatsToCancel):
		log.Warn(operation+" failed - nothing to change", zap.Error(err))
		utils.ResponseUnprocessable(w, msg)

	case errors.Is(err, usecase.ErrInfrastructure):
		log.Error("Failed to "+operation, zap.Error(err))
		w.Header().Set("Retry-After", "1")
		utils.ResponseServiceUnavailable(w, "Service temporarily unavailable, please retry")

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

package adaptor

import (
	"net/http"

	"bus-booking/internal/dto/request"
	"bus-booking/internal/usecase"
	"bus-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TripHandler struct {
	service usecase.TripService
	log     *zap.Logger
}

func NewTripHandler(service usecase.TripService, log *zap.Logger) *TripHandler {
	return &TripHandler{
		service: service,
		log:     log.With(zap.String("handler", "trip")),
	}
}

// CreateTrip handles POST /api/admin/trips (admin)
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	trip, err := h.service.CreateTrip(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create trip")
		return
	}

	utils.ResponseCreated(w, "Trip created", trip)
}

// GetTrip handles GET /api/trips/{id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.service.GetTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get trip")
		return
	}

	utils.ResponseSuccess(w, "success", trip)
}

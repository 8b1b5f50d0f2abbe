package wire

import (
	"net/http"

	"bus-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireTrip(r chi.Router, tripHandler *adaptor.TripHandler, auth, admin func(http.Handler) http.Handler) {
	// GET /api/trips/{id} - trip with taken seat map (public)
	r.Get("/api/trips/{id}", tripHandler.GetTrip)

	// ==================== ADMIN ROUTES ====================
	r.With(auth, admin).Post("/api/admin/trips", tripHandler.CreateTrip)
}

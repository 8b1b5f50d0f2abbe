package wire

import (
	"net/http"

	"bus-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, auth, admin func(http.Handler) http.Handler) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(auth)

		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/history", bookingHandler.GetBookingHistory)
		r.Get("/current", bookingHandler.GetCurrentBookings)

		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
		r.Post("/{id}/cancel-seats", bookingHandler.CancelSeats)
		r.Post("/{id}/pay", bookingHandler.PayBooking)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(auth, admin)

		r.Get("/{id}", bookingHandler.GetBookingByID)
	})
}

package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bus-booking/internal/dto/request"
	"bus-booking/internal/dto/response"
	"bus-booking/internal/usecase"
	"bus-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubBookingService returns err from every call, or a fixed booking
type stubBookingService struct {
	err        error
	lastUserID string
	lastSeats  []int
}

func (s *stubBookingService) result(userID string) (*response.BookingResponse, error) {
	s.lastUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &response.BookingResponse{ID: "b-1", UserID: userID}, nil
}

func (s *stubBookingService) CreateBooking(_ context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	s.lastSeats = req.SeatNumbers
	return s.result(userID)
}

func (s *stubBookingService) CancelBooking(_ context.Context, userID, _ string) (*response.BookingResponse, error) {
	return s.result(userID)
}

func (s *stubBookingService) CancelSeats(_ context.Context, userID, _ string, req *request.CancelSeatsRequest) (*response.BookingResponse, error) {
	s.lastSeats = req.SeatNumbers
	return s.result(userID)
}

func (s *stubBookingService) PayBooking(_ context.Context, userID, _ string) (*response.BookingResponse, error) {
	return s.result(userID)
}

func (s *stubBookingService) GetBookingHistory(_ context.Context, userID string) ([]response.BookingResponse, error) {
	resp, err := s.result(userID)
	if err != nil {
		return nil, err
	}
	return []response.BookingResponse{*resp}, nil
}

func (s *stubBookingService) GetCurrentBookings(ctx context.Context, userID string) ([]response.BookingResponse, error) {
	return s.GetBookingHistory(ctx, userID)
}

func (s *stubBookingService) GetBookingByID(_ context.Context, _ string) (*response.BookingResponse, error) {
	return s.result("")
}

func newBookingRouter(svc usecase.BookingService, userID uuid.UUID) http.Handler {
	h := NewBookingHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	if userID != uuid.Nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(utils.SetUserContext(r.Context(), userID, "customer")))
			})
		})
	}
	r.Post("/api/bookings", h.CreateBooking)
	r.Get("/api/bookings/history", h.GetBookingHistory)
	r.Post("/api/bookings/{id}/cancel", h.CancelBooking)
	r.Post("/api/bookings/{id}/cancel-seats", h.CancelSeats)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var env utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestCreateBooking_Handler(t *testing.T) {
	user := uuid.New()
	svc := &stubBookingService{}
	router := newBookingRouter(svc, user)

	body := fmt.Sprintf(`{"trip_id":%q,"seat_numbers":[4,2]}`, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Status)
	assert.Equal(t, user.String(), svc.lastUserID)
	assert.Equal(t, []int{4, 2}, svc.lastSeats)
}

func TestCreateBooking_HandlerRejectsBadBody(t *testing.T) {
	router := newBookingRouter(&stubBookingService{}, uuid.New())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown field", `{"trip_id":"x","seats":[1]}`},
		{"missing seats", fmt.Sprintf(`{"trip_id":%q}`, uuid.NewString())},
		{"seat zero", fmt.Sprintf(`{"trip_id":%q,"seat_numbers":[0]}`, uuid.NewString())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Status)
		})
	}
}

func TestCancelSeats_HandlerPassesUnheldNumbersThrough(t *testing.T) {
	svc := &stubBookingService{}
	router := newBookingRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+uuid.NewString()+"/cancel-seats",
		strings.NewReader(`{"seat_numbers":[0,2,2]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{0, 2, 2}, svc.lastSeats)

	req = httptest.NewRequest(http.MethodPost, "/api/bookings/"+uuid.NewString()+"/cancel-seats",
		strings.NewReader(`{"seat_numbers":[]}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandler_RequiresUser(t *testing.T) {
	router := newBookingRouter(&stubBookingService{}, uuid.Nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("wrapped: %w", usecase.ErrNotFound), http.StatusNotFound},
		{"conflict", usecase.ErrSeatUnavailable, http.StatusConflict},
		{"no op", usecase.ErrNoSeatsToCancel, http.StatusUnprocessableEntity},
		{"validation", usecase.ErrValidation, http.StatusBadRequest},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized},
		{"infrastructure", usecase.ErrInfrastructure, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newBookingRouter(&stubBookingService{err: tt.err}, uuid.New())

			req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+uuid.NewString()+"/cancel", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Status)
		})
	}
}

func TestHandleServiceError_InfrastructureHidesCause(t *testing.T) {
	cause := &usecase.Error{Kind: usecase.KindInfrastructure, Message: "load trip", Err: errors.New("dial tcp 10.0.0.5:5432")}
	router := newBookingRouter(&stubBookingService{err: cause}, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+uuid.NewString()+"/cancel-seats",
		strings.NewReader(`{"seat_numbers":[1]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

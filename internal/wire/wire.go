package wire

import (
	"net/http"

	"bus-booking/internal/adaptor"
	"bus-booking/internal/data/cache"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/event"
	"bus-booking/internal/usecase"
	"bus-booking/pkg/middleware"
	"bus-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired HTTP surface
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Deps are the infrastructure handles built in main
type Deps struct {
	Repo      *repository.Repository
	Cache     cache.Cache
	Publisher event.Publisher
}

// Wiring builds services, handlers and the router
func Wiring(deps Deps, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(deps.Repo, deps.Cache, deps.Publisher, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(handler, deps.Repo, logger),
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, repo *repository.Repository, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	auth := middleware.AuthSession(repo.Session, repo.User, logger)
	admin := middleware.Admin(logger)

	wireAuth(r, handler.Auth, auth)
	wireTrip(r, handler.Trip, auth, admin)
	wireBooking(r, handler.Booking, auth, admin)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

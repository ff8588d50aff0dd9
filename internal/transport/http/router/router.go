package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
)

type Handlers struct {
	Events    *handlers.EventsHandler
	Requests  *handlers.RequestsHandler
	Directory *handlers.DirectoryHandler
	Health    *handlers.HealthHandler
}

func New(h Handlers, auth *authmw.AuthMiddleware, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authmw.AccessLog)

	if cfg.RLEnabled {
		r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
	}

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/{id}", h.Events.GetPublic)

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(authmw.RequireSelf("userId"))

			r.Post("/events", h.Events.Create)
			r.Get("/events", h.Events.ListMine)
			r.Get("/events/{eventId}", h.Events.GetMine)
			r.Patch("/events/{eventId}", h.Events.UpdateMine)
			r.Get("/events/{eventId}/requests", h.Requests.ListForEvent)
			r.Patch("/events/{eventId}/requests", h.Requests.Decide)

			r.Get("/requests", h.Requests.ListMine)
			r.Post("/requests", h.Requests.Submit)
			r.Patch("/requests/{requestId}/cancel", h.Requests.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(authmw.RequireRole(authmw.RoleAdmin))

			r.Patch("/events/{eventId}", h.Events.AdminUpdate)
			r.Post("/users", h.Directory.CreateUser)
			r.Get("/users/{userId}", h.Directory.GetUser)
			r.Post("/categories", h.Directory.CreateCategory)
			r.Get("/categories/{catId}", h.Directory.GetCategory)
		})
	})

	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries what NewRouter wires together.
type RouterConfig struct {
	Handler  *EventHandler
	Verifier TokenVerifier
	// WebDir is served at the root when set.
	WebDir string
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", APIIndex)
		r.Get("/events", cfg.Handler.ListEvents)
		r.Get("/events/{id}", cfg.Handler.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Verifier))
			r.Post("/events", cfg.Handler.CreateEvent)
			r.Post("/events/{id}/register", cfg.Handler.Register)
			r.Delete("/events/{id}/register", cfg.Handler.CancelRegistration)
			r.Get("/users/{id}/registrations", cfg.Handler.ListUserRegistrations)
			r.Get("/users/{id}/events", cfg.Handler.ListUserEvents)
		})
	})

	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}
	return r
}

package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/middleware"
	"github.com/confcentral/confcentral/internal/service"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Profiles    *service.ProfileService
	Conferences *service.ConferenceService
	Ledger      *service.Ledger
	Sessions    *service.SessionService
	Speakers    *service.SpeakerService
	Facts       *service.FactService
}

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Logger        *slog.Logger
	Services      Services
	Auth          middleware.AuthConfig
	RateLimit     middleware.RateLimitConfig
	Metrics       metrics.Snapshotter
	DB            HealthChecker
	Cache         HealthChecker
	MaxBodySize   int64
	IsDevelopment bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	svc := cfg.Services

	h := New()
	health := NewHealthHandler(cfg.DB, cfg.Cache)
	metricsHandler := NewMetricsHandler(cfg.Metrics)
	conferences := NewConferenceHandler(svc.Conferences, svc.Ledger, logger)
	profiles := NewProfileHandler(svc.Profiles, logger)
	sessions := NewSessionHandler(svc.Sessions, svc.Speakers, logger)
	facts := NewFactHandler(svc.Facts, logger)

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxRequestBodySize
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.IsDevelopment))
	r.Use(middleware.MaxBodySize(maxBody))

	// Infra endpoints (no auth required)
	r.Get("/", h.Hello)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	requiredAuth := cfg.Auth
	requiredAuth.Optional = false
	optionalAuth := cfg.Auth
	optionalAuth.Optional = true

	r.Route("/internal/crons", func(r chi.Router) {
		r.Use(middleware.Auth(requiredAuth))
		r.Use(middleware.RequireAdmin())
		r.Post("/announcement", facts.RefreshAnnouncement)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads accept anonymous callers; a presented key must still be valid.
		r.Use(middleware.Auth(optionalAuth))
		r.Use(middleware.RateLimit(cfg.RateLimit))

		write := r.With(middleware.RequireWrite())
		read := r.With(middleware.RequireRead())

		r.Get("/announcement", facts.Announcement)

		r.Route("/conferences", func(r chi.Router) {
			r.With(middleware.RequireWrite()).Post("/", conferences.Create)
			r.Post("/query", conferences.Query)
			r.Get("/{key}", conferences.Get)
			r.With(middleware.RequireWrite()).Put("/{key}", conferences.Update)
			r.With(middleware.RequireWrite()).Post("/{key}/registration", conferences.Register)
			r.With(middleware.RequireWrite()).Delete("/{key}/registration", conferences.Unregister)
			r.With(middleware.RequireWrite()).Post("/{key}/sessions", sessions.Create)
			r.Get("/{key}/sessions", sessions.ListByConference)
			r.Get("/{key}/sessions/type/{type}", sessions.ListByType)
		})

		read.Get("/profile", profiles.Get)
		write.Post("/profile", profiles.Save)
		read.Get("/profile/conferences/created", conferences.Created)
		read.Get("/profile/conferences/attending", conferences.Attending)

		read.Get("/wishlist", sessions.Wishlist)
		write.Put("/wishlist/{key}", sessions.AddToWishlist)
		write.Delete("/wishlist/{key}", sessions.RemoveFromWishlist)

		r.Route("/speakers", func(r chi.Router) {
			r.With(middleware.RequireWrite()).Post("/", sessions.CreateSpeaker)
			r.Get("/featured", facts.FeaturedSpeaker)
			r.Get("/{key}", sessions.GetSpeaker)
			r.Get("/{key}/sessions", sessions.ListBySpeaker)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/sessions/non-workshop-before-seven", sessions.NonWorkshopsBeforeSeven)
			r.Get("/sessions/after-lunch", sessions.AfterLunch)
			r.Get("/conferences/small", conferences.Small)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

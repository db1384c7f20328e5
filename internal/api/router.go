// Package api provides the HTTP API for SimpleReader.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api/handler"
	"github.com/simplereader/simplereader/internal/api/middleware"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/featureflags"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/provider/resilience"
	"github.com/simplereader/simplereader/internal/publication"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	AuthService        *auth.Service
	AdminService       *admin.Service
	DeviceService      *device.Service
	PublicationService *publication.Service
	FeatureFlagService *featureflags.Service
	Feed               *feed.Assembler
	Providers          *resilience.Registry
	Checks             []handler.Check
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing)   // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.Checks,
		Providers: cfg.Providers,
		Flags:     cfg.FeatureFlagService,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService, cfg.Feed, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.AdminService, cfg.DeviceService, cfg.Feed, cfg.Logger)
	publicationHandler := handler.NewPublicationHandler(cfg.AdminService, cfg.PublicationService, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Reader app endpoints (public)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.DeviceRateLimit))
			r.Post("/register", deviceHandler.Register)
			r.Post("/feed", deviceHandler.Feed)
			r.Post("/report", deviceHandler.Report)
		})

		// Ops endpoints
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RateLimitByIP(middleware.LoginRateLimit)).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RateLimitByAdmin(middleware.AdminRateLimit))

				r.Route("/devices", func(r chi.Router) {
					r.Get("/", adminHandler.ListDevices)
					r.Route("/{deviceId}", func(r chi.Router) {
						r.Put("/tier", adminHandler.SetTier)
						r.Post("/message", adminHandler.Message)
						r.Delete("/", adminHandler.DeleteDevice)
					})
				})

				r.Post("/broadcast", adminHandler.Broadcast)
				r.Get("/feed", adminHandler.Feed)

				r.Route("/publications", func(r chi.Router) {
					r.Get("/", publicationHandler.ListPublications)
					r.Post("/", publicationHandler.CreatePublication)
					r.Route("/{publicationId}", func(r chi.Router) {
						r.Get("/", publicationHandler.GetPublication)
						r.Put("/", publicationHandler.UpdatePublication)
						r.Delete("/", publicationHandler.DeletePublication)
					})
				})

				// Feature flags management
				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				})
			})
		})
	})

	return r
}

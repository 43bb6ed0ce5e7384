// Package api provides HTTP API server components.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/sagaline/sagaline/config"
	"github.com/sagaline/sagaline/pkg/api/handlers"
	"github.com/sagaline/sagaline/pkg/api/middleware"
	"github.com/sagaline/sagaline/pkg/logger"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Saga handles command dispatch and instance lookups.
	Saga *handlers.SagaHandler

	// Health handles health check endpoints.
	Health *handlers.HealthHandler

	// WebSocket streams saga events to subscribed clients.
	WebSocket *handlers.WebSocketHandler

	// Metrics is the optional metrics recorder.
	Metrics middleware.MetricsRecorder

	// Tracing enables per-request trace spans when set.
	Tracing *middleware.TracingOptions
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, handlers *Handlers) chi.Router {
	r := chi.NewRouter()

	// Register global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	// Add metrics middleware if provided
	if handlers.Metrics != nil {
		r.Use(middleware.Metrics(handlers.Metrics))
	}
	if handlers.Tracing != nil {
		r.Use(middleware.Tracing(*handlers.Tracing))
	}

	r.Use(middleware.CORS(&cfg.Server.CORS))
	r.Use(middleware.Timeout(cfg.Server.HTTP.ReadTimeout))
	r.Use(middleware.RateLimit(&cfg.Server.RateLimit))

	// Register routes
	RegisterRoutes(r, handlers)

	return r
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(r chi.Router, handlers *Handlers) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if handlers.Saga != nil {
			r.Route("/sagas", func(r chi.Router) {
				r.Get("/", handlers.Saga.ListSagas)
				r.Route("/{saga}", func(r chi.Router) {
					r.Get("/vocabulary", handlers.Saga.GetVocabulary)
					r.Post("/commands/{command}", handlers.Saga.DispatchCommand)
					r.Get("/instances/{id}", handlers.Saga.GetInstance)
					r.Get("/instances/{id}/events", handlers.Saga.GetInstanceEvents)
				})
			})
		}

		if handlers.WebSocket != nil {
			r.Get("/events/stream", handlers.WebSocket.ServeHTTP)
		}
	})

	// Health check routes (not versioned)
	if handlers.Health != nil {
		r.Get("/health", handlers.Health.Health)
		r.Get("/ready", handlers.Health.Ready)
		r.Get("/status", handlers.Health.Status)
	}
}

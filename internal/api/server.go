// Package api provides the HTTP surface of the sync service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
)

// DefaultRequestTimeout bounds every route except POST /sync
const DefaultRequestTimeout = 10 * time.Second

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	triggerAuth    func(http.Handler) http.Handler
	metricsHandler http.Handler
	requestTimeout time.Duration
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithTriggerAuth sets the middleware guarding POST /sync
func WithTriggerAuth(mw func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.triggerAuth = mw
	}
}

// WithMetricsHandler mounts h on GET /metrics. A nil handler mounts nothing.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithRequestTimeout sets the timeout of the short-lived routes
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		if timeout > 0 {
			cfg.requestTimeout = timeout
		}
	}
}

// NewServer creates and configures the HTTP router around the run coordinator
func NewServer(coord coordinator.Coordinator, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares:    []func(http.Handler) http.Handler{},
		requestTimeout: DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Probes and metrics are cheap and unauthenticated
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.requestTimeout))
		registerHealthRoutes(r, coord)
		if cfg.metricsHandler != nil {
			r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
		}
	})

	// POST /sync holds the connection for a whole run, so it gets no request timeout
	r.Group(func(r chi.Router) {
		if cfg.triggerAuth != nil {
			r.Use(cfg.triggerAuth)
		} else {
			slog.Warn("POST /sync is mounted without authentication")
		}
		r.Post("/sync", syncHandler(coord))
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Package api provides the REST API server for schema resolution.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v0 "github.com/kubeschema/kubeschema/internal/api/v0"
	"github.com/kubeschema/kubeschema/internal/logger"
	"github.com/kubeschema/kubeschema/internal/service"
)

// ServerOption configures the API server.
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration.
type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
}

// WithMiddlewares adds middleware to the server.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// NewServer creates and configures the HTTP router with the given service
// and options.
func NewServer(svc service.SchemaService, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Health and version endpoints at root.
	r.Mount("/", v0.HealthRouter(svc))

	// Prometheus metrics.
	r.Handle("/metrics", promhttp.Handler())

	// Resolution API.
	r.Mount("/v0", v0.Router(svc))

	return r
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debugf("HTTP %s %s %d %s %s",
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			middleware.GetReqID(r.Context()),
		)
	})
}

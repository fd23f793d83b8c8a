// Package httpapi composes the application router: the global middleware
// chain, the feature modules, health probes and the metrics endpoint.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"auditflow/internal/platform/metrics"
	"auditflow/internal/platform/middleware"
	dErrors "auditflow/pkg/domain-errors"
	"auditflow/pkg/platform/httputil"
	"auditflow/pkg/platform/middleware/metadata"
	"auditflow/pkg/platform/middleware/requesttime"
)

// Module mounts its routes on the shared router.
type Module interface {
	Register(r chi.Router)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Production     bool
	BodyLimit      int64
	RequestTimeout time.Duration
	Checks         map[string]HealthChecker
}

// NewRouter builds the handler served by the process.
func NewRouter(opts Options, modules ...Module) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.SecureHeaders(opts.Production))
	if opts.BodyLimit > 0 {
		r.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(middleware.ContentTypeJSON)
	if opts.Metrics != nil {
		r.Use(middleware.LatencyMiddleware(opts.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(opts.Checks, opts.Logger))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	for _, m := range modules {
		m.Register(r)
	}

	r.NotFound(notFound)
	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	msg := "Not found"
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		msg = "API endpoint not found"
	}
	httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
		Error: msg,
		Code:  string(dErrors.CodeNotFound),
	})
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readiness(checks map[string]HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, c := range checks {
			if err := c.Health(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
				failed[name] = "unavailable"
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, readinessResponse{Status: "unavailable", Checks: failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, readinessResponse{Status: "ok"})
	}
}

// Package httpapi assembles the public router: domain routes, health, and
// metrics. Transport concerns stay here so handlers and services never see
// middleware wiring.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domainwatch/internal/watch/handler"
	"domainwatch/pkg/platform/httputil"
	"domainwatch/pkg/platform/middleware/reqlog"
)

// HealthCheck probes one dependency by name.
type HealthCheck func(ctx context.Context) error

// NewRouter wires all public endpoints.
func NewRouter(domains *handler.Handler, logger *slog.Logger, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(reqlog.Middleware(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	domains.Register(r)
	return r
}

// handleHealth reports per-dependency status. Any failing check degrades the
// whole response to 503 so orchestrators stop routing traffic here.
func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}

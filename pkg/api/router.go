// Package api exposes the scheduler's admin surface over HTTP: health
// probes, UE management, and scheduler statistics. It is an operator-local
// control socket; bind it to loopback.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/ransched/internal/logger"
	"github.com/marmos91/ransched/pkg/sched"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET    /health           - Liveness probe
//   - GET    /health/ready     - Readiness probe (cells configured)
//   - GET    /api/v1/stats     - Scheduler counters
//   - GET    /api/v1/ues       - List UEs
//   - POST   /api/v1/ues       - Add or reconfigure a UE
//   - DELETE /api/v1/ues/{rnti} - Schedule UE removal
func NewRouter(s *sched.Scheduler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	h := newHandler(s)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.liveness)
		r.Get("/ready", h.readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Route("/ues", func(r chi.Router) {
			r.Get("/", h.listUEs)
			r.Post("/", h.upsertUE)
			r.Delete("/{rnti}", h.removeUE)
		})
	})

	return r
}

// requestLogger logs completed requests through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			logger.KeyDurationMs, logger.Duration(start))
	})
}

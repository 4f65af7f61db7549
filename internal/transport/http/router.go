// Package httptransport assembles the public router. It owns wiring only;
// behavior lives in the feature handlers.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assignmenthandler "adoro/internal/assignment/handler"
	"adoro/internal/platform/middleware"
	"adoro/internal/ratelimit"
	schedulehandler "adoro/internal/schedule/handler"
)

// Deps carries the handlers and cross-cutting middleware the router mounts.
type Deps struct {
	Assignments *assignmenthandler.Handler
	Schedule    *schedulehandler.Handler
	Limiter     ratelimit.Limiter
	Logger      *slog.Logger
}

// NewRouter wires all public endpoints. The registration and deletion routes
// sit behind the rate limiter; catalog reads and operational endpoints do not.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Schedule != nil {
		deps.Schedule.Register(r)
	}

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter, deps.Logger))
		}
		deps.Assignments.Register(r)
	})

	return r
}

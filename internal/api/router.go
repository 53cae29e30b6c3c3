package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/reflections-api/internal/api/middleware"
	"github.com/phrazzld/reflections-api/internal/api/shared"
	"github.com/phrazzld/reflections-api/internal/service/auth"
	"github.com/phrazzld/reflections-api/internal/store"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps are the dependencies of the admin HTTP surface.
type RouterDeps struct {
	Jobs         store.JobStore
	JWT          auth.JWTService
	AdminSubject string
	DB           Pinger
	Logger       *slog.Logger
}

// NewRouter builds the HTTP handler: a public health check and the
// read-only admin job endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace(deps.Logger))

	jobHandler := NewJobHandler(deps.Jobs, deps.Logger)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWT)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(middleware.RequireSubject(deps.AdminSubject))

		r.Get("/jobs", jobHandler.ListJobs)
		r.Get("/jobs/{id}", jobHandler.GetJob)
	})

	r.Get("/health", healthHandler(deps.DB))

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"jobserver/internal/http/handlers"
	"jobserver/internal/infra"
	"jobserver/internal/middleware"
)

// NewRouter wires the API routes. The /v1 surface is user-facing and JWT
// authenticated; /internal is reserved for trusted callers holding the
// service token.
func NewRouter(app *handlers.App, cfg *infra.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))

	r.Get("/v1/healthz", app.Healthz)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Post("/", app.JobsCreate)
		r.Get("/", app.JobsList)
		r.Get("/events", app.JobEvents)
		r.Get("/{jobID}", app.JobStatus)
		r.Post("/{jobID}/retry", app.JobRetry)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.ServiceToken))

		r.Post("/dispatch", app.DispatchHook)
		r.Post("/governor/run", app.GovernorRun)
		r.Post("/jobs/trigger-all", app.JobsTriggerAll)
		r.Get("/jobs/verify", app.JobsVerify)
	})

	return r
}

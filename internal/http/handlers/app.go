package handlers

import (
	"encoding/json"
	"net/http"

	"jobserver/internal/dispatch"
	"jobserver/internal/domain"
	"jobserver/internal/govern"
	"jobserver/internal/infra"
	"jobserver/internal/jobs"
	"jobserver/internal/middleware"
	"jobserver/internal/notify"
)

// App is the handler container for the API service.
type App struct {
	Jobs       *jobs.Client
	JobsRepo   domain.JobRepository
	Dispatcher *dispatch.Dispatcher
	Governor   *govern.Governor
	Hub        *notify.Hub
	Logger     infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, map[string]string{"error": code, "message": msg})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobserver/internal/dispatch"
	"jobserver/internal/domain"
)

// DispatchHook receives database insert events and routes them through the
// dispatcher. It is the webhook target for the jobs-table insert trigger and
// is also callable by operators replaying events.
func (a *App) DispatchHook(w http.ResponseWriter, r *http.Request) {
	var ev dispatch.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	out, err := a.Dispatcher.HandleEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownType) {
			a.error(w, http.StatusBadRequest, "unknown_type", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: dispatch failed")
		a.error(w, http.StatusInternalServerError, "dispatch_failed", err.Error())
		return
	}

	resp := map[string]any{"disposition": out.Disposition}
	if out.Generator != "" {
		resp["generator"] = out.Generator
	}
	a.json(w, http.StatusOK, resp)
}

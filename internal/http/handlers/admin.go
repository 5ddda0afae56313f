package handlers

import (
	"net/http"

	"jobserver/internal/domain"
)

// GovernorRun executes one governance cycle on demand and returns the per-rule
// reports. Operators use this to force a release instead of waiting for the
// governor's next tick.
func (a *App) GovernorRun(w http.ResponseWriter, r *http.Request) {
	reports, err := a.Governor.RunCycle(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: governor cycle failed")
		a.error(w, http.StatusInternalServerError, "internal", "governor cycle failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"reports": reports})
}

// JobsTriggerAll re-dispatches every non-terminal job. Processing jobs are
// included: a generator that died mid-job left the row processing, and the
// claim check makes redelivery of live ones a no-op.
func (a *App) JobsTriggerAll(w http.ResponseWriter, r *http.Request) {
	active, err := a.JobsRepo.ListActive(r.Context(), 100)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list active jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list active jobs")
		return
	}

	triggered := 0
	failed := 0
	for i := range active {
		job := active[i]
		if err := a.Dispatcher.Release(r.Context(), &job); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("handlers: trigger failed")
			failed++
			continue
		}
		triggered++
	}

	a.json(w, http.StatusOK, map[string]any{
		"total":     len(active),
		"triggered": triggered,
		"failed":    failed,
	})
}

// JobsVerify reports the recent jobs with a per-status tally, the operator's
// quick health check on the pipeline.
func (a *App) JobsVerify(w http.ResponseWriter, r *http.Request) {
	recent, err := a.JobsRepo.ListRecent(r.Context(), 20)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list recent jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	counts := map[domain.JobStatus]int{}
	for _, j := range recent {
		counts[j.Status]++
	}

	a.json(w, http.StatusOK, map[string]any{
		"counts": counts,
		"jobs":   summarize(recent),
	})
}

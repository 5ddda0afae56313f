package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobserver/internal/domain"
	"jobserver/internal/jobs"
)

type createJobRequest struct {
	Type         domain.JobType  `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
}

// JobsCreate accepts a new job, inserts the pending row and hands it to the
// dispatcher. Accepted jobs return 202; the caller polls the status endpoint
// for the outcome.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user")
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Type == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_type is required")
		return
	}

	jobID, err := a.Jobs.Submit(r.Context(), jobs.SubmitParams{
		Type:         req.Type,
		Payload:      req.Payload,
		OwnerID:      userID,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownType) {
			a.error(w, http.StatusBadRequest, "unknown_type", "no generator handles this job type")
			return
		}
		if jobID != "" {
			// Row exists but dispatch failed; the job is already marked
			// failed, so report it rather than pretend nothing happened.
			a.json(w, http.StatusAccepted, map[string]any{"job_id": jobID, "status": domain.JobStatusFailed})
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: job submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{"job_id": jobID, "status": domain.JobStatusPending})
}

// JobStatus returns the caller's view of one job.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "jobID")

	st, err := a.Jobs.Poll(r.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job poll failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	a.json(w, http.StatusOK, st)
}

type jobSummary struct {
	JobID        string           `json:"job_id"`
	Type         domain.JobType   `json:"job_type"`
	Status       domain.JobStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	ScheduledFor *time.Time       `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

func summarize(list []domain.Job) []jobSummary {
	out := make([]jobSummary, 0, len(list))
	for _, j := range list {
		out = append(out, jobSummary{
			JobID:        j.ID,
			Type:         j.Type,
			Status:       j.Status,
			Error:        j.Error,
			ScheduledFor: j.ScheduledFor,
			CreatedAt:    j.CreatedAt,
			CompletedAt:  j.CompletedAt,
		})
	}
	return out
}

// JobsList returns the caller's most recent jobs.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)

	list, err := a.JobsRepo.ListRecentByOwner(r.Context(), userID, 20)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: job list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"jobs": summarize(list)})
}

// JobRetry clones a failed job into a fresh pending job.
func (a *App) JobRetry(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "jobID")

	newID, err := a.Jobs.Retry(r.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, domain.ErrNotRetryable):
			a.error(w, http.StatusBadRequest, "not_retryable", "only failed jobs can be retried")
		case newID != "":
			a.json(w, http.StatusAccepted, map[string]any{"job_id": newID, "status": domain.JobStatusFailed})
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job retry failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to retry job")
		}
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{"job_id": newID, "status": domain.JobStatusPending})
}

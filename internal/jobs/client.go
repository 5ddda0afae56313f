package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobserver/internal/dispatch"
	"jobserver/internal/domain"
)

// eventDispatcher is the slice of the dispatcher the client needs.
type eventDispatcher interface {
	HandleEvent(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error)
}

// typeChecker validates job types before a row is created, so a typo can
// never produce a row no generator will ever pick up.
type typeChecker interface {
	Known(jobType domain.JobType) bool
}

// Client is the caller-side library for the async job pattern: insert a
// pending row, hand it to the dispatcher, poll the row for the outcome.
type Client struct {
	repo       domain.JobRepository
	dispatcher eventDispatcher
	types      typeChecker
	logger     zerolog.Logger
}

func NewClient(repo domain.JobRepository, dispatcher eventDispatcher, types typeChecker, logger zerolog.Logger) *Client {
	return &Client{repo: repo, dispatcher: dispatcher, types: types, logger: logger}
}

// SubmitParams describes a job to create.
type SubmitParams struct {
	Type         domain.JobType
	Payload      json.RawMessage
	OwnerID      string
	ScheduledFor *time.Time
}

// Submit inserts a pending job and synchronously delivers its insert event to
// the dispatcher. If the dispatch delivery itself fails the job is marked
// failed before returning, so it can never sit silently pending with no
// generator informed of it. The job id is returned even on error once the row
// exists.
func (c *Client) Submit(ctx context.Context, p SubmitParams) (string, error) {
	if p.OwnerID == "" {
		return "", fmt.Errorf("submit: owner is required")
	}
	if !c.types.Known(p.Type) {
		return "", fmt.Errorf("submit: job type %q: %w", p.Type, domain.ErrUnknownType)
	}

	job := &domain.Job{
		Type:         p.Type,
		Payload:      p.Payload,
		OwnerID:      p.OwnerID,
		ScheduledFor: p.ScheduledFor,
	}
	if err := c.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	c.logger.Info().Str("job_id", job.ID).Str("job_type", string(job.Type)).Msg("jobs: created")

	if _, err := c.dispatcher.HandleEvent(ctx, dispatch.EventForJob(job)); err != nil {
		// The dispatcher records its own invoke failures; this write is a
		// no-op when the job already reached a terminal state.
		reason := fmt.Sprintf("dispatch invocation failed: %v", err)
		if _, failErr := c.repo.Fail(ctx, job.ID, reason); failErr != nil {
			c.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("jobs: failed to mark dispatch failure")
		}
		return job.ID, fmt.Errorf("submit: dispatch job %s: %w", job.ID, err)
	}

	return job.ID, nil
}

// Status is the read-only projection pollers consume.
type Status struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
	Result json.RawMessage  `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Poll returns the owner's view of a job.
func (c *Client) Poll(ctx context.Context, jobID, ownerID string) (*Status, error) {
	job, err := c.repo.GetByIDForOwner(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	return &Status{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}, nil
}

// Retry clones a failed job into a brand-new pending job and dispatches it.
// The original job is never mutated; retries are distinct entities with their
// own history. The clone's schedule resets to immediate.
func (c *Client) Retry(ctx context.Context, jobID, ownerID string) (string, error) {
	original, err := c.repo.GetByIDForOwner(ctx, jobID, ownerID)
	if err != nil {
		return "", err
	}
	if original.Status != domain.JobStatusFailed {
		return "", domain.ErrNotRetryable
	}

	newID, err := c.Submit(ctx, SubmitParams{
		Type:    original.Type,
		Payload: original.Payload,
		OwnerID: original.OwnerID,
	})
	if err != nil {
		return newID, fmt.Errorf("retry job %s: %w", jobID, err)
	}

	c.logger.Info().Str("job_id", jobID).Str("retry_job_id", newID).Msg("jobs: retried")
	return newID, nil
}

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobserver/internal/domain"
)

// EventInsert is the only event type the dispatcher acts on; anything else is
// acknowledged and ignored.
const EventInsert = "INSERT"

// ScheduleTolerance absorbs clock skew between the inserting client and the
// dispatch-time check. A job scheduled within this window of now is treated as
// immediate; further out it is left for the governor.
const ScheduleTolerance = 10 * time.Second

// Record is the job projection carried by a dispatch event, mirroring the
// columns of the inserted row.
type Record struct {
	ID           string         `json:"id"`
	JobType      domain.JobType `json:"job_type"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
}

// Event is the change-capture payload delivered on job insertion.
type Event struct {
	Type   string  `json:"type"`
	Record *Record `json:"record,omitempty"`
}

// EventForJob builds the insert event for a freshly created job. The job
// client and the admin sweep both deliver events through this.
func EventForJob(job *domain.Job) Event {
	return Event{
		Type: EventInsert,
		Record: &Record{
			ID:           job.ID,
			JobType:      job.Type,
			ScheduledFor: job.ScheduledFor,
		},
	}
}

// Disposition describes what the dispatcher did with an event.
type Disposition string

const (
	// DispositionIgnored: not an insert event, nothing to do.
	DispositionIgnored Disposition = "ignored"
	// DispositionDeferred: scheduled in the future, left for the governor.
	DispositionDeferred Disposition = "deferred"
	// DispositionDispatched: the generator accepted the job.
	DispositionDispatched Disposition = "dispatched"
)

// Outcome reports the dispatcher's decision for a single event.
type Outcome struct {
	Disposition Disposition
	Generator   string
}

// Dispatcher routes an eligible job to its generator and records
// dispatch-level failures on the job row. It holds no state across calls.
type Dispatcher struct {
	jobs     domain.JobRepository
	registry *Registry
	invoker  Invoker
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(jobs domain.JobRepository, registry *Registry, invoker Invoker, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:     jobs,
		registry: registry,
		invoker:  invoker,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleEvent processes one dispatch event:
//
//  1. Non-insert events are ignored.
//  2. Jobs scheduled beyond the tolerance are deferred without side effects.
//  3. The job type is resolved to a generator; unknown types error out
//     without touching the job row.
//  4. The generator is invoked; a rejected invocation marks the job failed
//     with the invocation error before returning it.
//
// Any panic below is caught here: once the job id is known, the job is marked
// failed rather than left silently pending.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) (out Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Msg("dispatcher: crashed")
			if ev.Record != nil && ev.Record.ID != "" {
				if _, failErr := d.jobs.Fail(ctx, ev.Record.ID, fmt.Sprintf("dispatcher crash: %v", p)); failErr != nil {
					d.logger.Error().Err(failErr).Str("job_id", ev.Record.ID).Msg("dispatcher: failed to record crash")
				}
			}
			out = Outcome{}
			err = fmt.Errorf("dispatcher crash: %v", p)
		}
	}()

	if ev.Type != EventInsert || ev.Record == nil {
		return Outcome{Disposition: DispositionIgnored}, nil
	}
	rec := ev.Record

	if rec.ScheduledFor != nil && rec.ScheduledFor.After(d.now().Add(ScheduleTolerance)) {
		d.logger.Debug().
			Str("job_id", rec.ID).
			Time("scheduled_for", *rec.ScheduledFor).
			Msg("dispatcher: job scheduled for future, deferring")
		return Outcome{Disposition: DispositionDeferred}, nil
	}

	generator, ok := d.registry.Resolve(rec.JobType)
	if !ok {
		d.logger.Error().Str("job_id", rec.ID).Str("job_type", string(rec.JobType)).Msg("dispatcher: no generator mapped")
		return Outcome{}, fmt.Errorf("job type %q: %w", rec.JobType, domain.ErrUnknownType)
	}

	d.logger.Info().Str("job_id", rec.ID).Str("generator", generator).Msg("dispatcher: routing job")

	if err := d.invoker.Invoke(ctx, generator, rec.ID); err != nil {
		reason := fmt.Sprintf("dispatch invoke error: %v", err)
		if _, failErr := d.jobs.Fail(ctx, rec.ID, reason); failErr != nil {
			d.logger.Error().Err(failErr).Str("job_id", rec.ID).Msg("dispatcher: failed to record invoke error")
		}
		return Outcome{}, fmt.Errorf("invoke generator %s: %w", generator, err)
	}

	return Outcome{Disposition: DispositionDispatched, Generator: generator}, nil
}

// Release dispatches a job on behalf of the governor. The governor has
// already verified quota and schedule, so the record's scheduled_for is
// rewritten to now to force the tolerance check to pass.
func (d *Dispatcher) Release(ctx context.Context, job *domain.Job) error {
	now := d.now()
	_, err := d.HandleEvent(ctx, Event{
		Type: EventInsert,
		Record: &Record{
			ID:           job.ID,
			JobType:      job.Type,
			ScheduledFor: &now,
		},
	})
	return err
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"jobserver/internal/dispatch"
	"jobserver/internal/domain"
	"jobserver/internal/providers/content"
)

const defaultJobTimeout = 5 * time.Minute

// Server hosts the generator invocation contract. Accepting a job is a
// two-phase affair: the handler claims the job, acknowledges with 202, and a
// background goroutine does the real work and writes exactly one terminal
// state. The dispatcher's timeout therefore stays short regardless of how
// long generation takes.
type Server struct {
	jobs       domain.JobRepository
	registry   *dispatch.Registry
	generators map[domain.JobType]content.Generator
	logger     zerolog.Logger
	jobTimeout time.Duration

	wg sync.WaitGroup
}

func NewServer(jobs domain.JobRepository, registry *dispatch.Registry, generators map[domain.JobType]content.Generator, logger zerolog.Logger) *Server {
	return &Server{
		jobs:       jobs,
		registry:   registry,
		generators: generators,
		logger:     logger,
		jobTimeout: defaultJobTimeout,
	}
}

// Wait blocks until all in-flight background generations have finished.
// Called during shutdown to drain cleanly.
func (s *Server) Wait() {
	s.wg.Wait()
}

type generateRequest struct {
	JobID string `json:"job_id"`
}

type generateResponse struct {
	JobID    string `json:"job_id"`
	Accepted bool   `json:"accepted"`
	Detail   string `json:"detail,omitempty"`
}

// HandleGenerate serves POST /generators/{name}.
func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		s.error(w, http.StatusBadRequest, "job_id is required")
		return
	}

	job, err := s.jobs.GetByID(r.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.error(w, http.StatusNotFound, "job not found")
			return
		}
		s.error(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	expected, ok := s.registry.Resolve(job.Type)
	if !ok || expected != name {
		s.error(w, http.StatusNotFound, "no such generator for job type")
		return
	}

	claimed, err := s.jobs.Claim(r.Context(), job.ID)
	if err != nil {
		s.error(w, http.StatusInternalServerError, "failed to claim job")
		return
	}
	if !claimed {
		// Duplicate delivery: the job is already processing or done.
		// At-least-once dispatch makes this normal, not an error.
		s.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("worker: job already claimed")
		s.json(w, http.StatusAccepted, generateResponse{JobID: job.ID, Accepted: false, Detail: "already claimed"})
		return
	}

	s.wg.Add(1)
	go s.run(job)

	s.json(w, http.StatusAccepted, generateResponse{JobID: job.ID, Accepted: true})
}

// run performs the generation and is solely responsible for the terminal
// write. It deliberately does not use the request context: the ack has
// already been sent.
func (s *Server) run(job *domain.Job) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	log := s.logger.With().Str("job_id", job.ID).Str("job_type", string(job.Type)).Logger()
	log.Info().Msg("worker: generating")

	generator, ok := s.generators[job.Type]
	if !ok {
		s.fail(ctx, log, job.ID, "no generator configured for job type "+string(job.Type))
		return
	}

	result, err := generator.Generate(ctx, job)
	if err != nil {
		s.fail(ctx, log, job.ID, err.Error())
		return
	}

	done, err := s.jobs.Complete(ctx, job.ID, result)
	if err != nil {
		log.Error().Err(err).Msg("worker: completion write failed")
		return
	}
	if !done {
		log.Warn().Msg("worker: job no longer processing, completion skipped")
		return
	}
	log.Info().Msg("worker: completed")
}

func (s *Server) fail(ctx context.Context, log zerolog.Logger, jobID, reason string) {
	log.Error().Str("reason", reason).Msg("worker: generation failed")
	if _, err := s.jobs.Fail(ctx, jobID, reason); err != nil {
		log.Error().Err(err).Msg("worker: failure write failed")
	}
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) error(w http.ResponseWriter, code int, msg string) {
	s.json(w, code, map[string]string{"error": msg})
}

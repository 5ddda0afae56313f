package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobserver/internal/domain"
	"jobserver/internal/infra"
	"jobserver/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new pending job row and fills in the generated id and
// created_at.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob,
		string(job.Type),
		nullableJSON(job.Payload),
		job.ScheduledFor,
		job.OwnerID,
	)
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = domain.JobStatusPending
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
}

// GetByIDForOwner fetches a job only if it belongs to the given owner.
func (r *JobRepositoryPG) GetByIDForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectJobForOwner, jobID, ownerID))
}

// ListRecentByOwner returns the owner's jobs, newest first.
func (r *JobRepositoryPG) ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentJobsByOwner, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return r.scanAll(rows)
}

// ListRecent returns the newest jobs across all owners.
func (r *JobRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	return r.scanAll(rows)
}

// ListActive returns jobs still pending or processing, newest first.
func (r *JobRepositoryPG) ListActive(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListActiveJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	return r.scanAll(rows)
}

// ListReleasable returns pending jobs of the given type due at or before now,
// oldest first.
func (r *JobRepositoryPG) ListReleasable(ctx context.Context, jobType domain.JobType, now time.Time, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListReleasableJobs, string(jobType), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list releasable jobs: %w", err)
	}
	return r.scanAll(rows)
}

// Claim flips pending -> processing. Returns false when the job was not
// pending, which callers treat as "someone else already has it".
func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QClaimJob, jobID)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete flips processing -> completed with the result payload.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, result json.RawMessage) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, jobID, nullableJSON(result))
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Fail flips pending or processing -> failed. A job already in a terminal
// state is left untouched, so a late crash-path write cannot clobber a result.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, reason string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, jobID, reason)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *JobRepositoryPG) scanOne(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var payload, result []byte
	var errMsg *string
	if err := row.Scan(
		&job.ID,
		&job.Type,
		&payload,
		&job.Status,
		&result,
		&errMsg,
		&job.ScheduledFor,
		&job.OwnerID,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Payload = payload
	job.Result = result
	if errMsg != nil {
		job.Error = *errMsg
	}
	return &job, nil
}

func (r *JobRepositoryPG) scanAll(rows pgx.Rows) ([]domain.Job, error) {
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		var payload, result []byte
		var errMsg *string
		if err := rows.Scan(
			&job.ID,
			&job.Type,
			&payload,
			&job.Status,
			&result,
			&errMsg,
			&job.ScheduledFor,
			&job.OwnerID,
			&job.CreatedAt,
			&job.StartedAt,
			&job.CompletedAt,
		); err != nil {
			return nil, err
		}
		job.Payload = payload
		job.Result = result
		if errMsg != nil {
			job.Error = *errMsg
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableJSON(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)

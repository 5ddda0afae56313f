package domain

import (
	"context"
	"encoding/json"
	"time"
)

// JobRepository defines persistence for job entities. Transition methods are
// conditional updates: they return false when the row was not in the expected
// prior state, so illegal transitions (e.g. completed -> pending) are rejected
// at the store layer instead of silently overwriting a terminal state.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByIDForOwner(ctx context.Context, jobID, ownerID string) (*Job, error)
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]Job, error)
	// ListRecent returns the newest jobs across all owners, for
	// administrative status reports.
	ListRecent(ctx context.Context, limit int) ([]Job, error)
	// ListActive returns jobs still pending or processing, newest first.
	ListActive(ctx context.Context, limit int) ([]Job, error)
	// ListReleasable returns pending jobs of the given type whose
	// scheduled_for is at or before now, oldest first.
	ListReleasable(ctx context.Context, jobType JobType, now time.Time, limit int) ([]Job, error)

	// Claim flips pending -> processing and stamps started_at.
	Claim(ctx context.Context, jobID string) (bool, error)
	// Complete flips processing -> completed with the result payload.
	Complete(ctx context.Context, jobID string, result json.RawMessage) (bool, error)
	// Fail flips pending or processing -> failed with a human-readable reason.
	Fail(ctx context.Context, jobID, reason string) (bool, error)
}

// RuleRepository defines persistence for governance rules.
type RuleRepository interface {
	List(ctx context.Context) ([]GovernanceRule, error)
	// IncrementUsage bumps current_usage by one server-side and returns the
	// new value. Must be a single atomic statement, never read-modify-write.
	IncrementUsage(ctx context.Context, ruleKey string) (int, error)
}

package domain

import (
	"encoding/json"
	"time"
)

// JobType enumerates supported generation job categories.
type JobType string

const (
	JobTypeCarouselGeneration JobType = "carousel_generation"
	JobTypeBlogGeneration     JobType = "blog_generation"
	JobTypeContentRepurpose   JobType = "content_repurpose"
	JobTypeDeepResearch       JobType = "deep_research"
	JobTypeLeadMagnet         JobType = "lead_magnet"
	JobTypeLinkedInOutreach   JobType = "linkedin_outreach"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions occur from this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a unit of asynchronous work with a durable state machine recorded in
// a jobs row. Result is non-nil only on completed; Error is non-empty only on
// failed. StartedAt is written by the generator host when it claims the job,
// CompletedAt by whichever component writes the terminal state.
type Job struct {
	ID           string
	Type         JobType
	Payload      json.RawMessage
	Status       JobStatus
	Result       json.RawMessage
	Error        string
	ScheduledFor *time.Time
	OwnerID      string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

package model

import "time"

// JobStatus represents the lifecycle state of an analysis job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one queued analysis of a subject. A job is created PENDING,
// claimed by exactly one worker at a time, and mutated only by that worker
// until it reaches a terminal status.
type Job struct {
	ID        string       `json:"id"`
	Subject   Subject      `json:"subject"`
	Status    JobStatus    `json:"status"`
	Progress  int          `json:"progress"`
	Attempts  int          `json:"attempts"`
	Result    *LeadProfile `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Package store persists analysis jobs and scored leads behind a single
// interface with SQLite and Postgres drivers.
package store

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Priority string  `json:"priority,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// JobStats is the per-status job census used by monitoring.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// LeadStats aggregates the stored leads for monitoring.
type LeadStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	HighPriority int     `json:"high_priority"`
}

// Store defines persistence for the analysis queue and its results.
//
// Claim semantics: ClaimJob atomically flips the oldest PENDING job to
// PROCESSING and increments its attempt counter, so no two workers ever hold
// the same job. It returns (nil, nil) when the queue is empty. A claimed job
// is mutated only by its worker until it reaches a terminal status or is
// released back to PENDING for another attempt.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, subject model.Subject) (*model.Job, error)
	ClaimJob(ctx context.Context) (*model.Job, error)
	UpdateJobProgress(ctx context.Context, jobID string, progress int) error
	CompleteJob(ctx context.Context, jobID string, result *model.LeadProfile) error
	FailJob(ctx context.Context, jobID string, reason string) error
	ReleaseJob(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Leads
	SaveLead(ctx context.Context, profile *model.LeadProfile) (*model.Lead, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Monitoring
	JobStats(ctx context.Context) (*JobStats, error)
	LeadStats(ctx context.Context) (*LeadStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

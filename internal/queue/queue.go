// Package queue implements the durable analysis queue on top of the store:
// submission, status reads, and the worker pool that drains PENDING jobs
// through the pipeline with at-least-once delivery.
package queue

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// MaxAttempts is the ceiling on processing attempts per job. A job whose
// claim count reaches it is marked FAILED instead of being released.
const MaxAttempts = 3

// Queue is the submission/status surface over the job store.
type Queue struct {
	store store.Store
}

// New creates a queue over the store.
func New(s store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue validates the subject and inserts a PENDING job. Validation
// failure surfaces as a model.ValidationError and creates nothing.
func (q *Queue) Enqueue(ctx context.Context, subject model.Subject) (*model.Job, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	job, err := q.store.CreateJob(ctx, subject)
	if err != nil {
		return nil, err
	}
	zap.L().Info("queue: job enqueued",
		zap.String("job_id", job.ID),
		zap.String("github", subject.GitHub),
		zap.String("website", subject.Website),
	)
	return job, nil
}

// Get returns the job by id.
func (q *Queue) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return q.store.GetJob(ctx, jobID)
}

// List returns recent jobs, newest first.
func (q *Queue) List(ctx context.Context, filter store.JobFilter) ([]model.Job, error) {
	return q.store.ListJobs(ctx, filter)
}

package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/store"
)

// Runner is the enrichment pipeline surface the worker drives.
type Runner interface {
	Run(ctx context.Context, subject model.Subject, progress pipeline.ProgressFunc) (*model.LeadProfile, error)
}

// PoolOptions configures the worker pool.
type PoolOptions struct {
	// Size is the number of concurrent workers. Defaults to 2.
	Size int
	// PollInterval is how long an idle worker waits before re-checking the
	// queue. Defaults to 2s.
	PollInterval time.Duration
}

// Pool drains PENDING jobs through the pipeline. Delivery is at-least-once:
// a transient failure before the attempt ceiling releases the job back to
// PENDING; terminal failures and exhausted attempts mark it FAILED.
type Pool struct {
	store  store.Store
	runner Runner
	opts   PoolOptions
}

// NewPool creates a worker pool.
func NewPool(s store.Store, runner Runner, opts PoolOptions) *Pool {
	if opts.Size <= 0 {
		opts.Size = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Pool{store: s, runner: runner, opts: opts}
}

// Run starts the workers and blocks until the context is canceled.
func (p *Pool) Run(ctx context.Context) error {
	zap.L().Info("queue: worker pool starting", zap.Int("size", p.opts.Size))

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Size; i++ {
		worker := i
		g.Go(func() error {
			return p.loop(gCtx, worker)
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, worker int) error {
	for {
		job, err := p.store.ClaimJob(ctx)
		if err != nil {
			zap.L().Error("queue: claim failed", zap.Int("worker", worker), zap.Error(err))
		} else if job != nil {
			p.process(ctx, worker, job)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// RunOnce claims and processes a single job, reporting whether one was
// available. Used by tests and by one-shot drains.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	job, err := p.store.ClaimJob(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	p.process(ctx, 0, job)
	return true, nil
}

func (p *Pool) process(ctx context.Context, worker int, job *model.Job) {
	zap.L().Info("queue: processing job",
		zap.Int("worker", worker),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempts),
	)

	progress := func(pct int, message string) {
		if err := p.store.UpdateJobProgress(ctx, job.ID, pct); err != nil {
			zap.L().Warn("queue: progress update failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		zap.L().Debug("queue: progress",
			zap.String("job_id", job.ID),
			zap.Int("progress", pct),
			zap.String("message", message),
		)
	}

	lead, err := p.runner.Run(ctx, job.Subject, progress)
	if err != nil {
		p.dispose(ctx, job, err)
		return
	}

	progress(98, "Saving results")
	if _, err := p.store.SaveLead(ctx, lead); err != nil {
		// The analysis itself succeeded; a failed save is retried like any
		// transient failure.
		p.dispose(ctx, job, err)
		return
	}

	if err := p.store.CompleteJob(ctx, job.ID, lead); err != nil {
		zap.L().Error("queue: complete failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	zap.L().Info("queue: job completed",
		zap.String("job_id", job.ID),
		zap.Float64("score", lead.Scoring.TotalScore),
	)
}

// dispose routes a failed attempt: terminal errors and exhausted attempts
// mark the job FAILED with a readable reason, anything else goes back to
// PENDING for another worker.
func (p *Pool) dispose(ctx context.Context, job *model.Job, cause error) {
	var ve *model.ValidationError
	if job.Attempts >= MaxAttempts || resilience.IsTerminal(cause) || errors.As(cause, &ve) {
		zap.L().Warn("queue: job failed",
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Error(cause),
		)
		if err := p.store.FailJob(ctx, job.ID, cause.Error()); err != nil {
			zap.L().Error("queue: fail-mark failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}

	zap.L().Info("queue: releasing job for retry",
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause),
	)
	if err := p.store.ReleaseJob(ctx, job.ID); err != nil {
		zap.L().Error("queue: release failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Package monitoring gathers operational metrics over the job and lead
// store for the /metrics endpoint and the jobs CLI.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Queue metrics.
	JobsTotal      int     `json:"jobs_total"`
	JobsPending    int     `json:"jobs_pending"`
	JobsProcessing int     `json:"jobs_processing"`
	JobsCompleted  int     `json:"jobs_completed"`
	JobsFailed     int     `json:"jobs_failed"`
	JobFailRate    float64 `json:"job_fail_rate"`

	// Lead metrics.
	LeadsTotal        int     `json:"leads_total"`
	LeadsHighPriority int     `json:"leads_high_priority"`
	AverageScore      float64 `json:"average_score"`

	// Metadata.
	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot of queue and lead metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: c.now().UTC()}

	jobs, err := c.store.JobStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: job stats")
	}
	snap.JobsPending = jobs.Pending
	snap.JobsProcessing = jobs.Processing
	snap.JobsCompleted = jobs.Completed
	snap.JobsFailed = jobs.Failed
	snap.JobsTotal = jobs.Pending + jobs.Processing + jobs.Completed + jobs.Failed

	if finished := jobs.Completed + jobs.Failed; finished > 0 {
		snap.JobFailRate = float64(jobs.Failed) / float64(finished)
	}

	leads, err := c.store.LeadStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: lead stats")
	}
	snap.LeadsTotal = leads.Count
	snap.LeadsHighPriority = leads.HighPriority
	snap.AverageScore = leads.AverageScore

	return snap, nil
}

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func jobColumns() []string {
	return []string{"id", "subject", "status", "progress", "attempts", "result", "error", "created_at", "updated_at"}
}

func TestPostgresCreateJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "PENDING", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.CreateJob(context.Background(), model.Subject{GitHub: "acme/widget"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	now := time.Now().UTC()
	subject, err := json.Marshal(model.Subject{GitHub: "acme/widget"})
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE jobs SET status = 'PROCESSING'").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(jobColumns()).
			AddRow("job-1", subject, model.JobStatusProcessing, 0, 1, nil, nil, now, now))

	job, err := s.ClaimJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, "acme/widget", job.Subject.GitHub)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimJobEmptyQueue(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("UPDATE jobs SET status = 'PROCESSING'").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(jobColumns()))

	job, err := s.ClaimJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateJobProgress(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET progress").
		WithArgs(50, pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateJobProgress(context.Background(), "job-1", 50))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET status = 'COMPLETED'").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteJob(context.Background(), "job-1", scoredProfile()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteJobMissing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET status = 'COMPLETED'").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteJob(context.Background(), "ghost", scoredProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET status = 'FAILED'").
		WithArgs("boom", pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailJob(context.Background(), "job-1", "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReleaseJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET status = 'PENDING'").
		WithArgs(pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.ReleaseJob(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJob(t *testing.T) {
	s, mock := newMockPostgres(t)

	now := time.Now().UTC()
	subject, err := json.Marshal(model.Subject{Website: "acme.dev"})
	require.NoError(t, err)
	result, err := json.Marshal(scoredProfile())
	require.NoError(t, err)
	errMsg := ""

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows(jobColumns()).
			AddRow("job-1", subject, model.JobStatusCompleted, 100, 1, &result, &errMsg, now, now))

	job, err := s.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Acme", job.Result.Company.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListJobsWithStatus(t *testing.T) {
	s, mock := newMockPostgres(t)

	now := time.Now().UTC()
	subject, err := json.Marshal(model.Subject{GitHub: "a/b"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE true AND status").
		WithArgs("PENDING", 10).
		WillReturnRows(pgxmock.NewRows(jobColumns()).
			AddRow("job-1", subject, model.JobStatusPending, 0, 0, nil, nil, now, now))

	jobs, err := s.ListJobs(context.Background(), JobFilter{Status: model.JobStatusPending, Limit: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveLead(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Acme", "acme.dev", 72.5, "B+", model.PriorityHigh,
			0.88, model.SourceGitHub, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	lead, err := s.SaveLead(context.Background(), scoredProfile())
	require.NoError(t, err)
	assert.Equal(t, "Acme", lead.Name)
	assert.Equal(t, "acme.dev", lead.Domain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStats(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("FAILED", 1))

	stats, err := s.JobStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadStats(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(model.PriorityHigh).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg", "high"}).
			AddRow(4, 61.25, 2))

	stats, err := s.LeadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 61.25, stats.AverageScore, 0.001)
	assert.Equal(t, 2, stats.HighPriority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

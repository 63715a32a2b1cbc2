package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// Pool is the pgx query surface the Postgres store needs. It is satisfied
// by *pgxpool.Pool and by pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path queue operations.
var preparedStatements = map[string]string{
	"insert_job": `INSERT INTO jobs (id, subject, status, progress, attempts, created_at, updated_at) VALUES ($1, $2, $3, 0, 0, $4, $5)`,
	"claim_job": `UPDATE jobs SET status = 'PROCESSING', attempts = attempts + 1, updated_at = $1
		WHERE id = (SELECT id FROM jobs WHERE status = 'PENDING' ORDER BY created_at LIMIT 1 FOR UPDATE SKIP LOCKED)
		RETURNING id, subject, status, progress, attempts, result, error, created_at, updated_at`,
	"update_job_progress": `UPDATE jobs SET progress = $1, updated_at = $2 WHERE id = $3 AND progress <= $1`,
	"complete_job":        `UPDATE jobs SET status = 'COMPLETED', progress = 100, result = $1, updated_at = $2 WHERE id = $3`,
	"get_job":             `SELECT id, subject, status, progress, attempts, result, error, created_at, updated_at FROM jobs WHERE id = $1`,
	"insert_lead": `INSERT INTO leads (id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	progress   INTEGER NOT NULL DEFAULT 0,
	attempts   INTEGER NOT NULL DEFAULT 0,
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	domain           TEXT,
	score            DOUBLE PRECISION NOT NULL,
	grade            TEXT NOT NULL,
	priority         TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	source           TEXT NOT NULL,
	profile          JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_analyzed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_priority ON leads(priority);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, subject model.Subject) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal subject")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, subject, status, progress, attempts, created_at, updated_at) VALUES ($1, $2, $3, 0, 0, $4, $5)`,
		id, subjectJSON, string(model.JobStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:        id,
		Subject:   subject,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ClaimJob uses SKIP LOCKED so concurrent workers never block on or claim
// the same row.
func (s *PostgresStore) ClaimJob(ctx context.Context) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'PROCESSING', attempts = attempts + 1, updated_at = $1
		 WHERE id = (SELECT id FROM jobs WHERE status = 'PENDING' ORDER BY created_at LIMIT 1 FOR UPDATE SKIP LOCKED)
		 RETURNING id, subject, status, progress, attempts, result, error, created_at, updated_at`,
		time.Now().UTC(),
	)
	job, err := scanPgJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: claim job")
	}
	return job, nil
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID string, progress int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET progress = $1, updated_at = $2 WHERE id = $3 AND progress <= $1`,
		progress, time.Now().UTC(), jobID,
	)
	return eris.Wrapf(err, "postgres: update job progress %s", jobID)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, result *model.LeadProfile) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'COMPLETED', progress = 100, result = $1, updated_at = $2 WHERE id = $3`,
		resultJSON, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'FAILED', error = $1, updated_at = $2 WHERE id = $3`,
		reason, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) ReleaseJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'PENDING', updated_at = $1 WHERE id = $2 AND status = 'PROCESSING'`,
		time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: release job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, subject, status, progress, attempts, result, error, created_at, updated_at FROM jobs WHERE id = $1`,
		jobID,
	)
	job, err := scanPgJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, subject, status, progress, attempts, result, error, created_at, updated_at FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) SaveLead(ctx context.Context, profile *model.LeadProfile) (*model.Lead, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal profile")
	}

	lead := leadRecord(id, profile, now)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lead.ID, lead.Name, lead.Domain, lead.Score, lead.Grade, lead.Priority,
		lead.Confidence, lead.Source, profileJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at
		 FROM leads WHERE id = $1`,
		leadID,
	)
	lead, err := scanPgLead(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at
	          FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, argIdx)
		args = append(args, filter.Priority)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) JobStats(ctx context.Context) (*JobStats, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: job stats")
	}
	defer rows.Close()

	stats := &JobStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job stats")
		}
		stats.apply(status, count)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: job stats iterate")
}

func (s *PostgresStore) LeadStats(ctx context.Context) (*LeadStats, error) {
	stats := &LeadStats{}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0),
		        COALESCE(SUM(CASE WHEN priority = $1 THEN 1 ELSE 0 END), 0)
		 FROM leads`,
		model.PriorityHigh,
	).Scan(&stats.Count, &stats.AverageScore, &stats.HighPriority)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead stats")
	}
	return stats, nil
}

// helpers

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var subjectJSON []byte
	var resultJSON *[]byte
	var errMsg *string

	err := row.Scan(&j.ID, &subjectJSON, &j.Status, &j.Progress, &j.Attempts,
		&resultJSON, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(subjectJSON, &j.Subject); err != nil {
		return nil, eris.Wrap(err, "unmarshal subject")
	}
	if resultJSON != nil {
		j.Result = &model.LeadProfile{}
		if err := json.Unmarshal(*resultJSON, j.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	return &j, nil
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var domain *string
	var profileJSON []byte

	err := row.Scan(&l.ID, &l.Name, &domain, &l.Score, &l.Grade, &l.Priority,
		&l.Confidence, &l.Source, &profileJSON, &l.CreatedAt, &l.LastAnalyzedAt)
	if err != nil {
		return nil, err
	}

	if domain != nil {
		l.Domain = *domain
	}
	l.Profile = &model.LeadProfile{}
	if err := json.Unmarshal(profileJSON, l.Profile); err != nil {
		return nil, eris.Wrap(err, "unmarshal profile")
	}
	return &l, nil
}

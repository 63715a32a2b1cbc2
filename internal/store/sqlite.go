package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	progress   INTEGER NOT NULL DEFAULT 0,
	attempts   INTEGER NOT NULL DEFAULT 0,
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	domain           TEXT,
	score            REAL NOT NULL,
	grade            TEXT NOT NULL,
	priority         TEXT NOT NULL,
	confidence       REAL NOT NULL,
	source           TEXT NOT NULL,
	profile          TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	last_analyzed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score);
CREATE INDEX IF NOT EXISTS idx_leads_priority ON leads(priority);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, subject model.Subject) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal subject")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, subject, status, progress, attempts, created_at, updated_at) VALUES (?, ?, ?, 0, 0, ?, ?)`,
		id, string(subjectJSON), string(model.JobStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.Job{
		ID:        id,
		Subject:   subject,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ClaimJob flips the oldest PENDING job to PROCESSING in one statement so
// concurrent workers never claim the same row.
func (s *SQLiteStore) ClaimJob(ctx context.Context) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs SET status = ?, attempts = attempts + 1, updated_at = ?
		 WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1)
		 RETURNING id, subject, status, progress, attempts, result, error, created_at, updated_at`,
		string(model.JobStatusProcessing), time.Now().UTC(), string(model.JobStatusPending),
	)
	job, err := scanJob(row)
	if err == errJobNotFound {
		return nil, nil
	}
	return job, err
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, jobID string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ? AND progress <= ?`,
		progress, time.Now().UTC(), jobID, progress,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job progress %s", jobID)
	}
	// A lower progress value than what is stored is a no-op, not an error.
	_, err = res.RowsAffected()
	return eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, result *model.LeadProfile) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress = 100, result = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusCompleted), string(resultJSON), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusFailed), reason, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) ReleaseJob(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusPending), time.Now().UTC(), jobID, string(model.JobStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: release job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, status, progress, attempts, result, error, created_at, updated_at FROM jobs WHERE id = ?`,
		jobID,
	)
	job, err := scanJob(row)
	if err == errJobNotFound {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	return job, err
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, subject, status, progress, attempts, result, error, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, profile *model.LeadProfile) (*model.Lead, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile")
	}

	lead := leadRecord(id, profile, now)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Domain, lead.Score, lead.Grade, lead.Priority,
		lead.Confidence, lead.Source, string(profileJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at
		 FROM leads WHERE id = ?`,
		leadID,
	)
	lead, err := scanLead(row)
	if err == errLeadNotFound {
		return nil, eris.Errorf("lead not found: %s", leadID)
	}
	return lead, err
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, name, domain, score, grade, priority, confidence, source, profile, created_at, last_analyzed_at
	          FROM leads WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) JobStats(ctx context.Context) (*JobStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: job stats")
	}
	defer rows.Close()

	stats := &JobStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job stats")
		}
		stats.apply(status, count)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: job stats iterate")
}

func (s *SQLiteStore) LeadStats(ctx context.Context) (*LeadStats, error) {
	stats := &LeadStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0),
		        COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0)
		 FROM leads`,
		model.PriorityHigh,
	).Scan(&stats.Count, &stats.AverageScore, &stats.HighPriority)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead stats")
	}
	return stats, nil
}

// helpers

var (
	errJobNotFound  = eris.New("job not found")
	errLeadNotFound = eris.New("lead not found")
)

func (s *JobStats) apply(status string, count int) {
	switch model.JobStatus(status) {
	case model.JobStatusPending:
		s.Pending = count
	case model.JobStatusProcessing:
		s.Processing = count
	case model.JobStatusCompleted:
		s.Completed = count
	case model.JobStatusFailed:
		s.Failed = count
	}
}

// leadRecord derives the denormalized lead row from a merged profile.
func leadRecord(id string, profile *model.LeadProfile, now time.Time) *model.Lead {
	lead := &model.Lead{
		ID:             id,
		Name:           profile.DisplayName(),
		Domain:         profile.DomainKey(),
		Source:         profile.Metadata.Source,
		Profile:        profile,
		CreatedAt:      now,
		LastAnalyzedAt: now,
	}
	if profile.Scoring != nil {
		lead.Score = profile.Scoring.TotalScore
		lead.Grade = profile.Scoring.Grade
		lead.Priority = profile.Scoring.Priority
		lead.Confidence = profile.Scoring.Confidence
	}
	return lead
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var subjectJSON string
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&j.ID, &subjectJSON, &j.Status, &j.Progress, &j.Attempts,
		&resultJSON, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errJobNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if err := json.Unmarshal([]byte(subjectJSON), &j.Subject); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal subject")
	}
	if resultJSON.Valid {
		j.Result = &model.LeadProfile{}
		if err := json.Unmarshal([]byte(resultJSON.String), j.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if errMsg.Valid {
		j.Error = errMsg.String
	}
	return &j, nil
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var domain sql.NullString
	var profileJSON string

	err := row.Scan(&l.ID, &l.Name, &domain, &l.Score, &l.Grade, &l.Priority,
		&l.Confidence, &l.Source, &profileJSON, &l.CreatedAt, &l.LastAnalyzedAt)
	if err == sql.ErrNoRows {
		return nil, errLeadNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	if domain.Valid {
		l.Domain = domain.String
	}
	l.Profile = &model.LeadProfile{}
	if err := json.Unmarshal([]byte(profileJSON), l.Profile); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &l, nil
}

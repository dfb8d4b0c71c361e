package evalstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/parley/internal/domain/evaluation"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS evaluations (
	interview_id TEXT NOT NULL,
	version      TEXT NOT NULL,
	output_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (interview_id, version)
);
CREATE TABLE IF NOT EXISTS evaluation_overrides (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	interview_id TEXT NOT NULL,
	version      TEXT NOT NULL,
	band         TEXT NOT NULL,
	reviewer     TEXT NOT NULL,
	note         TEXT,
	created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_jobs (
	id           TEXT PRIMARY KEY,
	interview_id TEXT NOT NULL,
	version      TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
`

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates the store and its schema.
func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("create evaluation schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// SaveResult implements Store. The insert is conditional so an existing
// row is never rewritten.
func (s *SQLiteStore) SaveResult(ctx context.Context, out evaluation.Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations(interview_id, version, output_json, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(interview_id, version) DO NOTHING`,
		out.InterviewID, out.Version, string(data), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s@%s", ErrAlreadyExists, out.InterviewID, out.Version)
	}
	return nil
}

// GetResult implements Store.
func (s *SQLiteStore) GetResult(ctx context.Context, interviewID, version string) (evaluation.Output, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT output_json FROM evaluations WHERE interview_id = ? AND version = ?`,
		interviewID, version,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluation.Output{}, fmt.Errorf("%w: %s@%s", ErrNotFound, interviewID, version)
	}
	if err != nil {
		return evaluation.Output{}, fmt.Errorf("read evaluation: %w", err)
	}
	var out evaluation.Output
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return evaluation.Output{}, fmt.Errorf("decode evaluation: %w", err)
	}
	return out, nil
}

// SaveOverride implements Store.
func (s *SQLiteStore) SaveOverride(ctx context.Context, o evaluation.Override) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluation_overrides(interview_id, version, band, reviewer, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.InterviewID, o.Version, string(o.Band), o.Reviewer, o.Note,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert override: %w", err)
	}
	return nil
}

// Overrides implements Store.
func (s *SQLiteStore) Overrides(ctx context.Context, interviewID, version string) ([]evaluation.Override, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT interview_id, version, band, reviewer, COALESCE(note, '')
		 FROM evaluation_overrides WHERE interview_id = ? AND version = ? ORDER BY id`,
		interviewID, version,
	)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()
	var out []evaluation.Override
	for rows.Next() {
		var o evaluation.Override
		var band string
		if err := rows.Scan(&o.InterviewID, &o.Version, &band, &o.Reviewer, &o.Note); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.Band = evaluation.Band(band)
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateJob implements Store.
func (s *SQLiteStore) CreateJob(ctx context.Context, job Job) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluation_jobs(id, interview_id, version, status, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', ?, ?)`,
		job.ID, job.InterviewID, job.Version, string(JobPending), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob implements Store.
func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, status JobStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE evaluation_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, s.now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return nil
}

// GetJob implements Store.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	var status, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, interview_id, version, status, COALESCE(error, ''), created_at, updated_at
		 FROM evaluation_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.InterviewID, &job.Version, &status, &job.Error, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	if err != nil {
		return Job{}, fmt.Errorf("read job: %w", err)
	}
	job.Status = JobStatus(status)
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Job{}, fmt.Errorf("parse job created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Job{}, fmt.Errorf("parse job updated_at: %w", err)
	}
	return job, nil
}

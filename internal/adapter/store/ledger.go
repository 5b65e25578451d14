package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rehberci/backupd/internal/domain"
)

// Create inserts a new ledger entry.
func (s *Store) Create(ctx context.Context, job domain.BackupJob) error {
	tablesJSON, err := json.Marshal(job.Tables)
	if err != nil {
		return fmt.Errorf("sqlite: marshal tables: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backup_jobs (id, created_at, status, tables, file_name, file_size, error, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(job.Status),
		string(tablesJSON),
		job.FileName,
		job.FileSize,
		job.Error,
		nullableInstant(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.BackupJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, status, tables, file_name, file_size, error, completed_at
		FROM backup_jobs WHERE id = ?`, id)

	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BackupJob{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.BackupJob{}, fmt.Errorf("sqlite: get job %s: %w", id, err)
	}
	return job, nil
}

// Update persists the job's mutable fields. The current status is re-read
// inside the transaction so a stale writer cannot move a job backwards or
// touch a terminal one.
func (s *Store) Update(ctx context.Context, job domain.BackupJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM backup_jobs WHERE id = ?", job.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: read job %s status: %w", job.ID, err)
	}

	from := domain.JobStatus(current)
	if from != job.Status && !from.CanTransitionTo(job.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, job.Status)
	}
	if from == job.Status && from.Terminal() {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, job.ID, from)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE backup_jobs
		SET status = ?, file_name = ?, file_size = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		string(job.Status),
		job.FileName,
		job.FileSize,
		job.Error,
		nullableInstant(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update job %s: %w", job.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit update: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM backup_jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete job %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// List returns all jobs, newest first. Id breaks ties so the order is stable.
func (s *Store) List(ctx context.Context) ([]domain.BackupJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, status, tables, file_name, file_size, error, completed_at
		FROM backup_jobs
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanJobs(rows)
}

func (s *Store) ListByStatus(ctx context.Context, status domain.JobStatus) ([]domain.BackupJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, status, tables, file_name, file_size, error, completed_at
		FROM backup_jobs
		WHERE status = ?
		ORDER BY created_at DESC, id DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list jobs by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]domain.BackupJob, error) {
	var jobs []domain.BackupJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(scan func(...any) error) (domain.BackupJob, error) {
	var (
		job          domain.BackupJob
		status       string
		tablesJSON   string
		createdAtStr string
		completedAt  sql.NullString
	)

	if err := scan(&job.ID, &createdAtStr, &status, &tablesJSON,
		&job.FileName, &job.FileSize, &job.Error, &completedAt); err != nil {
		return domain.BackupJob{}, err
	}

	job.Status = domain.JobStatus(status)

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return domain.BackupJob{}, fmt.Errorf("parse created_at %q: %w", createdAtStr, err)
	}
	job.CreatedAt = createdAt

	if err := json.Unmarshal([]byte(tablesJSON), &job.Tables); err != nil {
		return domain.BackupJob{}, fmt.Errorf("unmarshal tables: %w", err)
	}

	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return domain.BackupJob{}, fmt.Errorf("parse completed_at %q: %w", completedAt.String, err)
		}
		job.CompletedAt = &t
	}

	return job, nil
}

func nullableInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

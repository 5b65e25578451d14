package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rehberci/backupd/internal/archive"
	"github.com/rehberci/backupd/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Executor drives one backup job through its whole lifecycle:
// pending -> in_progress -> completed|failed. At most one job runs at a time;
// a trigger arriving while another job is in flight gets
// domain.ErrBackupInProgress instead of a second job.
type Executor struct {
	extractor     domain.Extractor
	artifacts     domain.ArtifactStore
	ledger        domain.JobLedger
	logger        Logger
	allowedTables []string
	uploadTimeout time.Duration

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewExecutor(
	extractor domain.Extractor,
	artifacts domain.ArtifactStore,
	ledger domain.JobLedger,
	logger Logger,
	allowedTables []string,
	uploadTimeout time.Duration,
) *Executor {
	return &Executor{
		extractor:     extractor,
		artifacts:     artifacts,
		ledger:        ledger,
		logger:        logger,
		allowedTables: allowedTables,
		uploadTimeout: uploadTimeout,
	}
}

// Execute creates a pending job and returns its id immediately; the
// remaining stages run on a background goroutine detached from the caller's
// context. The outcome lands in the ledger, not in a return value.
func (e *Executor) Execute(ctx context.Context, tables []string) (string, error) {
	job, err := e.begin(ctx, tables)
	if err != nil {
		return "", err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.running.Store(false)
		e.run(context.Background(), job)
	}()

	return job.ID, nil
}

// ExecuteSync runs the job to its terminal state before returning. The
// scheduler loop uses it so retention runs against an up-to-date ledger.
// A non-nil error with a non-empty job id means the job itself failed and
// the failure is already recorded on it.
func (e *Executor) ExecuteSync(ctx context.Context, tables []string) (string, error) {
	job, err := e.begin(ctx, tables)
	if err != nil {
		return "", err
	}
	defer e.running.Store(false)

	if runErr := e.run(ctx, job); runErr != nil {
		return job.ID, runErr
	}
	return job.ID, nil
}

// Wait blocks until any in-flight background job has finished. Used on
// shutdown so a job is never abandoned mid-write.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// AllowedTables returns a copy of the configured allow-list.
func (e *Executor) AllowedTables() []string {
	return append([]string(nil), e.allowedTables...)
}

func (e *Executor) begin(ctx context.Context, tables []string) (domain.BackupJob, error) {
	validated, err := domain.ValidateTables(tables, e.allowedTables)
	if err != nil {
		return domain.BackupJob{}, err
	}

	if !e.running.CompareAndSwap(false, true) {
		return domain.BackupJob{}, domain.ErrBackupInProgress
	}

	job := domain.NewBackupJob(validated, time.Now())
	if err := e.ledger.Create(ctx, job); err != nil {
		e.running.Store(false)
		return domain.BackupJob{}, fmt.Errorf("create ledger entry: %w", err)
	}

	e.logger.Infof("[job %s] created, tables: %v", job.ID, job.Tables)
	return job, nil
}

func (e *Executor) run(ctx context.Context, job domain.BackupJob) error {
	start := time.Now()

	job.Status = domain.StatusInProgress
	if err := e.ledger.Update(ctx, job); err != nil {
		e.logger.Errorf("[job %s] failed to mark in progress: %v", job.ID, err)
		return err
	}

	snapshot := make(domain.Snapshot, len(job.Tables))
	for _, table := range job.Tables {
		rows, err := e.extractor.ReadAll(ctx, table)
		if err != nil {
			return e.fail(ctx, job, fmt.Errorf("extract table %q: %w", table, err))
		}
		snapshot[table] = rows
		e.logger.Infof("[job %s] extracted %d row(s) from %s", job.ID, len(rows), table)
	}

	data, err := archive.Marshal(snapshot)
	if err != nil {
		return e.fail(ctx, job, err)
	}

	name := archive.ArtifactName(job.ID, time.Now())

	// a hung blob store must resolve to a failed job, not a stuck one
	uploadCtx, cancel := context.WithTimeout(ctx, e.uploadTimeout)
	defer cancel()
	if err := e.artifacts.Upload(uploadCtx, name, data); err != nil {
		return e.fail(ctx, job, fmt.Errorf("upload artifact: %w", err))
	}

	now := time.Now().UTC()
	job.Status = domain.StatusCompleted
	job.FileName = name
	job.FileSize = int64(len(data))
	job.CompletedAt = &now
	if err := e.ledger.Update(ctx, job); err != nil {
		e.logger.Errorf("[job %s] failed to mark completed: %v", job.ID, err)
		return err
	}

	e.logger.Infof("[job %s] completed in %s: %s (%d bytes)",
		job.ID, time.Since(start).Round(time.Millisecond), name, job.FileSize)
	return nil
}

// fail moves the job to its terminal failed state. The original error is
// returned so synchronous callers can log it.
func (e *Executor) fail(ctx context.Context, job domain.BackupJob, cause error) error {
	now := time.Now().UTC()
	job.Status = domain.StatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now

	if err := e.ledger.Update(ctx, job); err != nil {
		e.logger.Errorf("[job %s] failed to record failure %q: %v", job.ID, cause, err)
		return errors.Join(cause, err)
	}

	e.logger.Errorf("[job %s] failed: %v", job.ID, cause)
	return cause
}

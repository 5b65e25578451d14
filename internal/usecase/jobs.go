package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rehberci/backupd/internal/domain"
)

// ErrNoArtifact marks a job that has nothing to download: not completed, or
// completed before any artifact was recorded.
var ErrNoArtifact = errors.New("job has no artifact")

// Jobs is the read/delete surface over the ledger for callers outside the
// core (the HTTP API today).
type Jobs struct {
	ledger       domain.JobLedger
	artifacts    domain.ArtifactStore
	logger       Logger
	signedURLTTL time.Duration
}

func NewJobs(ledger domain.JobLedger, artifacts domain.ArtifactStore, logger Logger, signedURLTTL time.Duration) *Jobs {
	return &Jobs{
		ledger:       ledger,
		artifacts:    artifacts,
		logger:       logger,
		signedURLTTL: signedURLTTL,
	}
}

func (j *Jobs) List(ctx context.Context) ([]domain.BackupJob, error) {
	return j.ledger.List(ctx)
}

func (j *Jobs) Get(ctx context.Context, id string) (domain.BackupJob, error) {
	return j.ledger.Get(ctx, id)
}

// Delete removes a job and, when one exists, its artifact. Unlike retention
// this is an explicit operator action, so an artifact that cannot be deleted
// aborts the whole delete instead of being skipped.
func (j *Jobs) Delete(ctx context.Context, id string) error {
	job, err := j.ledger.Get(ctx, id)
	if err != nil {
		return err
	}

	if job.FileName != "" {
		if err := j.artifacts.Remove(ctx, job.FileName); err != nil {
			return fmt.Errorf("delete artifact: %w", err)
		}
	}

	if err := j.ledger.Delete(ctx, id); err != nil {
		return err
	}

	j.logger.Infof("[job %s] deleted", id)
	return nil
}

// Download returns the artifact bytes and its name.
func (j *Jobs) Download(ctx context.Context, id string) ([]byte, string, error) {
	job, err := j.artifactJob(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := j.artifacts.Download(ctx, job.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("download artifact: %w", err)
	}
	return data, job.FileName, nil
}

// Link returns a short-lived retrieval URL for the artifact.
func (j *Jobs) Link(ctx context.Context, id string) (string, error) {
	job, err := j.artifactJob(ctx, id)
	if err != nil {
		return "", err
	}
	return j.artifacts.SignedURL(ctx, job.FileName, j.signedURLTTL)
}

func (j *Jobs) artifactJob(ctx context.Context, id string) (domain.BackupJob, error) {
	job, err := j.ledger.Get(ctx, id)
	if err != nil {
		return domain.BackupJob{}, err
	}
	if job.Status != domain.StatusCompleted || job.FileName == "" {
		return domain.BackupJob{}, fmt.Errorf("%w: %s", ErrNoArtifact, id)
	}
	return job, nil
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

var (
	ErrJobNotFound       = errors.New("backup job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrBackupInProgress  = errors.New("a backup is already in progress")
)

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal jobs are immutable
// except for deletion.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the forward-only lifecycle
// pending -> in_progress -> completed|failed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

type BackupJob struct {
	ID          string
	CreatedAt   time.Time
	Status      JobStatus
	Tables      []string
	FileName    string
	FileSize    int64
	Error       string
	CompletedAt *time.Time
}

func NewBackupJob(tables []string, now time.Time) BackupJob {
	return BackupJob{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Status:    StatusPending,
		Tables:    append([]string(nil), tables...),
	}
}

package domain

import (
	"context"
	"time"
)

// Extractor reads every row of a named source table.
type Extractor interface {
	ReadAll(ctx context.Context, table string) ([]Row, error)
}

// ArtifactStore is the gateway to the blob store holding serialized
// snapshots.
type ArtifactStore interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, name string) error
}

// JobLedger is the persisted record of every backup attempt.
type JobLedger interface {
	Create(ctx context.Context, job BackupJob) error
	Get(ctx context.Context, id string) (BackupJob, error)
	// Update persists the job's mutable fields, rejecting any status change
	// that is not a valid forward transition with ErrInvalidTransition.
	Update(ctx context.Context, job BackupJob) error
	Delete(ctx context.Context, id string) error
	// List returns jobs ordered by creation time, newest first.
	List(ctx context.Context) ([]BackupJob, error)
	ListByStatus(ctx context.Context, status JobStatus) ([]BackupJob, error)
}

// ScheduleStore persists the schedule singleton. Save rejects writes carrying
// a stale version with ErrScheduleConflict.
type ScheduleStore interface {
	Load(ctx context.Context) (Schedule, error)
	Save(ctx context.Context, s Schedule) (Schedule, error)
}

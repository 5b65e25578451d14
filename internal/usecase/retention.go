package usecase

import (
	"context"
	"fmt"

	"github.com/rehberci/backupd/internal/domain"
)

// Retention bounds how many completed jobs (and their artifacts) are kept.
// Failed and in-progress jobs are never counted and never touched.
type Retention struct {
	ledger    domain.JobLedger
	artifacts domain.ArtifactStore
	logger    Logger
}

func NewRetention(ledger domain.JobLedger, artifacts domain.ArtifactStore, logger Logger) *Retention {
	return &Retention{
		ledger:    ledger,
		artifacts: artifacts,
		logger:    logger,
	}
}

// Enforce deletes the oldest completed jobs beyond retentionCount, artifact
// first, then the ledger entry. A failure on one entry is logged and the
// next entry still gets its turn; one bad record must not block cleanup of
// the rest. Returns the ids actually deleted.
func (r *Retention) Enforce(ctx context.Context, retentionCount int) ([]string, error) {
	if retentionCount < 1 {
		return nil, fmt.Errorf("retention count must be positive, got %d", retentionCount)
	}

	completed, err := r.ledger.ListByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list completed jobs: %w", err)
	}
	if len(completed) <= retentionCount {
		return nil, nil
	}

	var deleted []string
	for _, job := range completed[retentionCount:] {
		if job.FileName != "" {
			if err := r.artifacts.Remove(ctx, job.FileName); err != nil {
				r.logger.Errorf("retention: failed to delete artifact %s: %v", job.FileName, err)
				continue
			}
		}

		if err := r.ledger.Delete(ctx, job.ID); err != nil {
			r.logger.Errorf("retention: failed to delete job %s: %v", job.ID, err)
			continue
		}

		deleted = append(deleted, job.ID)
	}

	if len(deleted) > 0 {
		r.logger.Infof("retention: deleted %d old backup(s), keeping %d", len(deleted), retentionCount)
	}
	return deleted, nil
}

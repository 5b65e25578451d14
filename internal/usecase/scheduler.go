package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rehberci/backupd/internal/domain"
)

// Scheduler is the process-wide driver: every tick it compares now to the
// persisted next_run and fires a backup when due, then advances the schedule
// and enforces retention. The host guarantees ticks never overlap.
type Scheduler struct {
	schedule  domain.ScheduleStore
	executor  *Executor
	retention *Retention
	logger    Logger
	now       func() time.Time
}

func NewScheduler(schedule domain.ScheduleStore, executor *Executor, retention *Retention, logger Logger) *Scheduler {
	return &Scheduler{
		schedule:  schedule,
		executor:  executor,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Tick is the unit of scheduled work. No-op unless the schedule is enabled
// and due. A failed backup still advances next_run; only a concurrent manual
// trigger defers the scheduled run to a later tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	sched, err := s.schedule.Load(ctx)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	if !sched.Enabled || sched.NextRun == nil || sched.NextRun.After(now) {
		return nil
	}

	s.logger.Infof("schedule due (next_run %s), starting backup", sched.NextRun.Format(time.RFC3339))

	jobID, runErr := s.executor.ExecuteSync(ctx, sched.Tables)
	if runErr != nil && jobID == "" {
		if errors.Is(runErr, domain.ErrBackupInProgress) {
			// a manual run is in flight; leave next_run alone and retry next tick
			s.logger.Warnf("scheduled backup deferred: %v", runErr)
			return nil
		}
		s.logger.Errorf("scheduled backup could not start: %v", runErr)
	} else if runErr != nil {
		// terminal failure, already recorded on the job
		s.logger.Errorf("scheduled backup %s failed: %v", jobID, runErr)
	}

	// advance from the instant the run actually fired, not the stale
	// scheduled time, so late ticks don't accumulate drift
	if err := s.advance(ctx, sched, now); err != nil {
		return err
	}

	if _, err := s.retention.Enforce(ctx, sched.RetentionCount); err != nil {
		s.logger.Errorf("retention enforcement failed: %v", err)
	}

	return nil
}

// advance persists last_run and the recomputed next_run in a single write.
// On a version conflict (a concurrent manual save) the schedule is reloaded
// and the recompute reapplied once against the fresh rule.
func (s *Scheduler) advance(ctx context.Context, sched domain.Schedule, fired time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		sched.LastRun = &fired
		next := domain.NextRun(sched, fired)
		sched.NextRun = &next

		_, err := s.schedule.Save(ctx, sched)
		if err == nil {
			s.logger.Infof("next run scheduled for %s", next.Format(time.RFC3339))
			return nil
		}
		if !errors.Is(err, domain.ErrScheduleConflict) {
			return fmt.Errorf("persist schedule: %w", err)
		}

		sched, err = s.schedule.Load(ctx)
		if err != nil {
			return fmt.Errorf("reload schedule after conflict: %w", err)
		}
	}
	return fmt.Errorf("persist schedule: %w", domain.ErrScheduleConflict)
}

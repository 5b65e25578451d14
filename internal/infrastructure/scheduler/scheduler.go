// Package scheduler wraps the cron runner that drives the engine's periodic
// tick.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// TickSpec fires at second zero of every minute.
const TickSpec = "0 * * * * *"

type Scheduler struct {
	cron *cron.Cron
}

// New builds a seconds-resolution cron whose jobs are single-flight: a tick
// that is still running when the next one fires makes the new one a no-op
// instead of a concurrent run.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

func (s *Scheduler) AddJob(spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		_ = job(context.Background())
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

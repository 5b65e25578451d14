// Package server exposes the trigger/admin surface of the backup engine as a
// small JSON API: run-now, job inspection and deletion, artifact retrieval,
// and the schedule singleton.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rehberci/backupd/internal/domain"
	"github.com/rehberci/backupd/internal/usecase"
)

type Server struct {
	executor *usecase.Executor
	jobs     *usecase.Jobs
	schedule domain.ScheduleStore
	logger   usecase.Logger
	http     *http.Server
	now      func() time.Time
}

func New(addr string, executor *usecase.Executor, jobs *usecase.Jobs, schedule domain.ScheduleStore, logger usecase.Logger) *Server {
	s := &Server{
		executor: executor,
		jobs:     jobs,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/backups", s.handleRunNow())
		r.Get("/backups", s.handleListJobs())
		r.Get("/backups/{id}", s.handleGetJob())
		r.Delete("/backups/{id}", s.handleDeleteJob())
		r.Get("/backups/{id}/download", s.handleDownload())
		r.Get("/backups/{id}/link", s.handleLink())

		r.Get("/schedule", s.handleGetSchedule())
		r.Put("/schedule", s.handleSaveSchedule())
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// Start blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

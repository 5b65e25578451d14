package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rehberci/backupd/internal/adapter/blob"
	"github.com/rehberci/backupd/internal/adapter/source"
	"github.com/rehberci/backupd/internal/adapter/store"
	"github.com/rehberci/backupd/internal/config"
	"github.com/rehberci/backupd/internal/domain"
	"github.com/rehberci/backupd/internal/infrastructure/logger"
	"github.com/rehberci/backupd/internal/infrastructure/scheduler"
	"github.com/rehberci/backupd/internal/server"
	"github.com/rehberci/backupd/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	store     *store.Store
	source    *source.SQLite
	executor  *usecase.Executor
	scheduler *usecase.Scheduler
	cron      *scheduler.Scheduler
	server    *server.Server
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	bookkeeping, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bookkeeping store: %w", err)
	}

	defaults, err := cfg.DefaultSchedule()
	if err != nil {
		return nil, err
	}
	if defaults.Enabled {
		next := domain.NextRun(defaults, time.Now())
		defaults.NextRun = &next
	}
	if err := bookkeeping.EnsureSchedule(context.Background(), defaults); err != nil {
		return nil, err
	}

	src, err := source.Open(cfg.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	artifacts, err := initArtifactStore(cfg, log)
	if err != nil {
		return nil, err
	}

	executor := usecase.NewExecutor(src, artifacts, bookkeeping, log,
		cfg.Source.Tables, cfg.Artifact.UploadTimeout)
	retention := usecase.NewRetention(bookkeeping, artifacts, log)
	loop := usecase.NewScheduler(bookkeeping, executor, retention, log)
	jobs := usecase.NewJobs(bookkeeping, artifacts, log, cfg.Artifact.SignedURLTTL)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Addr, executor, jobs, bookkeeping, log)
	}

	return &App{
		config:    cfg,
		logger:    log,
		store:     bookkeeping,
		source:    src,
		executor:  executor,
		scheduler: loop,
		cron:      scheduler.New(),
		server:    srv,
	}, nil
}

func initArtifactStore(cfg *config.Config, log *logger.Logger) (domain.ArtifactStore, error) {
	switch cfg.Artifact.Backend {
	case "s3":
		s3Store, err := blob.NewS3(&cfg.Artifact.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 artifact store: %w", err)
		}
		log.Infof("✓ S3 artifact store enabled (bucket: %s)", cfg.Artifact.S3.Bucket)
		return s3Store, nil

	default:
		local, err := blob.NewLocal(cfg.Artifact.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local artifact store: %w", err)
		}
		log.Infof("✓ Local artifact store enabled (%s)", cfg.Artifact.Local.Path)
		return local, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	if err := a.cron.AddJob(scheduler.TickSpec, a.scheduler.Tick); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	a.cron.Start()
	a.logger.Infof("Scheduler started, ticking every minute")

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			errCh <- a.server.Start()
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")

	a.cron.Stop()

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorf("HTTP server shutdown: %v", err)
		}
	}

	// let a detached manual backup reach its terminal state
	a.executor.Wait()

	if err := a.source.Close(); err != nil {
		a.logger.Errorf("close source database: %v", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Errorf("close bookkeeping store: %v", err)
	}
	a.logger.Close()
}

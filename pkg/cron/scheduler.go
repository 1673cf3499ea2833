// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/reconcile"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	engine   *reconcile.Engine
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. The schedule is a standard
// 5-field cron expression; the default reconciles nightly at 3:00 AM.
func NewScheduler(engine *reconcile.Engine, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &Scheduler{
		cron:     c,
		engine:   engine,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.reconcileStagedRows)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the reconciliation job (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.reconcileStagedRows()
}

// reconcileStagedRows runs the reconciliation engine over everything staged.
func (s *Scheduler) reconcileStagedRows() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly reconciliation")

	summary, err := s.engine.Run(ctx)
	if err != nil {
		s.logger.Error("nightly reconciliation aborted", slog.Any("error", err))
		return
	}

	s.logger.Info("nightly reconciliation done",
		slog.Int("rows", summary.RowsTotal),
		slog.Int("inserted", summary.Inserted),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("batch_errors", summary.BatchErrors),
	)
}

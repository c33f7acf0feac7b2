package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"astroconsult-backend/internal/jobs"
	"astroconsult-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
	ctx  context.Context
}

// NewScheduler creates a new scheduler with the provided job runner.
// Jobs run with ctx and stop being scheduled once Stop is called.
func NewScheduler(ctx context.Context, jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// UTC with seconds precision; a run still in progress skips the next tick.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		ctx:  ctx,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	specs := []struct {
		name string
		spec string
	}{
		{jobs.JobExpireUnansweredSessions, cfg.ExpireUnansweredSessions},
		{jobs.JobBillActiveSessions, cfg.BillActiveSessions},
		{jobs.JobCloseAbandonedSessions, cfg.CloseAbandonedSessions},
		{jobs.JobExpirePendingRecharges, cfg.ExpirePendingRecharges},
	}
	for _, j := range specs {
		name := j.name
		if _, err := s.cron.AddFunc(j.spec, func() { _ = s.jobs.Run(s.ctx, name) }); err != nil {
			logger.Error("Failed to register job", "job", name, "spec", j.spec, "error", err)
			return err
		}
		logger.Debug("Registered job", "job", name, "spec", j.spec)
	}

	logger.Info("All cron jobs registered successfully", "count", len(specs))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

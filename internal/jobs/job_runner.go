package jobs

import (
	"context"
	"fmt"
	"time"

	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
	"astroconsult-backend/internal/service"
)

// Job names, used by the scheduler, the cronjob CLI and metrics.
const (
	JobExpireUnansweredSessions = "expire-unanswered-sessions"
	JobBillActiveSessions       = "bill-active-sessions"
	JobCloseAbandonedSessions   = "close-abandoned-sessions"
	JobExpirePendingRecharges   = "expire-pending-recharges"
)

// SchedulerCallerID is recorded as the caller of transitions made by jobs.
const SchedulerCallerID = "scheduler"

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Sessions   service.SessionService
	Settlement service.SettlementService
	Recharge   service.RechargeService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Run executes one job by name.
func (jr *JobRunner) Run(ctx context.Context, name string) error {
	switch name {
	case JobExpireUnansweredSessions:
		return jr.ExpireUnansweredSessions(ctx)
	case JobBillActiveSessions:
		return jr.BillActiveSessions(ctx)
	case JobCloseAbandonedSessions:
		return jr.CloseAbandonedSessions(ctx)
	case JobExpirePendingRecharges:
		return jr.ExpirePendingRecharges(ctx)
	default:
		return fmt.Errorf("unknown job: %s", name)
	}
}

// RunAll runs every job once, in lifecycle order.
func (jr *JobRunner) RunAll(ctx context.Context) error {
	var firstErr error
	for _, name := range []string{JobExpireUnansweredSessions, JobBillActiveSessions, JobCloseAbandonedSessions, JobExpirePendingRecharges} {
		if err := jr.Run(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func() error) (err error) {
	start := jr.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.JobRunsTotal.WithLabelValues(jobName, status).Inc()
	}()

	logger.Debug("Starting job", "job", jobName)
	if err = jobFunc(); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Debug("Job completed", "job", jobName, "duration", jr.now().Sub(start))
	return nil
}

package jobs

import (
	"context"
	"errors"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
)

// ExpireUnansweredSessions marks sessions that rang past the ring timeout as missed.
func (jr *JobRunner) ExpireUnansweredSessions(ctx context.Context) error {
	return jr.runWithRecovery(JobExpireUnansweredSessions, func() error {
		cutoff := jr.now().Add(-jr.config.Sessions.RingTimeout)
		sessions, err := jr.services.Sessions.ListSessionsByStatus(ctx,
			[]domain.SessionStatus{domain.SessionStatusPending, domain.SessionStatusRinging}, cutoff)
		if err != nil {
			return err
		}

		count := 0
		for _, s := range sessions {
			_, err := jr.services.Sessions.TransitionSession(ctx, s.ID, domain.ActionMissed, SchedulerCallerID, domain.RoleSystem, domain.TransitionPayload{})
			switch {
			case err == nil:
				count++
			case errors.Is(err, domain.ErrInvalidTransition):
				// Answered or rejected since it was listed.
			default:
				logger.Warn("Failed to expire unanswered session", "sessionID", s.ID, "error", err)
			}
		}
		if count > 0 {
			logger.Info("Marked unanswered sessions as missed", "count", count)
		}
		return nil
	})
}

// BillActiveSessions charges every active session for the minutes accrued so far
// and, when configured, ends sessions whose customer has run out of money.
func (jr *JobRunner) BillActiveSessions(ctx context.Context) error {
	return jr.runWithRecovery(JobBillActiveSessions, func() error {
		sessions, err := jr.services.Sessions.ListSessionsByStatus(ctx,
			[]domain.SessionStatus{domain.SessionStatusActive}, jr.now())
		if err != nil {
			return err
		}

		billed, ended := 0, 0
		for _, s := range sessions {
			result, err := jr.services.Settlement.BillInterim(ctx, s.ID)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					logger.Warn("Interim billing failed", "sessionID", s.ID, "error", err)
				}
				continue
			}
			if result.Applied() {
				billed++
			}
			if jr.config.Billing.EndOnEmptyWallet && !result.CustomerBalance.IsPositive() {
				if _, err := jr.services.Settlement.SettleOnEnd(ctx, s.ID); err != nil {
					if !errors.Is(err, domain.ErrInvalidTransition) {
						logger.Warn("Failed to end session on empty wallet", "sessionID", s.ID, "error", err)
					}
					continue
				}
				ended++
				logger.Info("Session ended on empty wallet", "sessionID", s.ID, "customerID", s.CustomerID,
					"balance", result.CustomerBalance.StringFixed(2))
			}
		}
		if billed > 0 || ended > 0 {
			logger.Info("Billed active sessions", "billed", billed, "ended", ended)
		}
		return nil
	})
}

// CloseAbandonedSessions ends and settles sessions that have run past the maximum duration.
func (jr *JobRunner) CloseAbandonedSessions(ctx context.Context) error {
	return jr.runWithRecovery(JobCloseAbandonedSessions, func() error {
		now := jr.now()
		// Interim billing touches updated_at, so the start time is checked here.
		sessions, err := jr.services.Sessions.ListSessionsByStatus(ctx,
			[]domain.SessionStatus{domain.SessionStatusActive}, now)
		if err != nil {
			return err
		}

		cutoff := now.Add(-jr.config.Sessions.MaxDuration)
		count := 0
		for _, s := range sessions {
			if s.StartTime == nil || !s.StartTime.Before(cutoff) {
				continue
			}
			if _, err := jr.services.Sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, SchedulerCallerID, domain.RoleSystem, domain.TransitionPayload{}); err != nil {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					logger.Warn("Failed to close abandoned session", "sessionID", s.ID, "error", err)
				}
				continue
			}
			count++
		}
		if count > 0 {
			logger.Info("Closed abandoned sessions", "count", count)
		}
		return nil
	})
}

// ExpirePendingRecharges fails recharge orders that were never paid.
func (jr *JobRunner) ExpirePendingRecharges(ctx context.Context) error {
	return jr.runWithRecovery(JobExpirePendingRecharges, func() error {
		_, err := jr.services.Recharge.ExpirePendingRecharges(ctx, jr.now().Add(-jr.config.Billing.PendingRechargeTTL))
		return err
	})
}

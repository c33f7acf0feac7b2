package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
	"astroconsult-backend/internal/repository"
	"astroconsult-backend/internal/utils"
)

type settleMode int

const (
	settleOnEnd settleMode = iota
	settleReported
	settleInterim
)

func (m settleMode) String() string {
	switch m {
	case settleReported:
		return "reported"
	case settleInterim:
		return "interim"
	default:
		return "end"
	}
}

type reportedTotals struct {
	minutes int64
	total   decimal.Decimal
}

type settlementService struct {
	store    repository.Store
	notifier Notifier
	policy   BillingPolicy
	now      func() time.Time
}

func NewSettlementService(store repository.Store, notifier Notifier, policy BillingPolicy, opts ...Option) SettlementService {
	o := buildOptions(opts)
	if policy.Overdraft == "" {
		policy.Overdraft = OverdraftAllow
	}
	if policy.PlatformUserID == "" {
		policy.PlatformUserID = "platform"
	}
	return &settlementService{
		store:    store,
		notifier: notifier,
		policy:   policy,
		now:      o.now,
	}
}

func (s *settlementService) SettleOnEnd(ctx context.Context, sessionID string) (*domain.SettlementResult, error) {
	return s.settle(ctx, sessionID, settleOnEnd, nil)
}

func (s *settlementService) EndSession(ctx context.Context, sessionID string, reportedMinutes int64, reportedTotal decimal.Decimal) (*domain.SettlementResult, error) {
	if reportedMinutes < 0 {
		return nil, domain.NewValidationError("duration_minutes", "must not be negative")
	}
	if reportedTotal.IsNegative() {
		return nil, domain.NewValidationError("total_amount", "must not be negative")
	}
	return s.settle(ctx, sessionID, settleReported, &reportedTotals{minutes: reportedMinutes, total: reportedTotal})
}

func (s *settlementService) BillInterim(ctx context.Context, sessionID string) (*domain.SettlementResult, error) {
	return s.settle(ctx, sessionID, settleInterim, nil)
}

// window decides the end of the billed span and whether this call completes
// the session. frozen means the session is already completed and its totals
// must not change.
func window(session *domain.Session, mode settleMode, now time.Time) (end time.Time, completing, frozen bool, err error) {
	switch session.Status {
	case domain.SessionStatusActive:
		return now, mode != settleInterim, false, nil
	case domain.SessionStatusCompleted:
		if mode == settleReported && session.EndTime != nil {
			return *session.EndTime, false, true, nil
		}
	}
	action := domain.ActionEnd
	if mode == settleInterim {
		action = domain.ActionBill
	}
	return time.Time{}, false, false, &domain.TransitionError{Action: action, Status: session.Status}
}

func (s *settlementService) settle(ctx context.Context, sessionID string, mode settleMode, reported *reportedTotals) (*domain.SettlementResult, error) {
	logger.EnterMethod("settlementService.settle", "sessionID", sessionID, "trigger", mode)
	log := logger.WithSession(sessionID)

	var (
		result *domain.SettlementResult
		notes  []domain.Notification
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		session, err := repos.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		end, completing, frozen, err := window(session, mode, now)
		if err != nil {
			return err
		}

		start := end
		if session.StartTime != nil {
			start = *session.StartTime
		}
		bill := utils.ComputeSessionBill(start, end, session.RatePerMinute)

		result = &domain.SettlementResult{
			Session:         session,
			DurationMinutes: bill.DurationMinutes,
			TotalAmount:     bill.TotalAmount,
		}
		if reported != nil && (reported.minutes != bill.DurationMinutes || !utils.AmountsMatch(reported.total, bill.TotalAmount)) {
			result.ReportedMismatch = true
			metrics.SettlementDiscrepanciesTotal.Inc()
			log.Warn("Reported session totals differ from server computation",
				"reportedMinutes", reported.minutes, "reportedTotal", reported.total.StringFixed(2),
				"computedMinutes", bill.DurationMinutes, "computedTotal", bill.TotalAmount.StringFixed(2))
		}

		delta := bill.TotalAmount.Sub(session.TotalAmount)
		if frozen || !delta.IsPositive() {
			if frozen && delta.IsPositive() {
				result.Shortfall = delta
			}
			result.CustomerBalance, err = repos.Wallets.GetBalance(ctx, session.CustomerID)
			if err != nil {
				return err
			}
			if !completing {
				// Nothing to persist: already settled or nothing accrued yet.
				return nil
			}
		} else {
			if err := s.moveMoney(ctx, repos, session, delta, result); err != nil {
				return err
			}
			session.TotalAmount = session.TotalAmount.Add(result.Debited)
			session.SettledAt = &now
		}

		session.DurationMinutes = bill.DurationMinutes
		if completing {
			session.Status = domain.SessionStatusCompleted
			session.EndTime = &end
			session.SettledAt = &now
		}
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return err
		}

		lowBalance := result.CustomerBalance.LessThan(s.policy.LowBalance)
		notes = settlementNotifications(session, result, lowBalance)
		return nil
	})
	metrics.ObserveSettlement(mode.String(), result != nil && result.Applied(), err)
	if err != nil {
		logger.ExitMethodWithError("settlementService.settle", err, "sessionID", sessionID)
		return nil, err
	}

	if result.Applied() {
		metrics.SettledAmountTotal.WithLabelValues("customer").Add(result.Debited.InexactFloat64())
		metrics.SettledAmountTotal.WithLabelValues("astrologer").Add(result.AstrologerShare.InexactFloat64())
		metrics.SettledAmountTotal.WithLabelValues("platform").Add(result.PlatformShare.InexactFloat64())
		log.Info("Settlement applied", "trigger", mode, "status", result.Session.Status,
			"durationMinutes", result.DurationMinutes, "totalAmount", result.TotalAmount.StringFixed(2),
			"delta", result.Delta.StringFixed(2), "debited", result.Debited.StringFixed(2),
			"astrologerShare", result.AstrologerShare.StringFixed(2), "platformShare", result.PlatformShare.StringFixed(2))
	} else {
		log.Info("Settlement without money movement", "trigger", mode, "status", result.Session.Status,
			"totalAmount", result.Session.TotalAmount.StringFixed(2))
	}

	dispatchAll(ctx, s.notifier, notes)
	logger.ExitMethod("settlementService.settle", "sessionID", sessionID, "applied", result.Applied())
	return result, nil
}

// moveMoney debits the customer, credits the astrologer and records the three
// journal entries for delta. It runs inside the settlement unit of work.
func (s *settlementService) moveMoney(ctx context.Context, repos repository.Repositories, session *domain.Session, delta decimal.Decimal, result *domain.SettlementResult) error {
	log := logger.WithSession(session.ID)

	balance, err := repos.Wallets.GetBalanceForUpdate(ctx, session.CustomerID)
	if err != nil {
		return err
	}

	debit := delta
	if balance.LessThan(delta) {
		result.InsufficientBalance = true
		metrics.InsufficientBalanceTotal.WithLabelValues(string(s.policy.Overdraft)).Inc()
		if s.policy.Overdraft == OverdraftFloor {
			available := balance.Sub(s.policy.BalanceFloor)
			if available.IsNegative() {
				available = decimal.Zero
			}
			if available.LessThan(debit) {
				debit = available
			}
		}
		log.Warn("Insufficient balance for settlement",
			"customerID", session.CustomerID, "balance", balance.StringFixed(2),
			"delta", delta.StringFixed(2), "debit", debit.StringFixed(2), "policy", s.policy.Overdraft)
	}

	result.Delta = delta
	result.Debited = debit
	result.Shortfall = delta.Sub(debit)
	result.CustomerBalance = balance
	if !debit.IsPositive() {
		return nil
	}

	ratio, err := s.astrologerRatio(ctx, repos, session)
	if err != nil {
		return err
	}
	split, err := utils.Split(debit, ratio)
	if err != nil {
		return err
	}
	result.AstrologerShare = split.AstrologerShare
	result.PlatformShare = split.PlatformShare

	if result.CustomerBalance, err = repos.Wallets.Debit(ctx, session.CustomerID, debit); err != nil {
		return err
	}
	if split.AstrologerShare.IsPositive() {
		if _, err := repos.Wallets.Credit(ctx, session.AstrologerID, split.AstrologerShare); err != nil {
			return err
		}
	}

	sessionID := session.ID
	service := string(session.ServiceType)
	entries := []*domain.Transaction{
		{
			UserID:      session.CustomerID,
			Type:        domain.TransactionTypeDebit,
			Amount:      debit,
			Description: fmt.Sprintf("%s consultation charge", session.ServiceType),
		},
		{
			UserID:      session.AstrologerID,
			Type:        domain.TransactionTypeCredit,
			Amount:      split.AstrologerShare,
			Description: fmt.Sprintf("%s consultation earnings", session.ServiceType),
		},
		{
			UserID:      s.policy.PlatformUserID,
			Type:        domain.TransactionTypeCommission,
			Amount:      split.PlatformShare,
			Description: fmt.Sprintf("%s consultation commission", session.ServiceType),
		},
	}
	for _, entry := range entries {
		if !entry.Amount.IsPositive() {
			continue
		}
		entry.SessionID = &sessionID
		entry.ServiceType = service
		entry.Status = domain.TransactionStatusCompleted
		if err := repos.Transactions.UpsertSessionEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// astrologerRatio prefers a stored per-astrologer override over the configured table.
func (s *settlementService) astrologerRatio(ctx context.Context, repos repository.Repositories, session *domain.Session) (decimal.Decimal, error) {
	ratio, ok, err := repos.Pricing.GetCommissionRatio(ctx, session.AstrologerID, session.ServiceType)
	if err != nil {
		return decimal.Zero, err
	}
	if ok {
		return ratio, nil
	}
	return s.policy.Splits.Ratio(string(session.ServiceType)), nil
}

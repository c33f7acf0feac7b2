package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
	"astroconsult-backend/internal/repository"
	"astroconsult-backend/internal/utils"
)

type rechargeService struct {
	store    repository.Store
	verifier PaymentVerifier
	notifier Notifier
}

func NewRechargeService(store repository.Store, verifier PaymentVerifier, notifier Notifier) RechargeService {
	return &rechargeService{
		store:    store,
		verifier: verifier,
		notifier: notifier,
	}
}

func validateRechargeAmount(amount decimal.Decimal) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}
	if !amount.Equal(utils.RoundMoney(amount)) {
		return domain.NewValidationError("amount", "at most two decimal places")
	}
	return nil
}

// InitiateRecharge records a pending recharge under a fresh order reference
// that the client hands to the payment gateway.
func (s *rechargeService) InitiateRecharge(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := validateRechargeAmount(amount); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	ref := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	tx := &domain.Transaction{
		UserID:           userID,
		Amount:           amount,
		Description:      "Wallet recharge",
		PaymentReference: &ref,
	}
	if err := repos.Transactions.CreatePendingRecharge(ctx, tx); err != nil {
		return nil, err
	}
	metrics.RechargesTotal.WithLabelValues("initiated").Inc()
	logger.Info("Recharge initiated", "userID", userID, "reference", ref, "amount", amount.StringFixed(2))
	return tx, nil
}

func (s *rechargeService) RechargeWallet(ctx context.Context, userID string, amount decimal.Decimal, paymentReference string) (*domain.RechargeResult, error) {
	logger.EnterMethod("rechargeService.RechargeWallet", "userID", userID, "reference", paymentReference, "amount", amount.StringFixed(2))

	result, err := s.recharge(ctx, userID, amount, paymentReference)
	if err != nil {
		metrics.RechargesTotal.WithLabelValues(rechargeOutcome(err)).Inc()
		logger.ExitMethodWithError("rechargeService.RechargeWallet", err, "reference", paymentReference)
		return nil, err
	}
	metrics.RechargesTotal.WithLabelValues("completed").Inc()

	dispatchAll(ctx, s.notifier, []domain.Notification{rechargeNotification(result.Transaction, result.NewBalance.StringFixed(2))})
	logger.Info("Wallet recharged", "userID", userID, "reference", paymentReference,
		"amount", result.Transaction.Amount.StringFixed(2), "balance", result.NewBalance.StringFixed(2))
	logger.ExitMethod("rechargeService.RechargeWallet", "transactionID", result.Transaction.ID)
	return result, nil
}

func (s *rechargeService) recharge(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*domain.RechargeResult, error) {
	if err := validateRechargeAmount(amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reference) == "" {
		return nil, domain.NewValidationError("payment_reference", "required")
	}

	existing, err := s.store.Repos().Transactions.FindRechargeByReference(ctx, reference)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, err
	case existing.Status == domain.TransactionStatusCompleted:
		return nil, fmt.Errorf("%w: reference %s", domain.ErrDuplicatePayment, reference)
	case existing.UserID != userID:
		return nil, fmt.Errorf("%w: reference %s belongs to another user", domain.ErrAccessDenied, reference)
	}

	verification, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verification.Verified {
		return nil, fmt.Errorf("%w: reference %s has status %s", domain.ErrPaymentVerificationFailed, reference, verification.Status)
	}
	if !utils.AmountsMatch(verification.Amount, amount) {
		return nil, fmt.Errorf("%w: claimed %s, verified %s", domain.ErrAmountMismatch, amount.StringFixed(2), verification.Amount.StringFixed(2))
	}

	credited := utils.RoundMoney(verification.Amount)
	method := verification.Method
	result := &domain.RechargeResult{PaymentMethod: method}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		tx := &domain.Transaction{
			UserID:           userID,
			Amount:           credited,
			Description:      fmt.Sprintf("Wallet recharge via %s", method),
			PaymentReference: &reference,
			PaymentMethod:    &method,
		}
		completed, err := repos.Transactions.CompleteRecharge(ctx, tx)
		if err != nil {
			return err
		}
		if !completed {
			return fmt.Errorf("%w: reference %s", domain.ErrDuplicatePayment, reference)
		}
		balance, err := repos.Wallets.Credit(ctx, userID, credited)
		if err != nil {
			return err
		}
		result.NewBalance = balance
		result.Transaction = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func rechargeOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicatePayment):
		return "duplicate"
	case errors.Is(err, domain.ErrPaymentVerificationFailed), errors.Is(err, domain.ErrAmountMismatch):
		return "rejected"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrAccessDenied):
		return "invalid"
	default:
		return "error"
	}
}

func (s *rechargeService) ExpirePendingRecharges(ctx context.Context, createdBefore time.Time) (int64, error) {
	n, err := s.store.Repos().Transactions.FailStalePendingRecharges(ctx, createdBefore)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("Expired pending recharges", "count", n, "createdBefore", createdBefore)
	}
	return n, nil
}

package service

import (
	"context"

	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/repository"
)

const maxPageSize = 100

type walletService struct {
	store repository.Store
}

func NewWalletService(store repository.Store) WalletService {
	return &walletService{store: store}
}

func positiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	return nil
}

func (s *walletService) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := positiveAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return s.store.Repos().Wallets.Credit(ctx, userID, amount)
}

// Debit may leave a negative balance; callers that need a floor enforce it themselves.
func (s *walletService) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := positiveAmount(amount); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.store.Repos().Wallets.Debit(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsNegative() {
		logger.Warn("Wallet debited below zero", "userID", userID, "amount", amount.StringFixed(2), "balance", balance.StringFixed(2))
	}
	return balance, nil
}

func (s *walletService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.store.Repos().Wallets.GetBalance(ctx, userID)
}

func (s *walletService) ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.Transaction, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	return s.store.Repos().Transactions.ListByUser(ctx, userID, page, pageSize)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
)

type walletRepository struct {
	q sqlx.ExtContext
}

func (r *walletRepository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &balance, `SELECT wallet_balance FROM users WHERE id = $1`, userID)
	return balance, mapError(err)
}

func (r *walletRepository) GetBalanceForUpdate(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &balance, `SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	return balance, mapError(err)
}

// Credit and Debit never read-modify-write: the increment happens in the
// UPDATE itself so concurrent writers cannot lose each other's changes.
func (r *walletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjust(ctx, "credit", `UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW() WHERE id = $2 RETURNING wallet_balance`, userID, amount)
}

func (r *walletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjust(ctx, "debit", `UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = NOW() WHERE id = $2 RETURNING wallet_balance`, userID, amount)
}

func (r *walletRepository) adjust(ctx context.Context, op, query, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.NewValidationError("amount", fmt.Sprintf("%s amount must not be negative", op))
	}
	logger.DatabaseCall("UPDATE", "users", "op", op, "userID", userID, "amount", amount.StringFixed(2))
	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &balance, query, amount, userID)
	logger.DatabaseResult("UPDATE", 1, err, "userID", userID)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return balance, nil
}

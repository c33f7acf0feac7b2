package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
)

const transactionColumns = `id, user_id, type, session_id, service_type, amount, description, status,
	payment_reference, payment_method, created_at, updated_at`

// transactionRepository is the financial journal.
type transactionRepository struct {
	q sqlx.ExtContext
}

func (r *transactionRepository) UpsertSessionEntry(ctx context.Context, tx *domain.Transaction) error {
	logger.EnterMethod("transactionRepository.UpsertSessionEntry", "userID", tx.UserID, "type", tx.Type, "amount", tx.Amount.StringFixed(2))

	if tx.SessionID == nil {
		err := domain.NewValidationError("session_id", "session entry requires a session id")
		logger.ExitMethodWithError("transactionRepository.UpsertSessionEntry", err)
		return err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = domain.TransactionStatusCompleted
	}
	now := time.Now().UTC()

	query := `INSERT INTO transactions (id, user_id, type, session_id, service_type, amount, description, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	          ON CONFLICT (user_id, type, session_id, service_type) WHERE session_id IS NOT NULL
	          DO UPDATE SET amount = transactions.amount + EXCLUDED.amount,
	                        description = EXCLUDED.description,
	                        status = EXCLUDED.status,
	                        updated_at = EXCLUDED.updated_at
	          RETURNING id, amount, created_at, updated_at`
	logger.DatabaseCall("UPSERT", "transactions", "sessionID", *tx.SessionID)
	err := r.q.QueryRowxContext(ctx, query, tx.ID, tx.UserID, string(tx.Type), *tx.SessionID, tx.ServiceType,
		tx.Amount, tx.Description, string(tx.Status), now).Scan(&tx.ID, &tx.Amount, &tx.CreatedAt, &tx.UpdatedAt)
	logger.DatabaseResult("UPSERT", 1, err, "transactionID", tx.ID)
	if err != nil {
		logger.ExitMethodWithError("transactionRepository.UpsertSessionEntry", err)
		return mapError(err)
	}
	logger.ExitMethod("transactionRepository.UpsertSessionEntry", "transactionID", tx.ID, "cumulative", tx.Amount.StringFixed(2))
	return nil
}

func (r *transactionRepository) GetByKey(ctx context.Context, key domain.IdempotencyKey) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
	          WHERE user_id = $1 AND type = $2 AND session_id = $3 AND service_type = $4`
	if err := sqlx.GetContext(ctx, r.q, tx, query, key.UserID, string(key.Type), key.SessionID, key.ServiceType); err != nil {
		return nil, mapError(err)
	}
	return tx, nil
}

func (r *transactionRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE session_id = $1 ORDER BY created_at, type`
	if err := sqlx.SelectContext(ctx, r.q, &txs, query, sessionID); err != nil {
		return nil, mapError(err)
	}
	return txs, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Transaction, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	if err := sqlx.GetContext(ctx, r.q, &count, `SELECT count(*) FROM transactions WHERE user_id = $1`, userID); err != nil {
		return nil, 0, mapError(err)
	}

	var txs []domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.q, &txs, query, userID, pageSize, offset); err != nil {
		return nil, 0, mapError(err)
	}
	return txs, count, nil
}

func (r *transactionRepository) CreatePendingRecharge(ctx context.Context, tx *domain.Transaction) error {
	if tx.PaymentReference == nil || *tx.PaymentReference == "" {
		return domain.NewValidationError("payment_reference", "required")
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Type = domain.TransactionTypeRecharge
	tx.Status = domain.TransactionStatusPending
	tx.ServiceType = domain.RechargeServiceType
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now

	query := `INSERT INTO transactions (id, user_id, type, service_type, amount, description, status, payment_reference, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.q.ExecContext(ctx, query, tx.ID, tx.UserID, string(tx.Type), tx.ServiceType, tx.Amount,
		tx.Description, string(tx.Status), *tx.PaymentReference, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: reference %s", domain.ErrDuplicatePayment, *tx.PaymentReference)
	}
	return mapError(err)
}

func (r *transactionRepository) FindRechargeByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE type = 'recharge' AND payment_reference = $1`
	if err := sqlx.GetContext(ctx, r.q, tx, query, reference); err != nil {
		return nil, mapError(err)
	}
	return tx, nil
}

func (r *transactionRepository) CompleteRecharge(ctx context.Context, tx *domain.Transaction) (bool, error) {
	logger.EnterMethod("transactionRepository.CompleteRecharge", "userID", tx.UserID, "amount", tx.Amount.StringFixed(2))

	if tx.PaymentReference == nil || *tx.PaymentReference == "" {
		return false, domain.NewValidationError("payment_reference", "required")
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Type = domain.TransactionTypeRecharge
	tx.Status = domain.TransactionStatusCompleted
	tx.ServiceType = domain.RechargeServiceType
	now := time.Now().UTC()

	// The conditional DO UPDATE returns no row when the reference is already completed.
	query := `INSERT INTO transactions (id, user_id, type, service_type, amount, description, status, payment_reference, payment_method, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	          ON CONFLICT (payment_reference) WHERE type = 'recharge'
	          DO UPDATE SET status = EXCLUDED.status,
	                        amount = EXCLUDED.amount,
	                        payment_method = EXCLUDED.payment_method,
	                        description = EXCLUDED.description,
	                        updated_at = EXCLUDED.updated_at
	          WHERE transactions.status <> 'completed'
	          RETURNING id, created_at, updated_at`
	logger.DatabaseCall("UPSERT", "transactions", "reference", *tx.PaymentReference)
	err := r.q.QueryRowxContext(ctx, query, tx.ID, tx.UserID, string(tx.Type), tx.ServiceType, tx.Amount, tx.Description,
		string(tx.Status), *tx.PaymentReference, tx.PaymentMethod, now).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("transactionRepository.CompleteRecharge", "completed", false, "reason", "already completed")
		return false, nil
	}
	if err != nil {
		logger.ExitMethodWithError("transactionRepository.CompleteRecharge", err)
		return false, mapError(err)
	}
	logger.ExitMethod("transactionRepository.CompleteRecharge", "transactionID", tx.ID, "completed", true)
	return true, nil
}

func (r *transactionRepository) FailStalePendingRecharges(ctx context.Context, createdBefore time.Time) (int64, error) {
	query := `UPDATE transactions SET status = 'failed', updated_at = NOW()
	          WHERE type = 'recharge' AND status = 'pending' AND created_at < $1`
	res, err := r.q.ExecContext(ctx, query, createdBefore)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "table", "transactions")
	return n, mapError(err)
}

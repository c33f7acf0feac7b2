package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/repository"
)

const testSessionID = "6f1f9a52-4a43-4d8f-9f64-0d0d7f1a2b3c"

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewStore(sqlx.NewDb(db, "sqlmock"))
	t.Cleanup(func() { store.Close() })
	return store, mock
}

func sessionRow(status string, version int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "customer_id", "astrologer_id", "service_type", "rate_per_minute", "status", "connection_id",
		"start_time", "end_time", "duration_minutes", "total_amount", "rating", "settled_at", "version", "created_at", "updated_at",
	}).AddRow(testSessionID, "cust-1", "astro-1", "call", "10.00", status, nil,
		now, nil, int64(0), "0.00", nil, nil, version, now, now)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET wallet_balance = wallet_balance + $1")).
		WithArgs(sqlmock.AnyArg(), "cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("150.00"))
	mock.ExpectCommit()

	var balance decimal.Decimal
	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		var err error
		balance, err = repos.Wallets.Credit(ctx, "cust-1", decimal.NewFromInt(50))
		return err
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("150").Equal(balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWallet_DebitRejectsNegativeAmount(t *testing.T) {
	store, mock := setupStore(t)

	_, err := store.Repos().Wallets.Debit(context.Background(), "cust-1", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWallet_GetBalanceUnknownUser(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Repos().Wallets.GetBalance(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_GetForUpdate(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs(testSessionID).
		WillReturnRows(sessionRow("active", 3))

	s, err := store.Repos().Sessions.GetForUpdate(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, s.Status)
	assert.Equal(t, int64(3), s.Version)
	assert.True(t, decimal.NewFromInt(10).Equal(s.RatePerMinute))
	assert.Nil(t, s.EndTime)
}

func TestSession_GetByIDRejectsMalformedID(t *testing.T) {
	store, mock := setupStore(t)

	_, err := store.Repos().Sessions.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_UpdateVersionCheck(t *testing.T) {
	t.Run("bumps version", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $10 AND version = $11")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s := &domain.Session{ID: testSessionID, Status: domain.SessionStatusRinging, Version: 1}
		require.NoError(t, store.Repos().Sessions.Update(context.Background(), s))
		assert.Equal(t, int64(2), s.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $10 AND version = $11")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		s := &domain.Session{ID: testSessionID, Status: domain.SessionStatusRinging, Version: 1}
		err := store.Repos().Sessions.Update(context.Background(), s)
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
		assert.Equal(t, int64(1), s.Version)
	})
}

func TestSession_ListByStatus(t *testing.T) {
	store, mock := setupStore(t)
	cutoff := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ANY($1) AND updated_at < $2")).
		WithArgs(pq.Array([]string{"pending", "ringing"}), cutoff).
		WillReturnRows(sessionRow("ringing", 2))

	sessions, err := store.Repos().Sessions.ListByStatus(context.Background(),
		[]domain.SessionStatus{domain.SessionStatusPending, domain.SessionStatusRinging}, cutoff)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.SessionStatusRinging, sessions[0].Status)
}

func TestTransactions_UpsertSessionEntryReturnsCumulativeAmount(t *testing.T) {
	store, mock := setupStore(t)
	sessionID := testSessionID
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, type, session_id, service_type) WHERE session_id IS NOT NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "created_at", "updated_at"}).
			AddRow("tx-existing", "50.00", now, now))

	tx := &domain.Transaction{
		UserID:      "cust-1",
		Type:        domain.TransactionTypeDebit,
		SessionID:   &sessionID,
		ServiceType: "call",
		Amount:      decimal.NewFromInt(20),
	}
	require.NoError(t, store.Repos().Transactions.UpsertSessionEntry(context.Background(), tx))
	assert.Equal(t, "tx-existing", tx.ID)
	assert.True(t, decimal.NewFromInt(50).Equal(tx.Amount))
	assert.Equal(t, domain.TransactionStatusCompleted, tx.Status)
}

func TestTransactions_UpsertSessionEntryRequiresSession(t *testing.T) {
	store, _ := setupStore(t)

	err := store.Repos().Transactions.UpsertSessionEntry(context.Background(), &domain.Transaction{UserID: "cust-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransactions_CompleteRecharge(t *testing.T) {
	ref := "pay_123"
	method := "upi"

	t.Run("completes", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (payment_reference) WHERE type = 'recharge'")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("tx-1", time.Now(), time.Now()))

		tx := &domain.Transaction{UserID: "cust-1", Amount: decimal.NewFromInt(100), PaymentReference: &ref, PaymentMethod: &method}
		ok, err := store.Repos().Transactions.CompleteRecharge(context.Background(), tx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.TransactionStatusCompleted, tx.Status)
		assert.Equal(t, domain.RechargeServiceType, tx.ServiceType)
	})

	t.Run("already completed", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (payment_reference) WHERE type = 'recharge'")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))

		tx := &domain.Transaction{UserID: "cust-1", Amount: decimal.NewFromInt(100), PaymentReference: &ref, PaymentMethod: &method}
		ok, err := store.Repos().Transactions.CompleteRecharge(context.Background(), tx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTransactions_CreatePendingRechargeDuplicate(t *testing.T) {
	store, mock := setupStore(t)
	ref := "pay_dup"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Repos().Transactions.CreatePendingRecharge(context.Background(),
		&domain.Transaction{UserID: "cust-1", Amount: decimal.NewFromInt(10), PaymentReference: &ref})
	assert.ErrorIs(t, err, domain.ErrDuplicatePayment)
}

func TestTransactions_FailStalePendingRecharges(t *testing.T) {
	store, mock := setupStore(t)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'failed'")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Repos().Transactions.FailStalePendingRecharges(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPricing_CommissionRatio(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM commission_splits")).
			WithArgs("astro-1", "chat").
			WillReturnRows(sqlmock.NewRows([]string{"astrologer_ratio"}).AddRow("0.7500"))

		ratio, ok, err := store.Repos().Pricing.GetCommissionRatio(context.Background(), "astro-1", domain.ServiceTypeChat)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, decimal.RequireFromString("0.75").Equal(ratio))
	})

	t.Run("none", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM commission_splits")).
			WillReturnError(sql.ErrNoRows)

		_, ok, err := store.Repos().Pricing.GetCommissionRatio(context.Background(), "astro-1", domain.ServiceTypeChat)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "40001"}), domain.ErrConcurrentUpdate)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "57P01"}), domain.ErrStorageUnavailable)
	assert.ErrorIs(t, mapError(sql.ErrConnDone), domain.ErrStorageUnavailable)
}

func userRow(id, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "wallet_balance", "device_token", "created_at", "updated_at"}).
		AddRow(id, "Platform", "", role, "0.00", nil, now, now)
}

func TestEnsurePlatformUser(t *testing.T) {
	t.Run("creates configured id", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, name, role) VALUES ($1, 'Platform', 'platform') ON CONFLICT (id) DO NOTHING")).
			WithArgs("house").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs("house").
			WillReturnRows(userRow("house", "platform"))

		require.NoError(t, store.EnsurePlatformUser(context.Background(), "house"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("id taken by another role", func(t *testing.T) {
		store, mock := setupStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("cust-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs("cust-1").
			WillReturnRows(userRow("cust-1", "customer"))

		err := store.EnsurePlatformUser(context.Background(), "cust-1")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

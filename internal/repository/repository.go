package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetForUpdate loads the session and holds it against concurrent writers
	// until the surrounding unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Session, error)
	// Update persists s only if its stored version still equals s.Version,
	// then bumps s.Version. A stale write returns domain.ErrConcurrentUpdate.
	Update(ctx context.Context, s *domain.Session) error
	ListByStatus(ctx context.Context, statuses []domain.SessionStatus, updatedBefore time.Time) ([]domain.Session, error)
}

// WalletRepository mutates balances with storage-level increments only.
type WalletRepository interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	// GetBalanceForUpdate locks the wallet row for the rest of the unit of work.
	GetBalanceForUpdate(ctx context.Context, userID string) (decimal.Decimal, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

type TransactionRepository interface {
	// UpsertSessionEntry creates the row for tx.Key() or adds tx.Amount to the existing one.
	UpsertSessionEntry(ctx context.Context, tx *domain.Transaction) error
	GetByKey(ctx context.Context, key domain.IdempotencyKey) (*domain.Transaction, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Transaction, int32, error)

	CreatePendingRecharge(ctx context.Context, tx *domain.Transaction) error
	FindRechargeByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// CompleteRecharge completes the pending row carrying tx.PaymentReference or
	// inserts a completed one. It returns false when the reference was already completed.
	CompleteRecharge(ctx context.Context, tx *domain.Transaction) (bool, error)
	FailStalePendingRecharges(ctx context.Context, createdBefore time.Time) (int64, error)
}

type PricingRepository interface {
	GetRate(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, error)
	// GetCommissionRatio returns the astrologer override, if any.
	GetCommissionRatio(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
}

// Repositories bundles the repositories bound to one connection or unit of work.
type Repositories struct {
	Users         UserRepository
	Sessions      SessionRepository
	Wallets       WalletRepository
	Transactions  TransactionRepository
	Pricing       PricingRepository
	Notifications NotificationRepository
}

// UnitOfWork runs fn atomically: either every write made through repos
// commits or none does.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the full storage surface handed to services.
type Store interface {
	UnitOfWork
	Repos() Repositories
	Ping(ctx context.Context) error
	Close() error
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/utils"
)

type SessionService interface {
	CreateSession(ctx context.Context, callerID string, role domain.Role, astrologerID string, service domain.ServiceType) (*domain.Session, error)
	GetSession(ctx context.Context, callerID string, role domain.Role, sessionID string) (*domain.Session, error)
	TransitionSession(ctx context.Context, sessionID string, action domain.SessionAction, callerID string, role domain.Role, payload domain.TransitionPayload) (*domain.Session, error)
	ListSessionsByStatus(ctx context.Context, statuses []domain.SessionStatus, updatedBefore time.Time) ([]domain.Session, error)
}

type SettlementService interface {
	// SettleOnEnd completes an active session and bills it.
	SettleOnEnd(ctx context.Context, sessionID string) (*domain.SettlementResult, error)
	// EndSession is the externally reported path. The reported figures are
	// only cross-checked against the server-side computation.
	EndSession(ctx context.Context, sessionID string, reportedMinutes int64, reportedTotal decimal.Decimal) (*domain.SettlementResult, error)
	// BillInterim charges what an active session has accrued so far.
	BillInterim(ctx context.Context, sessionID string) (*domain.SettlementResult, error)
}

type WalletService interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.Transaction, int32, error)
}

type RechargeService interface {
	InitiateRecharge(ctx context.Context, userID string, amount decimal.Decimal) (*domain.Transaction, error)
	RechargeWallet(ctx context.Context, userID string, amount decimal.Decimal, paymentReference string) (*domain.RechargeResult, error)
	ExpirePendingRecharges(ctx context.Context, createdBefore time.Time) (int64, error)
}

// PaymentVerifier asks the payment gateway about a payment reference.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error)
}

// Notifier hands a notification off for delivery without waiting for it.
type Notifier interface {
	Dispatch(ctx context.Context, n domain.Notification) error
}

type OverdraftPolicy string

const (
	// OverdraftAllow debits the full charge and lets the balance go negative.
	OverdraftAllow OverdraftPolicy = "allow"
	// OverdraftFloor never debits below BillingPolicy.BalanceFloor.
	OverdraftFloor OverdraftPolicy = "floor"
)

type BillingPolicy struct {
	Splits         *utils.SplitTable
	Overdraft      OverdraftPolicy
	BalanceFloor   decimal.Decimal
	LowBalance     decimal.Decimal
	PlatformUserID string
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		Splits:         &utils.SplitTable{Default: utils.DefaultAstrologerRatio},
		Overdraft:      OverdraftAllow,
		LowBalance:     decimal.NewFromInt(50),
		PlatformUserID: "platform",
	}
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

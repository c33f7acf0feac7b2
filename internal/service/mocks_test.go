package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/repository/memory"
)

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockPaymentVerifier
type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentVerification), args.Error(1)
}

var mockAnyCtx = mock.Anything

func notificationOfKind(kind domain.NotificationKind, userID string) any {
	return mock.MatchedBy(func(n domain.Notification) bool {
		return n.Kind == kind && n.UserID == userID
	})
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const (
	customerID   = "cust-1"
	astrologerID = "astro-1"
	platformID   = "platform"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store      *memory.Store
	clock      *fakeClock
	notifier   *MockNotifier
	settlement SettlementService
	sessions   SessionService
}

func newFixture(t *testing.T, policy BillingPolicy) *fixture {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	store.AddUser(domain.User{ID: customerID, Name: "Asha", Role: domain.RoleCustomer, WalletBalance: money("100")})
	store.AddUser(domain.User{ID: astrologerID, Name: "Ravi", Role: domain.RoleAstrologer})
	store.AddUser(domain.User{ID: platformID, Name: "Platform", Role: domain.RolePlatform})
	store.SetRate(astrologerID, domain.ServiceTypeCall, money("10"))
	store.SetRate(astrologerID, domain.ServiceTypeChat, money("7.50"))

	notifier := new(MockNotifier)
	notifier.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Maybe()

	settlement := NewSettlementService(store, notifier, policy, WithClock(clock.Now))
	return &fixture{
		store:      store,
		clock:      clock,
		notifier:   notifier,
		settlement: settlement,
		sessions:   NewSessionService(store, settlement, notifier, WithClock(clock.Now)),
	}
}

// activeSession creates a call session and answers it at the current clock time.
func (f *fixture) activeSession(t *testing.T, service domain.ServiceType) *domain.Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, service)
	require.NoError(t, err)
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionRing, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	require.NoError(t, err)
	s, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionAnswer, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{ConnectionID: "conn-1"})
	require.NoError(t, err)
	return s
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	b, err := f.store.Repos().Wallets.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) journal(t *testing.T, sessionID string) map[domain.TransactionType]domain.Transaction {
	t.Helper()
	txs, err := f.store.Repos().Transactions.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	out := make(map[domain.TransactionType]domain.Transaction, len(txs))
	for _, tx := range txs {
		_, dup := out[tx.Type]
		require.False(t, dup, "duplicate %s journal entry", tx.Type)
		out[tx.Type] = tx
	}
	return out
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, money(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}

// Package memory is an in-process Store used by tests and local runs without
// a database. Units of work are serialized by a single mutex and applied to a
// copy of the state that replaces the live state only on success.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/repository"
)

type rateKey struct {
	astrologerID string
	service      domain.ServiceType
}

type state struct {
	users         map[string]domain.User
	rates         map[rateKey]decimal.Decimal
	splits        map[rateKey]decimal.Decimal // service "" is the astrologer-wide override
	sessions      map[string]domain.Session
	transactions  []domain.Transaction
	notifications []domain.Notification
}

func newState() *state {
	return &state{
		users:    make(map[string]domain.User),
		rates:    make(map[rateKey]decimal.Decimal),
		splits:   make(map[rateKey]decimal.Decimal),
		sessions: make(map[string]domain.Session),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.splits {
		c.splits[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.transactions = append([]domain.Transaction(nil), s.transactions...)
	c.notifications = append([]domain.Notification(nil), s.notifications...)
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// binding routes repository calls either to the live state (taking the lock
// per call) or to the private copy of an open unit of work.
type binding struct {
	store *Store
	tx    *state
}

func (b *binding) read(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.st)
}

func (s *Store) repos(b *binding) repository.Repositories {
	return repository.Repositories{
		Users:         &userRepository{b},
		Sessions:      &sessionRepository{b},
		Wallets:       &walletRepository{b},
		Transactions:  &transactionRepository{b},
		Pricing:       &pricingRepository{b},
		Notifications: &notificationRepository{b},
	}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(&binding{store: s})
}

// WithinTx must not be nested, and fn must only use the repositories it is given.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, s.repos(&binding{store: s, tx: work})); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// AddUser seeds a user with the given balance.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
		u.UpdatedAt = u.CreatedAt
	}
	s.st.users[u.ID] = u
}

func (s *Store) SetRate(astrologerID string, service domain.ServiceType, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rates[rateKey{astrologerID, service}] = rate
}

// SetCommissionRatio stores an override; an empty service applies to every service.
func (s *Store) SetCommissionRatio(astrologerID string, service domain.ServiceType, ratio decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.splits[rateKey{astrologerID, service}] = ratio
}

// Notifications returns the in-app notifications recorded for userID.
func (s *Store) Notifications(userID string) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type userRepository struct{ b *binding }

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.b.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		out = &u
		return nil
	})
	return out, err
}

type sessionRepository struct{ b *binding }

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	return r.b.read(func(st *state) error {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, exists := st.sessions[s.ID]; exists {
			return fmt.Errorf("session %s already exists", s.ID)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = r.b.store.now()
		}
		s.UpdatedAt = s.CreatedAt
		s.Version = 1
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var out *domain.Session
	err := r.b.read(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
		}
		out = &s
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: a unit of work already holds the store mutex.
func (r *sessionRepository) GetForUpdate(ctx context.Context, id string) (*domain.Session, error) {
	return r.GetByID(ctx, id)
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.Session) error {
	return r.b.read(func(st *state) error {
		cur, ok := st.sessions[s.ID]
		if !ok {
			return fmt.Errorf("%w: session %s", domain.ErrNotFound, s.ID)
		}
		if cur.Version != s.Version {
			return fmt.Errorf("%w: session %s at version %d", domain.ErrConcurrentUpdate, s.ID, s.Version)
		}
		s.Version++
		s.UpdatedAt = r.b.store.now()
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessionRepository) ListByStatus(ctx context.Context, statuses []domain.SessionStatus, updatedBefore time.Time) ([]domain.Session, error) {
	var out []domain.Session
	err := r.b.read(func(st *state) error {
		for _, s := range st.sessions {
			if !s.UpdatedAt.Before(updatedBefore) {
				continue
			}
			for _, want := range statuses {
				if s.Status == want {
					out = append(out, s)
					break
				}
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, err
}

type walletRepository struct{ b *binding }

func (r *walletRepository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.b.read(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

func (r *walletRepository) GetBalanceForUpdate(ctx context.Context, userID string) (decimal.Decimal, error) {
	return r.GetBalance(ctx, userID)
}

func (r *walletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjust(userID, amount, "credit")
}

func (r *walletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjust(userID, amount.Neg(), "debit")
}

func (r *walletRepository) adjust(userID string, delta decimal.Decimal, op string) (decimal.Decimal, error) {
	if (op == "credit" && delta.IsNegative()) || (op == "debit" && delta.IsPositive()) {
		return decimal.Zero, domain.NewValidationError("amount", op+" amount must not be negative")
	}
	var balance decimal.Decimal
	err := r.b.read(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		u.WalletBalance = u.WalletBalance.Add(delta)
		u.UpdatedAt = r.b.store.now()
		st.users[userID] = u
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

type transactionRepository struct{ b *binding }

func sessionKeyOf(t *domain.Transaction) (domain.IdempotencyKey, bool) {
	if t.SessionID == nil {
		return domain.IdempotencyKey{}, false
	}
	return t.Key(), true
}

func (r *transactionRepository) UpsertSessionEntry(ctx context.Context, tx *domain.Transaction) error {
	if tx.SessionID == nil {
		return domain.NewValidationError("session_id", "session entry requires a session id")
	}
	return r.b.read(func(st *state) error {
		now := r.b.store.now()
		if tx.Status == "" {
			tx.Status = domain.TransactionStatusCompleted
		}
		key := tx.Key()
		for i := range st.transactions {
			if k, ok := sessionKeyOf(&st.transactions[i]); ok && k == key {
				existing := &st.transactions[i]
				existing.Amount = existing.Amount.Add(tx.Amount)
				existing.Description = tx.Description
				existing.Status = tx.Status
				existing.UpdatedAt = now
				*tx = *existing
				return nil
			}
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.CreatedAt, tx.UpdatedAt = now, now
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *transactionRepository) GetByKey(ctx context.Context, key domain.IdempotencyKey) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.b.read(func(st *state) error {
		for _, t := range st.transactions {
			if k, ok := sessionKeyOf(&t); ok && k == key {
				out = &t
				return nil
			}
		}
		return fmt.Errorf("%w: transaction %+v", domain.ErrNotFound, key)
	})
	return out, err
}

func (r *transactionRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.b.read(func(st *state) error {
		for _, t := range st.transactions {
			if t.SessionID != nil && *t.SessionID == sessionID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int32) ([]domain.Transaction, int32, error) {
	var all []domain.Transaction
	err := r.b.read(func(st *state) error {
		for _, t := range st.transactions {
			if t.UserID == userID {
				all = append(all, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	count := int32(len(all))
	start := (page - 1) * pageSize
	if start >= count {
		return nil, count, nil
	}
	end := start + pageSize
	if end > count {
		end = count
	}
	return all[start:end], count, nil
}

func (r *transactionRepository) findRecharge(st *state, reference string) int {
	for i, t := range st.transactions {
		if t.Type == domain.TransactionTypeRecharge && t.PaymentReference != nil && *t.PaymentReference == reference {
			return i
		}
	}
	return -1
}

func (r *transactionRepository) CreatePendingRecharge(ctx context.Context, tx *domain.Transaction) error {
	if tx.PaymentReference == nil || *tx.PaymentReference == "" {
		return domain.NewValidationError("payment_reference", "required")
	}
	return r.b.read(func(st *state) error {
		if r.findRecharge(st, *tx.PaymentReference) >= 0 {
			return fmt.Errorf("%w: reference %s", domain.ErrDuplicatePayment, *tx.PaymentReference)
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.Type = domain.TransactionTypeRecharge
		tx.Status = domain.TransactionStatusPending
		tx.ServiceType = domain.RechargeServiceType
		tx.CreatedAt = r.b.store.now()
		tx.UpdatedAt = tx.CreatedAt
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *transactionRepository) FindRechargeByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.b.read(func(st *state) error {
		i := r.findRecharge(st, reference)
		if i < 0 {
			return fmt.Errorf("%w: recharge %s", domain.ErrNotFound, reference)
		}
		t := st.transactions[i]
		out = &t
		return nil
	})
	return out, err
}

func (r *transactionRepository) CompleteRecharge(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if tx.PaymentReference == nil || *tx.PaymentReference == "" {
		return false, domain.NewValidationError("payment_reference", "required")
	}
	completed := false
	err := r.b.read(func(st *state) error {
		now := r.b.store.now()
		tx.Type = domain.TransactionTypeRecharge
		tx.Status = domain.TransactionStatusCompleted
		tx.ServiceType = domain.RechargeServiceType
		tx.UpdatedAt = now

		if i := r.findRecharge(st, *tx.PaymentReference); i >= 0 {
			existing := &st.transactions[i]
			if existing.Status == domain.TransactionStatusCompleted {
				return nil
			}
			existing.Status = tx.Status
			existing.Amount = tx.Amount
			existing.PaymentMethod = tx.PaymentMethod
			existing.Description = tx.Description
			existing.UpdatedAt = now
			tx.ID = existing.ID
			tx.CreatedAt = existing.CreatedAt
			completed = true
			return nil
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.CreatedAt = now
		st.transactions = append(st.transactions, *tx)
		completed = true
		return nil
	})
	return completed, err
}

func (r *transactionRepository) FailStalePendingRecharges(ctx context.Context, createdBefore time.Time) (int64, error) {
	var n int64
	err := r.b.read(func(st *state) error {
		for i := range st.transactions {
			t := &st.transactions[i]
			if t.Type == domain.TransactionTypeRecharge && t.Status == domain.TransactionStatusPending && t.CreatedAt.Before(createdBefore) {
				t.Status = domain.TransactionStatusFailed
				t.UpdatedAt = r.b.store.now()
				n++
			}
		}
		return nil
	})
	return n, err
}

type pricingRepository struct{ b *binding }

func (r *pricingRepository) GetRate(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.b.read(func(st *state) error {
		v, ok := st.rates[rateKey{astrologerID, service}]
		if !ok {
			return fmt.Errorf("%w: no %s rate for astrologer %s", domain.ErrNotFound, service, astrologerID)
		}
		rate = v
		return nil
	})
	return rate, err
}

func (r *pricingRepository) GetCommissionRatio(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, bool, error) {
	var (
		ratio decimal.Decimal
		found bool
	)
	err := r.b.read(func(st *state) error {
		if v, ok := st.splits[rateKey{astrologerID, service}]; ok {
			ratio, found = v, true
			return nil
		}
		ratio, found = st.splits[rateKey{astrologerID, ""}]
		return nil
	})
	return ratio, found, err
}

type notificationRepository struct{ b *binding }

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.b.read(func(st *state) error {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.b.store.now()
		}
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
)

func TestSessionService_CreateSession(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()

	t.Run("Success fixes rate", func(t *testing.T) {
		s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeChat)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusPending, s.Status)
		assertMoney(t, "7.50", s.RatePerMinute)
		assert.Equal(t, int64(1), s.Version)

		// A later rate change does not touch the existing session.
		f.store.SetRate(astrologerID, domain.ServiceTypeChat, money("12"))
		got, err := f.sessions.GetSession(ctx, customerID, domain.RoleCustomer, s.ID)
		require.NoError(t, err)
		assertMoney(t, "7.50", got.RatePerMinute)
	})

	t.Run("Rejects", func(t *testing.T) {
		_, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, customerID, domain.ServiceTypeCall)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, "tarot")
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.sessions.CreateSession(ctx, astrologerID, domain.RoleAstrologer, astrologerID, domain.ServiceTypeCall)
		assert.ErrorIs(t, err, domain.ErrAccessDenied)

		_, err = f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeVideo)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, platformID, domain.ServiceTypeCall)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestSessionService_GetSessionParticipantsOnly(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeCall)
	require.NoError(t, err)

	_, err = f.sessions.GetSession(ctx, astrologerID, domain.RoleAstrologer, s.ID)
	assert.NoError(t, err)
	_, err = f.sessions.GetSession(ctx, "someone-else", domain.RoleCustomer, s.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	_, err = f.sessions.GetSession(ctx, customerID, domain.RoleCustomer, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionService_FullLifecycle(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()

	s := f.activeSession(t, domain.ServiceTypeCall)
	assert.Equal(t, domain.SessionStatusActive, s.Status)
	require.NotNil(t, s.StartTime)
	require.NotNil(t, s.ConnectionID)
	assert.Equal(t, "conn-1", *s.ConnectionID)

	f.clock.Advance(5 * time.Minute)
	ended, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStatusCompleted, ended.Status)
	assert.Equal(t, int64(5), ended.DurationMinutes)
	assertMoney(t, "50.00", ended.TotalAmount)
	require.NotNil(t, ended.EndTime)
	require.NotNil(t, ended.SettledAt)

	assertMoney(t, "50", f.balance(t, customerID))
	assertMoney(t, "40", f.balance(t, astrologerID))

	journal := f.journal(t, s.ID)
	require.Len(t, journal, 3)
	assertMoney(t, "50", journal[domain.TransactionTypeDebit].Amount)
	assertMoney(t, "40", journal[domain.TransactionTypeCredit].Amount)
	assertMoney(t, "10", journal[domain.TransactionTypeCommission].Amount)
	assert.Equal(t, platformID, journal[domain.TransactionTypeCommission].UserID)

	rating := int32(5)
	rated, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionRate, customerID, domain.RoleCustomer, domain.TransitionPayload{Rating: &rating})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, int32(5), *rated.Rating)
	assert.Equal(t, domain.SessionStatusCompleted, rated.Status)

	f.notifier.AssertCalled(t, "Dispatch", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Kind == domain.NotificationSessionCharged && n.UserID == customerID && n.Amount == "50.00"
	}))
	f.notifier.AssertCalled(t, "Dispatch", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Kind == domain.NotificationSessionEarned && n.UserID == astrologerID && n.Amount == "40.00"
	}))
}

func TestSessionService_EndTwiceIsRejected(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s := f.activeSession(t, domain.ServiceTypeCall)
	f.clock.Advance(3 * time.Minute)

	_, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	require.NoError(t, err)

	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{})
	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.ActionEnd, terr.Action)
	assert.Equal(t, domain.SessionStatusCompleted, terr.Status)

	assertMoney(t, "70", f.balance(t, customerID))
	assertMoney(t, "30", f.journal(t, s.ID)[domain.TransactionTypeDebit].Amount)
}

func TestSessionService_RejectAfterCompleted(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s := f.activeSession(t, domain.ServiceTypeCall)
	f.clock.Advance(time.Minute)
	_, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	require.NoError(t, err)

	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionReject, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSessionService_InvalidTransitions(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeCall)
	require.NoError(t, err)

	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	rating := int32(4)
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionRate, customerID, domain.RoleCustomer, domain.TransitionPayload{Rating: &rating})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionReject, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{})
	require.NoError(t, err)
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionRing, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.sessions.TransitionSession(ctx, s.ID, "teleport", customerID, domain.RoleCustomer, domain.TransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionService_RatingValidation(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s := f.activeSession(t, domain.ServiceTypeCall)
	f.clock.Advance(time.Minute)
	_, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionEnd, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	require.NoError(t, err)

	for _, r := range []int32{0, 6, -1} {
		rating := r
		_, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionRate, customerID, domain.RoleCustomer, domain.TransitionPayload{Rating: &rating})
		assert.ErrorIs(t, err, domain.ErrValidation, "rating %d", r)
	}
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionRate, customerID, domain.RoleCustomer, domain.TransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	rating := int32(3)
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionRate, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{Rating: &rating})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err := f.sessions.GetSession(ctx, customerID, domain.RoleCustomer, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
}

func TestSessionService_Authorization(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeCall)
	require.NoError(t, err)

	tests := []struct {
		name     string
		action   domain.SessionAction
		callerID string
		role     domain.Role
	}{
		{"stranger", domain.ActionRing, "intruder", domain.RoleCustomer},
		{"astrologer claiming customer role", domain.ActionRing, astrologerID, domain.RoleCustomer},
		{"customer claiming astrologer role", domain.ActionAnswer, customerID, domain.RoleAstrologer},
		{"platform role", domain.ActionReject, platformID, domain.RolePlatform},
		{"system cannot answer", domain.ActionAnswer, "", domain.RoleSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.TransitionSession(ctx, s.ID, tt.action, tt.callerID, tt.role, domain.TransitionPayload{})
			assert.ErrorIs(t, err, domain.ErrAccessDenied)
		})
	}

	got, err := f.sessions.GetSession(ctx, customerID, domain.RoleCustomer, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestSessionService_MissedNotifiesBothParticipants(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	ctx := context.Background()
	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeCall)
	require.NoError(t, err)

	missed, err := f.sessions.TransitionSession(ctx, s.ID, domain.ActionMissed, "", domain.RoleSystem, domain.TransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusMissed, missed.Status)

	for _, user := range []string{customerID, astrologerID} {
		f.notifier.AssertCalled(t, "Dispatch", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.NotificationSessionMissed && n.UserID == user
		}))
	}
	assertMoney(t, "100", f.balance(t, customerID))
}

func TestSessionService_NotifierFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t, DefaultBillingPolicy())
	failing := new(MockNotifier)
	failing.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("queue full"))
	f.sessions = NewSessionService(f.store, f.settlement, failing, WithClock(f.clock.Now))
	ctx := context.Background()

	s, err := f.sessions.CreateSession(ctx, customerID, domain.RoleCustomer, astrologerID, domain.ServiceTypeCall)
	require.NoError(t, err)
	_, err = f.sessions.TransitionSession(ctx, s.ID, domain.ActionMissed, astrologerID, domain.RoleAstrologer, domain.TransitionPayload{})
	assert.NoError(t, err)
	failing.AssertNumberOfCalls(t, "Dispatch", 2)
}

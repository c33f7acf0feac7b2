package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanApply(t *testing.T) {
	tests := []struct {
		action SessionAction
		from   SessionStatus
		ok     bool
	}{
		{ActionRing, SessionStatusPending, true},
		{ActionRing, SessionStatusRinging, false},
		{ActionAnswer, SessionStatusPending, true},
		{ActionAnswer, SessionStatusRinging, true},
		{ActionAnswer, SessionStatusActive, false},
		{ActionReject, SessionStatusRinging, true},
		{ActionReject, SessionStatusCompleted, false},
		{ActionMissed, SessionStatusPending, true},
		{ActionMissed, SessionStatusActive, false},
		{ActionEnd, SessionStatusActive, true},
		{ActionEnd, SessionStatusCompleted, false},
		{ActionRate, SessionStatusCompleted, true},
		{ActionRate, SessionStatusActive, false},
		{SessionAction("pause"), SessionStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s from %s", tt.action, tt.from), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanApply(tt.action, tt.from))
		})
	}
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.True(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusRejected.Terminal())
	assert.True(t, SessionStatusMissed.Terminal())
	assert.False(t, SessionStatusActive.Terminal())
	assert.False(t, SessionStatusPending.Terminal())
}

func TestSession_IsParticipant(t *testing.T) {
	s := &Session{CustomerID: "cust-1", AstrologerID: "astro-1"}

	assert.True(t, s.IsParticipant("cust-1", RoleCustomer))
	assert.True(t, s.IsParticipant("astro-1", RoleAstrologer))
	assert.False(t, s.IsParticipant("cust-1", RoleAstrologer), "right id, wrong role")
	assert.False(t, s.IsParticipant("someone", RoleCustomer))
	assert.False(t, s.IsParticipant("cust-1", RoleSystem))
	assert.False(t, (&Session{}).IsParticipant("", RoleCustomer))
}

func TestErrors(t *testing.T) {
	t.Run("TransitionError unwraps", func(t *testing.T) {
		err := fmt.Errorf("transition: %w", &TransitionError{Action: ActionReject, Status: SessionStatusCompleted})
		assert.True(t, errors.Is(err, ErrInvalidTransition))

		var te *TransitionError
		assert.True(t, errors.As(err, &te))
		assert.Equal(t, ActionReject, te.Action)
		assert.Equal(t, SessionStatusCompleted, te.Status)
		assert.Contains(t, err.Error(), "cannot reject a session in status completed")
	})

	t.Run("ValidationError unwraps", func(t *testing.T) {
		err := NewValidationError("rating", "must be between 1 and 5")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("Retryable classification", func(t *testing.T) {
		assert.True(t, IsRetryable(fmt.Errorf("x: %w", ErrConcurrentUpdate)))
		assert.True(t, IsRetryable(ErrVerificationUnavailable))
		assert.False(t, IsRetryable(ErrDuplicatePayment))
		assert.False(t, IsRetryable(&TransitionError{}))
	})
}

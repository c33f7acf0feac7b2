package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateAccessToken("cust-1", domain.RoleCustomer)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.UserID)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute).(*tokenManager)
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateAccessToken("cust-1", domain.RoleCustomer)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
	foreign, err := other.GenerateAccessToken("cust-1", domain.RoleCustomer)
	require.NoError(t, err)

	systemClaims := UserClaims{
		UserID: "svc",
		Role:   domain.RoleSystem,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	system, err := jwt.NewWithClaims(jwt.SigningMethodHS256, systemClaims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"system role":  system,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tm.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestServiceKeyVerifier(t *testing.T) {
	hash, err := HashServiceKey("s3cret-key")
	require.NoError(t, err)
	v := NewServiceKeyVerifier(hash)

	assert.NoError(t, v.Verify("s3cret-key"))
	assert.ErrorIs(t, v.Verify("wrong"), ErrInvalidServiceKey)
	assert.ErrorIs(t, v.Verify(""), ErrInvalidServiceKey)
	assert.ErrorIs(t, NewServiceKeyVerifier("").Verify("s3cret-key"), ErrInvalidServiceKey)
}

package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/service"
)

func TestNew_MemoryDriver(t *testing.T) {
	cfg, err := config.Parse([]byte(`
server:
  port: 50051
database:
  driver: memory
jwt:
  secret: "0123456789abcdef0123456789abcdef"
billing:
  overdraft_policy: floor
  balance_floor: "-10"
  service_ratios:
    chat: "0.7"
`))
	require.NoError(t, err)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	platform, err := a.Store.Repos().Users.GetByID(context.Background(), cfg.Billing.PlatformUserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePlatform, platform.Role)

	policy, err := BillingPolicy(cfg)
	require.NoError(t, err)
	assert.Equal(t, service.OverdraftFloor, policy.Overdraft)
	assert.Equal(t, "-10", policy.BalanceFloor.String())
	assert.Equal(t, "0.7", policy.Splits.Ratio("chat").String())
	assert.Equal(t, "0.8", policy.Splits.Ratio("call").String())

	// no gateway configured
	_, err = a.Recharge.RechargeWallet(context.Background(), cfg.Billing.PlatformUserID, decimal.NewFromInt(100), "pay_1")
	assert.ErrorIs(t, err, domain.ErrVerificationUnavailable)

	assert.NoError(t, a.Close())
}

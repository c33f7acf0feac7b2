package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
)

type pricingRepository struct {
	q sqlx.ExtContext
}

func (r *pricingRepository) GetRate(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, error) {
	var rate decimal.Decimal
	query := `SELECT rate_per_minute FROM astrologer_rates WHERE astrologer_id = $1 AND service_type = $2`
	if err := sqlx.GetContext(ctx, r.q, &rate, query, astrologerID, string(service)); err != nil {
		return decimal.Zero, mapError(err)
	}
	return rate, nil
}

// GetCommissionRatio prefers a service-specific row over the astrologer-wide one.
func (r *pricingRepository) GetCommissionRatio(ctx context.Context, astrologerID string, service domain.ServiceType) (decimal.Decimal, bool, error) {
	var ratio decimal.Decimal
	query := `SELECT astrologer_ratio FROM commission_splits
	          WHERE astrologer_id = $1 AND (service_type = $2 OR service_type IS NULL)
	          ORDER BY service_type NULLS LAST LIMIT 1`
	err := sqlx.GetContext(ctx, r.q, &ratio, query, astrologerID, string(service))
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, mapError(err)
	}
	return ratio, true, nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Email         string          `db:"email" json:"email"`
	Role          Role            `db:"role" json:"role"`
	WalletBalance decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	DeviceToken   *string         `db:"device_token" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CommissionSplit overrides the platform default ratio for an astrologer.
// ServiceType nil applies to every service.
type CommissionSplit struct {
	AstrologerID    string          `db:"astrologer_id"`
	ServiceType     *ServiceType    `db:"service_type"`
	AstrologerRatio decimal.Decimal `db:"astrologer_ratio"`
}

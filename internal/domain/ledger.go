package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDebit      TransactionType = "debit"
	TransactionTypeCredit     TransactionType = "credit"
	TransactionTypeCommission TransactionType = "commission"
	TransactionTypeRecharge   TransactionType = "recharge"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one journal row. For session-linked rows Amount is the
// cumulative amount moved for the row's idempotency key.
type Transaction struct {
	ID               string            `db:"id" json:"id"`
	UserID           string            `db:"user_id" json:"user_id"`
	Type             TransactionType   `db:"type" json:"type"`
	SessionID        *string           `db:"session_id" json:"session_id,omitempty"`
	ServiceType      string            `db:"service_type" json:"service_type"`
	Amount           decimal.Decimal   `db:"amount" json:"amount"`
	Description      string            `db:"description" json:"description"`
	Status           TransactionStatus `db:"status" json:"status"`
	PaymentReference *string           `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentMethod    *string           `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// IdempotencyKey identifies a unique session-linked financial event.
type IdempotencyKey struct {
	UserID      string
	Type        TransactionType
	SessionID   string
	ServiceType string
}

func (t *Transaction) Key() IdempotencyKey {
	k := IdempotencyKey{UserID: t.UserID, Type: t.Type, ServiceType: t.ServiceType}
	if t.SessionID != nil {
		k.SessionID = *t.SessionID
	}
	return k
}

// RechargeServiceType is the service_type recorded on wallet recharges.
const RechargeServiceType = "wallet"

package domain

import "github.com/shopspring/decimal"

// PaymentVerification is what the external gateway reports for a payment reference.
type PaymentVerification struct {
	Verified bool
	Method   string
	Amount   decimal.Decimal
	Status   string
}

type RechargeResult struct {
	NewBalance    decimal.Decimal `json:"new_balance"`
	PaymentMethod string          `json:"payment_method"`
	Transaction   *Transaction    `json:"transaction"`
}

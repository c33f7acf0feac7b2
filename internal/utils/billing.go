package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept on every amount.
const MoneyPlaces = 2

// AmountEpsilon is the tolerance used when comparing externally reported amounts.
var AmountEpsilon = decimal.RequireFromString("0.01")

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// BilledMinutes returns the number of started minutes between start and end.
// A partially used minute is billed as a full one; a non-positive span bills nothing.
func BilledMinutes(start, end time.Time) int64 {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	minutes := int64(elapsed / time.Minute)
	if elapsed%time.Minute > 0 {
		minutes++
	}
	return minutes
}

// SessionAmount is minutes × rate rounded to money precision.
func SessionAmount(minutes int64, ratePerMinute decimal.Decimal) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return RoundMoney(decimal.NewFromInt(minutes).Mul(ratePerMinute))
}

// SessionBill computes the billed duration and total for a session running from start to end.
type SessionBill struct {
	DurationMinutes int64
	TotalAmount     decimal.Decimal
}

func ComputeSessionBill(start, end time.Time, ratePerMinute decimal.Decimal) SessionBill {
	minutes := BilledMinutes(start, end)
	return SessionBill{
		DurationMinutes: minutes,
		TotalAmount:     SessionAmount(minutes, ratePerMinute),
	}
}

// AmountsMatch compares two amounts within AmountEpsilon.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountEpsilon)
}

// ParseAmount parses a positive money amount with at most MoneyPlaces decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	if d.Exponent() < -MoneyPlaces && !d.Equal(RoundMoney(d)) {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d decimal places", s, MoneyPlaces)
	}
	return d, nil
}

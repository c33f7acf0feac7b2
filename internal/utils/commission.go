package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultAstrologerRatio is the astrologer's share when nothing else is configured.
var DefaultAstrologerRatio = decimal.RequireFromString("0.80")

// CommissionSplit is the division of one gross amount.
type CommissionSplit struct {
	AstrologerShare decimal.Decimal
	PlatformShare   decimal.Decimal
}

// ValidateRatio checks that ratio lies in [0, 1].
func ValidateRatio(ratio decimal.Decimal) error {
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("astrologer ratio %s must be between 0 and 1", ratio)
	}
	return nil
}

// Split divides gross between astrologer and platform. The astrologer share is
// rounded to money precision and the platform receives the exact remainder, so
// the two shares always sum to gross.
func Split(gross, astrologerRatio decimal.Decimal) (CommissionSplit, error) {
	if err := ValidateRatio(astrologerRatio); err != nil {
		return CommissionSplit{}, err
	}
	if gross.IsNegative() {
		return CommissionSplit{}, fmt.Errorf("gross amount %s must not be negative", gross)
	}
	astrologer := RoundMoney(gross.Mul(astrologerRatio))
	return CommissionSplit{
		AstrologerShare: astrologer,
		PlatformShare:   gross.Sub(astrologer),
	}, nil
}

// SplitTable holds per-service astrologer ratios with a fallback.
type SplitTable struct {
	Default   decimal.Decimal
	ByService map[string]decimal.Decimal
}

func NewSplitTable(def decimal.Decimal, byService map[string]decimal.Decimal) (*SplitTable, error) {
	if err := ValidateRatio(def); err != nil {
		return nil, err
	}
	for service, ratio := range byService {
		if err := ValidateRatio(ratio); err != nil {
			return nil, fmt.Errorf("service %s: %w", service, err)
		}
	}
	return &SplitTable{Default: def, ByService: byService}, nil
}

// Ratio returns the astrologer ratio for a service.
func (t *SplitTable) Ratio(service string) decimal.Decimal {
	if t == nil {
		return DefaultAstrologerRatio
	}
	if r, ok := t.ByService[service]; ok {
		return r
	}
	return t.Default
}

// Split applies the ratio configured for service.
func (t *SplitTable) Split(gross decimal.Decimal, service string) (CommissionSplit, error) {
	return Split(gross, t.Ratio(service))
}

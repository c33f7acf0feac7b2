package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		gross      string
		ratio      string
		astrologer string
		platform   string
	}{
		{"50", "0.8", "40.00", "10.00"},
		{"0.01", "0.8", "0.01", "0.00"},
		{"10.01", "0.8", "8.01", "2.00"},
		{"33.33", "0.7", "23.33", "10.00"},
		{"99.99", "1", "99.99", "0.00"},
		{"12.34", "0", "0.00", "12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.gross+"@"+tt.ratio, func(t *testing.T) {
			gross := decimal.RequireFromString(tt.gross)
			split, err := Split(gross, decimal.RequireFromString(tt.ratio))
			require.NoError(t, err)
			assert.Equal(t, tt.astrologer, split.AstrologerShare.StringFixed(2))
			assert.Equal(t, tt.platform, split.PlatformShare.StringFixed(2))
			assert.True(t, split.AstrologerShare.Add(split.PlatformShare).Equal(gross), "shares must sum to gross")
		})
	}
}

func TestSplit_Invalid(t *testing.T) {
	_, err := Split(decimal.NewFromInt(10), decimal.RequireFromString("1.2"))
	assert.Error(t, err)

	_, err = Split(decimal.NewFromInt(-10), decimal.RequireFromString("0.8"))
	assert.Error(t, err)
}

func TestSplitTable(t *testing.T) {
	table, err := NewSplitTable(decimal.RequireFromString("0.8"), map[string]decimal.Decimal{
		"video": decimal.RequireFromString("0.75"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.75", table.Ratio("video").String())
	assert.Equal(t, "0.8", table.Ratio("chat").String())

	split, err := table.Split(decimal.NewFromInt(100), "video")
	require.NoError(t, err)
	assert.Equal(t, "75.00", split.AstrologerShare.StringFixed(2))
	assert.Equal(t, "25.00", split.PlatformShare.StringFixed(2))

	_, err = NewSplitTable(decimal.RequireFromString("0.8"), map[string]decimal.Decimal{"call": decimal.NewFromInt(2)})
	assert.Error(t, err)

	var nilTable *SplitTable
	assert.True(t, nilTable.Ratio("call").Equal(DefaultAstrologerRatio))
}

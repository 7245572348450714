package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFeeScheduleOnOneSol(t *testing.T) {
	fees := DefaultFeeSchedule()
	require.NoError(t, fees.Validate())

	b := fees.Apply(decimal.RequireFromString("1"))

	assert.True(t, b.Fee.Equal(decimal.RequireFromString("0.01")), "fee %s", b.Fee)
	assert.True(t, b.Net.Equal(decimal.RequireFromString("0.99")), "net %s", b.Net)
	assert.True(t, b.LiquidityFee.Equal(decimal.RequireFromString("0.005")))
	assert.True(t, b.TreasuryFee.Equal(decimal.RequireFromString("0.005")))
}

func TestFeeBreakdownAlwaysReconciles(t *testing.T) {
	fees := FeeSchedule{TotalBps: 137, LiquidityBps: 90, TreasuryBps: 47}
	require.NoError(t, fees.Validate())

	for _, raw := range []string{"1", "0.000000001", "123.456789123", "2", "0.0325"} {
		gross := decimal.RequireFromString(raw)
		b := fees.Apply(gross)

		assert.True(t, b.Net.Add(b.Fee).Equal(gross), "gross %s did not reconcile", raw)
		assert.True(t, b.LiquidityFee.Add(b.TreasuryFee).Equal(b.Fee),
			"fee split for %s did not reconcile", raw)
		assert.False(t, b.Net.IsNegative())
	}
}

func TestZeroFeePassesThrough(t *testing.T) {
	fees := FeeSchedule{}
	gross := decimal.RequireFromString("5.5")
	b := fees.Apply(gross)
	assert.True(t, b.Net.Equal(gross))
	assert.True(t, b.Fee.IsZero())
}

func TestFeeScheduleValidate(t *testing.T) {
	assert.Error(t, FeeSchedule{TotalBps: 10000, LiquidityBps: 5000, TreasuryBps: 5000}.Validate())
	assert.Error(t, FeeSchedule{TotalBps: 100, LiquidityBps: 30, TreasuryBps: 30}.Validate())
	assert.NoError(t, DefaultFeeSchedule().Validate())
}

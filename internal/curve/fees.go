package curve

import (
	"errors"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// FeeSchedule expresses the platform trading fee in basis points. The
// liquidity/treasury split is a downstream accounting concern; it never
// changes the net amount a trade settles at.
type FeeSchedule struct {
	TotalBps     uint16
	LiquidityBps uint16
	TreasuryBps  uint16
}

// DefaultFeeSchedule is the platform default: 1% total, split evenly
// between the liquidity allocation and the treasury.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TotalBps:     100,
		LiquidityBps: 50,
		TreasuryBps:  50,
	}
}

// Validate checks that the split adds up and the total stays below 100%.
func (f FeeSchedule) Validate() error {
	if f.TotalBps >= bpsDenominator {
		return errors.New("total fee must be below 100%")
	}
	if f.LiquidityBps+f.TreasuryBps != f.TotalBps {
		return errors.New("liquidity and treasury shares must sum to the total fee")
	}
	return nil
}

// FeeBreakdown is the result of applying a FeeSchedule to a gross amount.
// Net + Fee == gross exactly; LiquidityFee + TreasuryFee == Fee exactly.
type FeeBreakdown struct {
	Net          decimal.Decimal
	Fee          decimal.Decimal
	LiquidityFee decimal.Decimal
	TreasuryFee  decimal.Decimal
}

// Apply splits gross into the net amount and the fee, rounding the fee
// half-even at quote precision. The treasury share is derived by
// subtraction so the split can never gain or lose a rounding unit.
func (f FeeSchedule) Apply(gross decimal.Decimal) FeeBreakdown {
	if f.TotalBps == 0 || gross.Sign() <= 0 {
		return FeeBreakdown{Net: gross}
	}

	denom := decimal.NewFromInt(bpsDenominator)
	fee := gross.Mul(decimal.NewFromInt(int64(f.TotalBps))).Div(denom).RoundBank(QuotePrecision)
	liquidity := fee.Mul(decimal.NewFromInt(int64(f.LiquidityBps))).
		Div(decimal.NewFromInt(int64(f.TotalBps))).RoundBank(QuotePrecision)

	return FeeBreakdown{
		Net:          gross.Sub(fee),
		Fee:          fee,
		LiquidityFee: liquidity,
		TreasuryFee:  fee.Sub(liquidity),
	}
}

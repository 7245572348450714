// Package curve implements the linear bonding-curve math used to price
// launchpad tokens. All amounts are decimal.Decimal; float64 is never
// used for money so that a buy followed by a sell of the same size is
// value-neutral before fees.
package curve

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// QuotePrecision is the number of fractional digits carried by
	// native-currency amounts (9, matching lamport granularity).
	QuotePrecision = 9
)

var (
	two = decimal.NewFromInt(2)
)

// Params describes a linear price function price(sold) = base + slope*sold.
// Immutable once a token is created.
type Params struct {
	// BasePrice is the price of the first unit, in native currency. Must be > 0.
	BasePrice decimal.Decimal
	// Slope is the price increase per unit sold. Must be >= 0.
	Slope decimal.Decimal
}

// Validate checks that the parameters describe a usable curve.
func (p Params) Validate() error {
	if !p.BasePrice.IsPositive() {
		return errors.New("base price must be positive")
	}
	if p.Slope.IsNegative() {
		return errors.New("slope must not be negative")
	}
	return nil
}

// PriceAt returns the spot price after sold units have been sold.
func (p Params) PriceAt(sold int64) decimal.Decimal {
	return p.BasePrice.Add(p.Slope.Mul(decimal.NewFromInt(sold)))
}

// CostToBuy returns the exact cost of moving the curve from sold to
// sold+n: the discrete sum of price(sold) .. price(sold+n-1), evaluated
// in closed form as n*base + slope*(n*(2*sold+n-1))/2. Incremental
// accumulation is deliberately avoided; the closed form has no drift.
func (p Params) CostToBuy(sold, n int64) (decimal.Decimal, error) {
	if sold < 0 {
		return decimal.Zero, fmt.Errorf("units sold must not be negative, got %d", sold)
	}
	if n < 0 {
		return decimal.Zero, fmt.Errorf("trade size must not be negative, got %d", n)
	}
	if n == 0 {
		return decimal.Zero, nil
	}

	nd := decimal.NewFromInt(n)
	// n*(2*sold+n-1) is always even, so the halved series is an exact integer.
	series := nd.Mul(decimal.NewFromInt(sold).Mul(two).Add(nd).Sub(decimal.NewFromInt(1)))
	return nd.Mul(p.BasePrice).Add(p.Slope.Mul(series.Div(two))), nil
}

// RefundForSell returns the exact proceeds of moving the curve from sold
// down to sold-n: the mirror sum over units sold-1 .. sold-n. Selling
// more than has been sold is an error, not a zero refund.
func (p Params) RefundForSell(sold, n int64) (decimal.Decimal, error) {
	if sold < 0 {
		return decimal.Zero, fmt.Errorf("units sold must not be negative, got %d", sold)
	}
	if n < 0 {
		return decimal.Zero, fmt.Errorf("trade size must not be negative, got %d", n)
	}
	if n > sold {
		return decimal.Zero, fmt.Errorf("cannot sell %d units with only %d sold", n, sold)
	}
	if n == 0 {
		return decimal.Zero, nil
	}

	// Same sum as buying the n units from sold-n up to sold-1.
	return p.CostToBuy(sold-n, n)
}

// UnitsForBudget returns the largest n <= maxUnits whose CostToBuy from
// sold fits within budget, found by binary search over the closed-form
// cost. Buys at the trade boundary are denominated in native currency,
// so settlement needs this inversion.
func (p Params) UnitsForBudget(sold int64, budget decimal.Decimal, maxUnits int64) (int64, error) {
	if maxUnits < 0 {
		return 0, fmt.Errorf("max units must not be negative, got %d", maxUnits)
	}
	if budget.Sign() <= 0 {
		return 0, nil
	}

	lo, hi := int64(0), maxUnits
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		cost, err := p.CostToBuy(sold, mid)
		if err != nil {
			return 0, err
		}
		if cost.LessThanOrEqual(budget) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

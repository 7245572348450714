package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParams(t *testing.T, base, slope string) Params {
	t.Helper()
	p := Params{
		BasePrice: decimal.RequireFromString(base),
		Slope:     decimal.RequireFromString(slope),
	}
	require.NoError(t, p.Validate())
	return p
}

// bruteForceCost sums the per-unit prices one by one. The closed form
// must match this exactly for every input.
func bruteForceCost(p Params, sold, n int64) decimal.Decimal {
	total := decimal.Zero
	for i := int64(0); i < n; i++ {
		total = total.Add(p.PriceAt(sold + i))
	}
	return total
}

func TestCostToBuyMatchesBruteForce(t *testing.T) {
	p := mustParams(t, "0.000045", "0.00000000005")

	cases := []struct{ sold, n int64 }{
		{0, 1},
		{0, 1000},
		{1, 1},
		{17, 31},
		{999, 2},
		{650000000, 1},
		{1234567, 250},
	}
	for _, tc := range cases {
		got, err := p.CostToBuy(tc.sold, tc.n)
		require.NoError(t, err)
		want := bruteForceCost(p, tc.sold, tc.n)
		assert.True(t, got.Equal(want),
			"sold=%d n=%d closed form %s != brute force %s", tc.sold, tc.n, got, want)
	}
}

func TestBuySellRoundTripIsValueNeutral(t *testing.T) {
	p := mustParams(t, "0.002", "0.0000001")

	for _, tc := range []struct{ sold, n int64 }{
		{0, 1}, {0, 1000}, {5000, 333}, {123456, 7},
	} {
		cost, err := p.CostToBuy(tc.sold, tc.n)
		require.NoError(t, err)
		refund, err := p.RefundForSell(tc.sold+tc.n, tc.n)
		require.NoError(t, err)
		assert.True(t, cost.Equal(refund),
			"sold=%d n=%d buy cost %s != sell refund %s", tc.sold, tc.n, cost, refund)
	}
}

func TestFlatCurveExactCost(t *testing.T) {
	// base=0.002, slope=0: 1000 units cost exactly 2.0.
	p := mustParams(t, "0.002", "0")

	cost, err := p.CostToBuy(0, 1000)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("2")), "got %s", cost)

	refund, err := p.RefundForSell(1000, 1000)
	require.NoError(t, err)
	assert.True(t, refund.Equal(cost))
}

func TestPriceAtDeepIntoCurve(t *testing.T) {
	p := mustParams(t, "0.000045", "0.00000000005")

	price := p.PriceAt(650000000)
	assert.True(t, price.Equal(decimal.RequireFromString("0.032545")), "got %s", price)

	// A single-unit buy costs exactly the spot price, not an approximation.
	cost, err := p.CostToBuy(650000000, 1)
	require.NoError(t, err)
	assert.True(t, cost.Equal(price), "cost %s != spot %s", cost, price)
}

func TestPriceMonotonicity(t *testing.T) {
	p := mustParams(t, "0.001", "0.00001")

	prev := p.PriceAt(0)
	for sold := int64(1); sold <= 1000; sold += 37 {
		cur := p.PriceAt(sold)
		assert.True(t, cur.GreaterThanOrEqual(prev), "price decreased at sold=%d", sold)
		prev = cur
	}

	// Cost is strictly increasing in n while base > 0.
	prevCost := decimal.Zero
	for n := int64(1); n <= 200; n += 13 {
		cost, err := p.CostToBuy(500, n)
		require.NoError(t, err)
		assert.True(t, cost.GreaterThan(prevCost), "cost not increasing at n=%d", n)
		prevCost = cost
	}
}

func TestRefundForSellRejectsOversell(t *testing.T) {
	p := mustParams(t, "0.002", "0.0000001")

	_, err := p.RefundForSell(10, 11)
	assert.Error(t, err)

	// Selling exactly everything sold so far is fine.
	refund, err := p.RefundForSell(10, 10)
	require.NoError(t, err)
	assert.True(t, refund.IsPositive())
}

func TestUnitsForBudget(t *testing.T) {
	p := mustParams(t, "0.002", "0")

	// 2.0 buys exactly 1000 flat-priced units.
	n, err := p.UnitsForBudget(0, decimal.RequireFromString("2"), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)

	// A hair under one unit's price affords nothing.
	n, err = p.UnitsForBudget(0, decimal.RequireFromString("0.0019"), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// The cap wins when the budget would overshoot remaining supply.
	n, err = p.UnitsForBudget(0, decimal.RequireFromString("1000"), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// On a sloped curve the result is exactly the boundary n.
	sloped := mustParams(t, "0.001", "0.0001")
	budget, err := sloped.CostToBuy(50, 17)
	require.NoError(t, err)
	n, err = sloped.UnitsForBudget(50, budget, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
}

func TestParamsValidate(t *testing.T) {
	assert.Error(t, Params{BasePrice: decimal.Zero, Slope: decimal.Zero}.Validate())
	assert.Error(t, Params{
		BasePrice: decimal.RequireFromString("0.01"),
		Slope:     decimal.RequireFromString("-1"),
	}.Validate())
	assert.NoError(t, Params{
		BasePrice: decimal.RequireFromString("0.01"),
		Slope:     decimal.Zero,
	}.Validate())
}

func TestCostToBuyRejectsNegativeInputs(t *testing.T) {
	p := mustParams(t, "0.002", "0")

	_, err := p.CostToBuy(-1, 10)
	assert.Error(t, err)
	_, err = p.CostToBuy(0, -10)
	assert.Error(t, err)
	_, err = p.RefundForSell(-5, 1)
	assert.Error(t, err)
}

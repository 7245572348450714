package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testWalker(t *testing.T, r *Registry, interval time.Duration) *Walker {
	t.Helper()
	return NewWalker(r, WalkerConfig{
		Interval: interval,
		Step:     decimal.RequireFromString("0.0001"),
		Floor:    decimal.RequireFromString("0.0001"),
	}, nil, zaptest.NewLogger(t))
}

func TestWalkerAppendsDisplaySamplesOnly(t *testing.T) {
	r := testRegistry(t, Options{})
	_, err := r.Create("IDLE", "Idle Token", flatParams("0.005"), 1_000_000)
	require.NoError(t, err)

	before, err := r.Snapshot("IDLE")
	require.NoError(t, err)

	// A nanosecond staleness window makes the creation seed look idle.
	w := testWalker(t, r, time.Nanosecond)
	time.Sleep(2 * time.Nanosecond)
	w.tick()

	points, err := r.History("IDLE")
	require.NoError(t, err)
	require.Len(t, points, 2, "walker should have appended one synthetic sample")

	moved := points[1].Value.Sub(points[0].Value).Abs()
	assert.True(t, moved.LessThanOrEqual(decimal.RequireFromString("0.0001")),
		"synthetic step exceeded bound: %s", moved)

	// Authoritative state is untouched.
	after, err := r.Snapshot("IDLE")
	require.NoError(t, err)
	assert.Equal(t, before.UnitsSold, after.UnitsSold)
	assert.True(t, after.ReserveNative.Equal(before.ReserveNative))
	assert.True(t, after.MarketCapUSD.Equal(before.MarketCapUSD))
}

func TestWalkerSkipsFreshlyTradedTickers(t *testing.T) {
	r := testRegistry(t, Options{})
	_, err := r.Create("BUSY", "Busy Token", flatParams("0.005"), 1_000_000)
	require.NoError(t, err)
	_, err = r.Buy("BUSY", decimal.RequireFromString("0.05"), "w")
	require.NoError(t, err)

	// With a long interval the just-settled trade sample is fresher than
	// the staleness window, so the walker must stay out.
	w := testWalker(t, r, time.Hour)
	w.tick()

	points, err := r.History("BUSY")
	require.NoError(t, err)
	assert.Len(t, points, 2, "creation seed + trade sample, no synthetic sample")
}

func TestWalkerSkipsGraduatedTokens(t *testing.T) {
	r := testRegistry(t, Options{GraduationThresholdUSD: decimal.NewFromInt(1)})
	_, err := r.Create("GRAD", "Graduated", flatParams("0.01"), 1_000_000)
	require.NoError(t, err)
	_, err = r.Buy("GRAD", decimal.NewFromInt(1), "w")
	require.NoError(t, err)

	w := testWalker(t, r, time.Nanosecond)
	time.Sleep(2 * time.Nanosecond)
	w.tick()
	w.tick()

	points, err := r.History("GRAD")
	require.NoError(t, err)
	assert.Len(t, points, 2, "graduated token charts must not keep walking")
}

func TestWalkerFloorsAtConfiguredMinimum(t *testing.T) {
	r := testRegistry(t, Options{})
	_, err := r.Create("LOW", "Low", flatParams("0.00011"), 1_000_000)
	require.NoError(t, err)

	w := testWalker(t, r, time.Nanosecond)
	for i := 0; i < 50; i++ {
		time.Sleep(2 * time.Nanosecond)
		w.tick()
	}

	points, err := r.History("LOW")
	require.NoError(t, err)
	for _, p := range points {
		assert.True(t, p.Value.GreaterThanOrEqual(decimal.RequireFromString("0.0001")),
			"sample %s fell below the floor", p.Value)
	}
}

// Package market owns all per-token trading state: the bonding-curve
// market record, the append-only trade ledger, the bounded price
// history, and the keyed registry that serializes access to them.
package market

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asterlaunch/launchpad/internal/curve"
)

// MaxTickerLen caps ticker symbols, matching the creation form limit.
const MaxTickerLen = 5

// TradeKind distinguishes buys from sells.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Trade is an executed, settled trade. Immutable once recorded.
type Trade struct {
	ID             string
	Ticker         string
	Kind           TradeKind
	Units          int64
	NativeAmount   decimal.Decimal // gross curve amount, before fee
	ExecutionPrice decimal.Decimal // NativeAmount / Units at quote precision
	Fee            decimal.Decimal
	Actor          string
	Timestamp      time.Time
}

// PricePoint is a single chart sample.
type PricePoint struct {
	Timestamp time.Time
	Value     decimal.Decimal
}

// state is the mutable per-token record. It is owned by the registry and
// only ever touched while the ticker's lock is held.
type state struct {
	Ticker      string
	Name        string
	Curve       curve.Params
	TotalSupply int64
	UnitsSold   int64

	// ReserveNative is the net backing liquidity collected from buys
	// and paid out on sells; fees are accounted separately.
	ReserveNative   decimal.Decimal
	LiquidityNative decimal.Decimal
	TreasuryNative  decimal.Decimal

	GraduationThresholdUSD decimal.Decimal
	Graduated              bool
	GraduatedAt            time.Time

	CreatedAt   time.Time
	LastTradeAt time.Time
}

// Snapshot is a read-only view of a token market handed to display and
// persistence collaborators. It carries no mutation handle.
type Snapshot struct {
	Ticker      string
	Name        string
	Curve       curve.Params
	TotalSupply int64
	UnitsSold   int64

	Price           decimal.Decimal
	MarketCapUSD    decimal.Decimal
	ReserveNative   decimal.Decimal
	LiquidityNative decimal.Decimal
	TreasuryNative  decimal.Decimal

	GraduationThresholdUSD decimal.Decimal
	GraduationProgress     decimal.Decimal // percent, clamped to [0, 100]
	Graduated              bool
	GraduatedAt            time.Time

	CreatedAt   time.Time
	LastTradeAt time.Time
}

// RateSource supplies the native-currency to USD conversion used to
// denominate market caps. The registry never caches the rate.
type RateSource interface {
	NativeUSD() decimal.Decimal
}

// FixedRate is a RateSource pinned to a constant rate from config.
type FixedRate struct {
	Rate decimal.Decimal
}

func (f FixedRate) NativeUSD() decimal.Decimal { return f.Rate }

var hundred = decimal.NewFromInt(100)

// price returns the current spot price.
func (s *state) price() decimal.Decimal {
	return s.Curve.PriceAt(s.UnitsSold)
}

// marketCapUSD is spot price times the full supply, converted to USD.
func (s *state) marketCapUSD(rate decimal.Decimal) decimal.Decimal {
	return s.price().Mul(decimal.NewFromInt(s.TotalSupply)).Mul(rate)
}

// graduationProgress is marketCap/threshold as a percentage in [0, 100].
func (s *state) graduationProgress(rate decimal.Decimal) decimal.Decimal {
	if !s.GraduationThresholdUSD.IsPositive() {
		return hundred
	}
	progress := s.marketCapUSD(rate).Div(s.GraduationThresholdUSD).Mul(hundred)
	if progress.GreaterThan(hundred) {
		return hundred
	}
	if progress.IsNegative() {
		return decimal.Zero
	}
	return progress
}

func (s *state) snapshot(rate decimal.Decimal) Snapshot {
	return Snapshot{
		Ticker:                 s.Ticker,
		Name:                   s.Name,
		Curve:                  s.Curve,
		TotalSupply:            s.TotalSupply,
		UnitsSold:              s.UnitsSold,
		Price:                  s.price(),
		MarketCapUSD:           s.marketCapUSD(rate),
		ReserveNative:          s.ReserveNative,
		LiquidityNative:        s.LiquidityNative,
		TreasuryNative:         s.TreasuryNative,
		GraduationThresholdUSD: s.GraduationThresholdUSD,
		GraduationProgress:     s.graduationProgress(rate),
		Graduated:              s.Graduated,
		GraduatedAt:            s.GraduatedAt,
		CreatedAt:              s.CreatedAt,
		LastTradeAt:            s.LastTradeAt,
	}
}

// NormalizeTicker upper-cases and validates a ticker symbol.
func NormalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" || len(ticker) > MaxTickerLen {
		return "", ErrInvalidTicker
	}
	for _, r := range ticker {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidTicker
		}
	}
	return ticker, nil
}

package market

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asterlaunch/launchpad/internal/curve"
	"github.com/asterlaunch/launchpad/internal/events"
	"github.com/asterlaunch/launchpad/internal/migration"
)

// Defaults for per-ticker bounded collections and graduation.
const (
	DefaultHistoryCapacity = 120
	DefaultLedgerCapacity  = 500
)

// DefaultGraduationThresholdUSD is the market cap at which a token
// leaves the curve for an external venue.
var DefaultGraduationThresholdUSD = decimal.NewFromInt(69000)

// Receipt is returned to the trade-submission collaborator after a
// settled trade.
type Receipt struct {
	Trade Trade
	// NetProceeds is what the counterparty actually receives: for buys
	// the units bought are the proceeds, for sells this is the native
	// refund after the fee.
	NetProceeds decimal.Decimal
	Snapshot    Snapshot
}

// Stats are display statistics derived from the ledger and history.
type Stats struct {
	Volume24h   decimal.Decimal
	HolderDelta int
	Change24h   float64
	TradeCount  int
}

// entry pairs a token's state with its exclusive-access primitive.
// Settlement, history appends, and snapshot reads all go through mu, so
// two trades on one ticker can never interleave their curve reads and
// writes while trades on different tickers proceed in parallel.
type entry struct {
	mu      sync.Mutex
	state   *state
	ledger  *ledger
	history *history
}

// Options configures a Registry.
type Options struct {
	Fees                   curve.FeeSchedule
	Rate                   RateSource
	GraduationThresholdUSD decimal.Decimal
	HistoryCapacity        int
	LedgerCapacity         int
	Bus                    *events.Bus        // optional
	Migrator               migration.Migrator // optional
}

// Registry is the keyed collection of token markets and the unit of
// concurrency control. It exclusively owns every state, ledger, and
// history instance; collaborators only ever see copies.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	fees      curve.FeeSchedule
	rate      RateSource
	threshold decimal.Decimal
	histCap   int
	ledgerCap int

	bus      *events.Bus
	migrator migration.Migrator
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, logger *zap.Logger) (*Registry, error) {
	if err := opts.Fees.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fee schedule: %w", err)
	}
	if opts.Rate == nil {
		return nil, fmt.Errorf("rate source is required")
	}
	threshold := opts.GraduationThresholdUSD
	if threshold.IsZero() {
		threshold = DefaultGraduationThresholdUSD
	}
	return &Registry{
		entries:   make(map[string]*entry),
		fees:      opts.Fees,
		rate:      opts.Rate,
		threshold: threshold,
		histCap:   opts.HistoryCapacity,
		ledgerCap: opts.LedgerCapacity,
		bus:       opts.Bus,
		migrator:  opts.Migrator,
		logger:    logger.Named("registry"),
	}, nil
}

// Create registers a new active token market. The history is seeded with
// the initial spot price so charts have a starting sample.
func (r *Registry) Create(rawTicker, name string, params curve.Params, totalSupply int64) (Snapshot, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return Snapshot{}, err
	}
	if err := params.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if totalSupply <= 0 {
		return Snapshot{}, fmt.Errorf("%w: total supply must be positive", ErrInvalidAmount)
	}

	now := time.Now()
	e := &entry{
		state: &state{
			Ticker:                 ticker,
			Name:                   name,
			Curve:                  params,
			TotalSupply:            totalSupply,
			ReserveNative:          decimal.Zero,
			LiquidityNative:        decimal.Zero,
			TreasuryNative:         decimal.Zero,
			GraduationThresholdUSD: r.threshold,
			CreatedAt:              now,
		},
		ledger:  newLedger(r.ledgerCap),
		history: newHistory(r.histCap),
	}
	e.history.append(PricePoint{Timestamp: now, Value: e.state.price()})

	r.mu.Lock()
	if _, exists := r.entries[ticker]; exists {
		r.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %s", ErrDuplicateTicker, ticker)
	}
	r.entries[ticker] = e
	r.mu.Unlock()

	snap := e.state.snapshot(r.rate.NativeUSD())
	r.logger.Info("Token market created",
		zap.String("ticker", ticker),
		zap.String("name", name),
		zap.Int64("total_supply", totalSupply),
		zap.String("base_price", params.BasePrice.String()))

	r.publish(&events.MarketCreatedEvent{
		BaseEvent:   events.NewBaseEvent(events.MarketCreated),
		Ticker:      ticker,
		Name:        name,
		TotalSupply: totalSupply,
	})
	return snap, nil
}

// lookup resolves a normalized ticker to its entry.
func (r *Registry) lookup(rawTicker string) (*entry, string, error) {
	ticker, err := NormalizeTicker(rawTicker)
	if err != nil {
		return nil, "", err
	}
	r.mu.RLock()
	e := r.entries[ticker]
	r.mu.RUnlock()
	if e == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return e, ticker, nil
}

// Buy settles a curve purchase funded by nativeBudget. Units are the
// largest amount the budget affords at the exact closed-form cost.
// Validation happens before any mutation; the settlement itself (curve
// advance, fee accrual, ledger append, history append, graduation
// check) is one critical section.
func (r *Registry) Buy(rawTicker string, nativeBudget decimal.Decimal, actor string) (*Receipt, error) {
	e, ticker, err := r.lookup(rawTicker)
	if err != nil {
		return nil, err
	}
	if nativeBudget.Sign() <= 0 {
		return nil, fmt.Errorf("%w: buy budget must be positive", ErrInvalidAmount)
	}

	var graduation *migration.Request

	e.mu.Lock()
	s := e.state
	if s.Graduated {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCurveFrozen, ticker)
	}
	remaining := s.TotalSupply - s.UnitsSold
	if remaining == 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is sold out", ErrSupplyExceeded, ticker)
	}

	units, err := s.Curve.UnitsForBudget(s.UnitsSold, nativeBudget, remaining)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if units == 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: budget %s does not afford a single unit", ErrInvalidAmount, nativeBudget)
	}

	gross, err := s.Curve.CostToBuy(s.UnitsSold, units)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	fees := r.fees.Apply(gross)

	now := time.Now()
	s.UnitsSold += units
	s.ReserveNative = s.ReserveNative.Add(fees.Net)
	s.LiquidityNative = s.LiquidityNative.Add(fees.LiquidityFee)
	s.TreasuryNative = s.TreasuryNative.Add(fees.TreasuryFee)
	s.LastTradeAt = now

	trade := Trade{
		ID:             uuid.NewString(),
		Ticker:         ticker,
		Kind:           TradeBuy,
		Units:          units,
		NativeAmount:   gross,
		ExecutionPrice: gross.DivRound(decimal.NewFromInt(units), curve.QuotePrecision),
		Fee:            fees.Fee,
		Actor:          actor,
		Timestamp:      now,
	}
	e.ledger.record(trade)
	price := s.price()
	e.history.append(PricePoint{Timestamp: now, Value: price})

	rate := r.rate.NativeUSD()
	// Graduation is checked only after the trade is fully applied, so
	// the crossing buy itself always settles.
	if !s.Graduated && s.marketCapUSD(rate).GreaterThanOrEqual(s.GraduationThresholdUSD) {
		s.Graduated = true
		s.GraduatedAt = now
		graduation = &migration.Request{
			Ticker:         ticker,
			UnitsSold:      s.UnitsSold,
			UnitsRemaining: s.TotalSupply - s.UnitsSold,
			ReserveNative:  s.ReserveNative,
		}
	}
	snap := s.snapshot(rate)
	e.mu.Unlock()

	r.logger.Info("Buy settled",
		zap.String("ticker", ticker),
		zap.Int64("units", units),
		zap.String("gross", gross.String()),
		zap.String("fee", fees.Fee.String()),
		zap.String("actor", actor))

	r.publishTrade(trade, price)
	if graduation != nil {
		r.graduate(ticker, snap, *graduation)
	}
	return &Receipt{Trade: trade, NetProceeds: decimal.NewFromInt(units), Snapshot: snap}, nil
}

// Sell settles a curve sale of units tokens. The seller receives the
// closed-form refund minus the fee.
func (r *Registry) Sell(rawTicker string, units int64, actor string) (*Receipt, error) {
	e, ticker, err := r.lookup(rawTicker)
	if err != nil {
		return nil, err
	}
	if units <= 0 {
		return nil, fmt.Errorf("%w: sell size must be positive", ErrInvalidAmount)
	}

	e.mu.Lock()
	s := e.state
	if s.Graduated {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCurveFrozen, ticker)
	}
	if units > s.UnitsSold {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %d > %d", ErrInsufficientUnits, units, s.UnitsSold)
	}

	refund, err := s.Curve.RefundForSell(s.UnitsSold, units)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	fees := r.fees.Apply(refund)

	now := time.Now()
	s.UnitsSold -= units
	// The reserve pays out what the seller actually receives; the fee
	// share of the refund stays in custody, earmarked in the fee tallies.
	s.ReserveNative = s.ReserveNative.Sub(fees.Net)
	s.LiquidityNative = s.LiquidityNative.Add(fees.LiquidityFee)
	s.TreasuryNative = s.TreasuryNative.Add(fees.TreasuryFee)
	s.LastTradeAt = now

	trade := Trade{
		ID:             uuid.NewString(),
		Ticker:         ticker,
		Kind:           TradeSell,
		Units:          units,
		NativeAmount:   refund,
		ExecutionPrice: refund.DivRound(decimal.NewFromInt(units), curve.QuotePrecision),
		Fee:            fees.Fee,
		Actor:          actor,
		Timestamp:      now,
	}
	e.ledger.record(trade)
	price := s.price()
	e.history.append(PricePoint{Timestamp: now, Value: price})
	snap := s.snapshot(r.rate.NativeUSD())
	e.mu.Unlock()

	r.logger.Info("Sell settled",
		zap.String("ticker", ticker),
		zap.Int64("units", units),
		zap.String("refund", refund.String()),
		zap.String("fee", fees.Fee.String()),
		zap.String("actor", actor))

	r.publishTrade(trade, price)
	return &Receipt{Trade: trade, NetProceeds: fees.Net, Snapshot: snap}, nil
}

// graduate runs the one-shot Active -> Graduated side effects after the
// per-ticker lock has been released. Migration failure is reported, not
// retried; graduation is final regardless of the outcome.
func (r *Registry) graduate(ticker string, snap Snapshot, req migration.Request) {
	r.logger.Info("Token graduated",
		zap.String("ticker", ticker),
		zap.String("market_cap_usd", snap.MarketCapUSD.String()),
		zap.String("reserve_native", req.ReserveNative.String()))

	r.publish(&events.TokenGraduatedEvent{
		BaseEvent:    events.NewBaseEvent(events.TokenGraduated),
		Ticker:       ticker,
		MarketCapUSD: snap.MarketCapUSD.String(),
		UnitsSold:    req.UnitsSold,
	})

	if r.migrator == nil {
		return
	}
	if err := r.migrator.Migrate(req); err != nil {
		r.logger.Error("Liquidity migration failed",
			zap.String("ticker", ticker),
			zap.Error(err))
		r.publish(&events.MigrationFailedEvent{
			BaseEvent: events.NewBaseEvent(events.MigrationFailed),
			Ticker:    ticker,
			Reason:    err.Error(),
		})
		return
	}
	r.publish(&events.MigrationCompletedEvent{
		BaseEvent: events.NewBaseEvent(events.MigrationCompleted),
		Ticker:    ticker,
	})
}

func (r *Registry) publishTrade(t Trade, price decimal.Decimal) {
	r.publish(&events.TradeExecutedEvent{
		BaseEvent:    events.NewBaseEvent(events.TradeExecuted),
		TradeID:      t.ID,
		Ticker:       t.Ticker,
		Kind:         string(t.Kind),
		Units:        t.Units,
		NativeAmount: t.NativeAmount.String(),
		Fee:          t.Fee.String(),
		Actor:        t.Actor,
	})
	r.publish(&events.PriceUpdatedEvent{
		BaseEvent: events.NewBaseEvent(events.PriceUpdated),
		Ticker:    t.Ticker,
		Price:     price.String(),
		Synthetic: false,
	})
}

func (r *Registry) publish(ev events.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ev); err != nil {
		r.logger.Debug("Event dropped", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

// Snapshot returns a read-only view of one token market.
func (r *Registry) Snapshot(rawTicker string) (Snapshot, error) {
	e, _, err := r.lookup(rawTicker)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	snap := e.state.snapshot(r.rate.NativeUSD())
	e.mu.Unlock()
	return snap, nil
}

// History returns the price series oldest-first.
func (r *Registry) History(rawTicker string) ([]PricePoint, error) {
	e, _, err := r.lookup(rawTicker)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	pts := e.history.ordered()
	e.mu.Unlock()
	return pts, nil
}

// RecentTrades returns up to n trades, newest first.
func (r *Registry) RecentTrades(rawTicker string, n int) ([]Trade, error) {
	e, _, err := r.lookup(rawTicker)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	trades := e.ledger.recent(n)
	e.mu.Unlock()
	return trades, nil
}

// Stats returns display statistics for one token.
func (r *Registry) Stats(rawTicker string) (Stats, error) {
	e, _, err := r.lookup(rawTicker)
	if err != nil {
		return Stats{}, err
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	e.mu.Lock()
	defer e.mu.Unlock()
	change, _ := e.history.changeSince(cutoff)
	return Stats{
		Volume24h:   e.ledger.volumeSince(cutoff),
		HolderDelta: e.ledger.holderDelta(),
		Change24h:   change,
		TradeCount:  e.ledger.len(),
	}, nil
}

// List returns snapshots of every market, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	rate := r.rate.NativeUSD()
	snaps := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		snaps = append(snaps, e.state.snapshot(rate))
		e.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })
	return snaps
}

// Tickers returns all registered tickers.
func (r *Registry) Tickers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tickers := make([]string, 0, len(r.entries))
	for t := range r.entries {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// LedgerTrades returns the retained ledger in settlement order, for
// persistence collaborators.
func (r *Registry) LedgerTrades(rawTicker string) ([]Trade, error) {
	e, _, err := r.lookup(rawTicker)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	trades := e.ledger.all()
	e.mu.Unlock()
	return trades, nil
}

// Restore rebuilds a token market from persisted state. Used at startup
// only; restoring over a live ticker is rejected as a duplicate.
func (r *Registry) Restore(snap Snapshot, trades []Trade, points []PricePoint) error {
	ticker, err := NormalizeTicker(snap.Ticker)
	if err != nil {
		return err
	}
	if err := snap.Curve.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if snap.UnitsSold < 0 || snap.UnitsSold > snap.TotalSupply {
		return fmt.Errorf("%w: units sold %d out of range", ErrInvalidAmount, snap.UnitsSold)
	}

	e := &entry{
		state: &state{
			Ticker:                 ticker,
			Name:                   snap.Name,
			Curve:                  snap.Curve,
			TotalSupply:            snap.TotalSupply,
			UnitsSold:              snap.UnitsSold,
			ReserveNative:          snap.ReserveNative,
			LiquidityNative:        snap.LiquidityNative,
			TreasuryNative:         snap.TreasuryNative,
			GraduationThresholdUSD: snap.GraduationThresholdUSD,
			Graduated:              snap.Graduated,
			GraduatedAt:            snap.GraduatedAt,
			CreatedAt:              snap.CreatedAt,
			LastTradeAt:            snap.LastTradeAt,
		},
		ledger:  newLedger(r.ledgerCap),
		history: newHistory(r.histCap),
	}
	for _, t := range trades {
		e.ledger.record(t)
	}
	for _, p := range points {
		e.history.append(p)
	}
	if e.history.size() == 0 {
		e.history.append(PricePoint{Timestamp: time.Now(), Value: e.state.price()})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[ticker]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTicker, ticker)
	}
	r.entries[ticker] = e
	return nil
}

// appendSample lets the synthetic walker add a display-only sample under
// the same exclusion as real settlement. The sample is skipped when the
// token has graduated or a newer-than-staleAfter sample already exists,
// and it never touches units sold or reserve state.
func (r *Registry) appendSample(ticker string, value decimal.Decimal, staleAfter time.Duration) bool {
	r.mu.RLock()
	e := r.entries[ticker]
	r.mu.RUnlock()
	if e == nil {
		return false
	}

	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Graduated {
		return false
	}
	if last, ok := e.history.last(); ok && now.Sub(last.Timestamp) < staleAfter {
		return false
	}
	e.history.append(PricePoint{Timestamp: now, Value: value})
	return true
}

// lastSample exposes the newest history point to the walker.
func (r *Registry) lastSample(ticker string) (PricePoint, bool) {
	r.mu.RLock()
	e := r.entries[ticker]
	r.mu.RUnlock()
	if e == nil {
		return PricePoint{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.last()
}

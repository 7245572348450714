package market

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/asterlaunch/launchpad/internal/curve"
	"github.com/asterlaunch/launchpad/internal/events"
)

// Walker defaults: one sample per minute, small steps, and a floor that
// keeps charts off zero.
var (
	DefaultWalkInterval = time.Minute
	DefaultWalkStep     = decimal.RequireFromString("0.0001")
	DefaultWalkFloor    = decimal.RequireFromString("0.0001")
)

// WalkerConfig configures the synthetic price walker.
type WalkerConfig struct {
	Interval time.Duration
	Step     decimal.Decimal // maximum absolute move per sample
	Floor    decimal.Decimal // lowest synthetic price
}

// Walker keeps idle-token charts visually alive by appending a bounded
// random-walk sample per interval to each non-graduated ticker with no
// recent real trade. It goes through the registry's per-ticker exclusion
// and only ever touches the display series, never units sold or market
// cap. The walk noise is the one place math/rand is allowed: these
// samples are decoration, not money.
type Walker struct {
	registry *Registry
	cfg      WalkerConfig
	bus      *events.Bus
	logger   *zap.Logger
	rng      *rand.Rand
}

// NewWalker creates a synthetic walker over the given registry.
func NewWalker(registry *Registry, cfg WalkerConfig, bus *events.Bus, logger *zap.Logger) *Walker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWalkInterval
	}
	if cfg.Step.Sign() <= 0 {
		cfg.Step = DefaultWalkStep
	}
	if cfg.Floor.Sign() <= 0 {
		cfg.Floor = DefaultWalkFloor
	}
	return &Walker{
		registry: registry,
		cfg:      cfg,
		bus:      bus,
		logger:   logger.Named("walker"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks until the context is cancelled.
func (w *Walker) Run(ctx context.Context) error {
	w.logger.Info("Synthetic walker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.String("step", w.cfg.Step.String()))

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Synthetic walker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick appends one sample per eligible ticker.
func (w *Walker) tick() {
	for _, ticker := range w.registry.Tickers() {
		last, ok := w.registry.lastSample(ticker)
		if !ok {
			continue
		}
		next := w.nextValue(last.Value)
		// A sample newer than one interval means a real trade (or an
		// earlier walker pass) already covered this window.
		if !w.registry.appendSample(ticker, next, w.cfg.Interval) {
			continue
		}
		if w.bus != nil {
			_ = w.bus.Publish(&events.PriceUpdatedEvent{
				BaseEvent: events.NewBaseEvent(events.PriceUpdated),
				Ticker:    ticker,
				Price:     next.String(),
				Synthetic: true,
			})
		}
	}
}

// nextValue moves last by a uniform step in (-step, +step), clamped to
// the floor and rounded to quote precision.
func (w *Walker) nextValue(last decimal.Decimal) decimal.Decimal {
	noise := decimal.NewFromFloat(w.rng.Float64()*2 - 1)
	next := last.Add(w.cfg.Step.Mul(noise)).RoundBank(curve.QuotePrecision)
	if next.LessThan(w.cfg.Floor) {
		return w.cfg.Floor
	}
	return next
}

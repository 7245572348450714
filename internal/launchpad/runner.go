// internal/launchpad/runner.go
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asterlaunch/launchpad/internal/config"
	"github.com/asterlaunch/launchpad/internal/curve"
	"github.com/asterlaunch/launchpad/internal/events"
	"github.com/asterlaunch/launchpad/internal/market"
	"github.com/asterlaunch/launchpad/internal/migration"
	"github.com/asterlaunch/launchpad/internal/storage"
	"github.com/asterlaunch/launchpad/internal/storage/postgres"
)

// Runner wires the launchpad together: event bus, market registry,
// synthetic walker, and the optional persistence layer. Run blocks
// until the context is cancelled or a termination signal arrives.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	bus        *events.Bus
	registry   *market.Registry
	walker     *market.Walker
	storage    storage.Storage
	shutdownCh chan os.Signal
}

// NewRunner builds the in-memory engine from config. Storage is not
// opened here; Run connects it so the dial honours the run context.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	threshold, err := decimal.NewFromString(cfg.GraduationThresholdUSD)
	if err != nil {
		return nil, fmt.Errorf("invalid graduation threshold: %w", err)
	}
	rate, err := decimal.NewFromString(cfg.NativeUSDRate)
	if err != nil {
		return nil, fmt.Errorf("invalid native rate: %w", err)
	}

	bus := events.NewBus(logger, cfg.EventBufferSize)

	registry, err := market.NewRegistry(market.Options{
		Fees: curve.FeeSchedule{
			TotalBps:     cfg.FeeTotalBps,
			LiquidityBps: cfg.FeeLiquidityBps,
			TreasuryBps:  cfg.FeeTreasuryBps,
		},
		Rate:                   market.FixedRate{Rate: rate},
		GraduationThresholdUSD: threshold,
		HistoryCapacity:        cfg.HistoryCapacity,
		LedgerCapacity:         cfg.LedgerCapacity,
		Bus:                    bus,
		Migrator:               migration.NewLogMigrator(logger),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	var walker *market.Walker
	if cfg.WalkEnabled {
		step, err := decimal.NewFromString(cfg.WalkStep)
		if err != nil {
			return nil, fmt.Errorf("invalid walk step: %w", err)
		}
		floor, err := decimal.NewFromString(cfg.WalkFloor)
		if err != nil {
			return nil, fmt.Errorf("invalid walk floor: %w", err)
		}
		walker = market.NewWalker(registry, market.WalkerConfig{
			Interval: time.Duration(cfg.WalkIntervalMS) * time.Millisecond,
			Step:     step,
			Floor:    floor,
		}, bus, logger)
	}

	return &Runner{
		logger:     logger,
		config:     cfg,
		bus:        bus,
		registry:   registry,
		walker:     walker,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Registry exposes the market registry for callers embedding the runner
// behind their own transport.
func (r *Runner) Registry() *market.Registry {
	return r.registry
}

// Bus exposes the event bus for additional subscribers.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	if r.config.PostgresURL != "" {
		st, err := postgres.NewStorage(runCtx, r.config.PostgresURL, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect storage: %w", err)
		}
		r.storage = st

		if err := st.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		restored, err := restoreMarkets(runCtx, st, r.registry, r.logger)
		if err != nil {
			return fmt.Errorf("failed to restore markets: %w", err)
		}
		if restored > 0 {
			r.logger.Info("Restored persisted markets", zap.Int("count", restored))
		}
	}

	if err := r.seedTokens(); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(runCtx)

	if r.walker != nil {
		g.Go(func() error {
			return r.walker.Run(gCtx)
		})
	}
	if r.storage != nil {
		interval := time.Duration(r.config.SnapshotIntervalMS) * time.Millisecond
		g.Go(func() error {
			return snapshotLoop(gCtx, interval, r.storage, r.registry, r.logger)
		})
	}

	r.logger.Info("Launchpad running",
		zap.Int("markets", len(r.registry.Tickers())),
		zap.Bool("walker", r.walker != nil),
		zap.Bool("persistence", r.storage != nil))

	if err := g.Wait(); err != nil && ctx.Err() == nil && runCtx.Err() == nil {
		return err
	}
	return nil
}

// seedTokens creates the configured starter markets. A ticker already
// present (typically restored from storage) is left untouched.
func (r *Runner) seedTokens() error {
	for _, seed := range r.config.SeedTokens {
		base, err := decimal.NewFromString(seed.BasePrice)
		if err != nil {
			return fmt.Errorf("seed %s: invalid base price: %w", seed.Ticker, err)
		}
		slope, err := decimal.NewFromString(seed.Slope)
		if err != nil {
			return fmt.Errorf("seed %s: invalid slope: %w", seed.Ticker, err)
		}

		_, err = r.registry.Create(seed.Ticker, seed.Name, curve.Params{
			BasePrice: base,
			Slope:     slope,
		}, seed.TotalSupply)
		switch {
		case err == nil:
			r.logger.Info("Seeded token market", zap.String("ticker", seed.Ticker))
		case errors.Is(err, market.ErrDuplicateTicker):
			r.logger.Debug("Seed token already present", zap.String("ticker", seed.Ticker))
		default:
			return fmt.Errorf("seed %s: %w", seed.Ticker, err)
		}
	}
	return nil
}

// Shutdown releases the bus and storage after Run returns.
func (r *Runner) Shutdown() {
	r.logger.Info("Launchpad shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.bus.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("Event bus shutdown incomplete", zap.Error(err))
	}
	if r.storage != nil {
		if err := r.storage.Close(); err != nil {
			r.logger.Warn("Failed to close storage", zap.Error(err))
		}
	}

	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}

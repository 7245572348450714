// Package migration defines the boundary to the liquidity-migration
// collaborator that lists a graduated token on an external venue. The
// engine invokes it exactly once per ticker; its outcome never rolls
// back a graduation.
package migration

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request carries the curve's final totals into the migration.
type Request struct {
	Ticker         string
	UnitsSold      int64
	UnitsRemaining int64
	ReserveNative  decimal.Decimal
}

// Migrator moves a graduated token's backing liquidity to an external
// trading venue. Implementations must be safe for concurrent calls on
// different tickers.
type Migrator interface {
	Migrate(req Request) error
}

// LogMigrator is the default Migrator: it records the hand-off and
// succeeds. The real DEX listing lives outside this engine.
type LogMigrator struct {
	logger *zap.Logger
}

// NewLogMigrator creates a LogMigrator.
func NewLogMigrator(logger *zap.Logger) *LogMigrator {
	return &LogMigrator{logger: logger.Named("migrator")}
}

// Migrate logs the migration payload.
func (m *LogMigrator) Migrate(req Request) error {
	m.logger.Info("Migrating liquidity to external venue",
		zap.String("ticker", req.Ticker),
		zap.Int64("units_sold", req.UnitsSold),
		zap.Int64("units_remaining", req.UnitsRemaining),
		zap.String("reserve_native", req.ReserveNative.String()))
	return nil
}

// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/asterlaunch/launchpad/internal/storage/models"
)

// Storage persists the reconstructable state of the launchpad: per-token
// market snapshots, the retained trade ledger, and the bounded price
// series. The engine runs fully in memory; storage is an optional
// collaborator flushed periodically and read once at startup.
type Storage interface {
	// Market snapshots (one row per ticker, overwritten on flush)
	SaveMarketSnapshot(ctx context.Context, snap *models.MarketSnapshot) error
	GetMarketSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error)
	ListMarketSnapshots(ctx context.Context) ([]*models.MarketSnapshot, error)

	// Trades (append-only; re-flushing retained trades is idempotent)
	SaveTrades(ctx context.Context, trades []*models.TradeRecord) error
	ListTrades(ctx context.Context, ticker string, limit int) ([]*models.TradeRecord, error)

	// Price history (replaced wholesale per ticker on flush)
	ReplacePricePoints(ctx context.Context, ticker string, points []*models.PricePointRecord) error
	ListPricePoints(ctx context.Context, ticker string) ([]*models.PricePointRecord, error)

	// Migrations
	RunMigrations() error

	Close() error
}

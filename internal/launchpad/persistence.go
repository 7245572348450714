// internal/launchpad/persistence.go
package launchpad

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asterlaunch/launchpad/internal/curve"
	"github.com/asterlaunch/launchpad/internal/market"
	"github.com/asterlaunch/launchpad/internal/storage"
	"github.com/asterlaunch/launchpad/internal/storage/models"
)

// snapshotToModel converts an in-memory market view to its persisted row.
func snapshotToModel(snap market.Snapshot) *models.MarketSnapshot {
	m := &models.MarketSnapshot{
		Ticker:                 snap.Ticker,
		Name:                   snap.Name,
		BasePrice:              snap.Curve.BasePrice,
		Slope:                  snap.Curve.Slope,
		TotalSupply:            snap.TotalSupply,
		UnitsSold:              snap.UnitsSold,
		ReserveNative:          snap.ReserveNative,
		LiquidityNative:        snap.LiquidityNative,
		TreasuryNative:         snap.TreasuryNative,
		GraduationThresholdUSD: snap.GraduationThresholdUSD,
		Graduated:              snap.Graduated,
		MarketCreatedAt:        snap.CreatedAt,
	}
	if !snap.GraduatedAt.IsZero() {
		t := snap.GraduatedAt
		m.GraduatedAt = &t
	}
	if !snap.LastTradeAt.IsZero() {
		t := snap.LastTradeAt
		m.LastTradeAt = &t
	}
	return m
}

func snapshotFromModel(m *models.MarketSnapshot) market.Snapshot {
	snap := market.Snapshot{
		Ticker: m.Ticker,
		Name:   m.Name,
		Curve: curve.Params{
			BasePrice: m.BasePrice,
			Slope:     m.Slope,
		},
		TotalSupply:            m.TotalSupply,
		UnitsSold:              m.UnitsSold,
		ReserveNative:          m.ReserveNative,
		LiquidityNative:        m.LiquidityNative,
		TreasuryNative:         m.TreasuryNative,
		GraduationThresholdUSD: m.GraduationThresholdUSD,
		Graduated:              m.Graduated,
		CreatedAt:              m.MarketCreatedAt,
	}
	if m.GraduatedAt != nil {
		snap.GraduatedAt = *m.GraduatedAt
	}
	if m.LastTradeAt != nil {
		snap.LastTradeAt = *m.LastTradeAt
	}
	return snap
}

func tradeToModel(t market.Trade) *models.TradeRecord {
	return &models.TradeRecord{
		TradeID:        t.ID,
		Ticker:         t.Ticker,
		Kind:           string(t.Kind),
		Units:          t.Units,
		NativeAmount:   t.NativeAmount,
		ExecutionPrice: t.ExecutionPrice,
		Fee:            t.Fee,
		Actor:          t.Actor,
		ExecutedAt:     t.Timestamp,
	}
}

func tradeFromModel(m *models.TradeRecord) market.Trade {
	return market.Trade{
		ID:             m.TradeID,
		Ticker:         m.Ticker,
		Kind:           market.TradeKind(m.Kind),
		Units:          m.Units,
		NativeAmount:   m.NativeAmount,
		ExecutionPrice: m.ExecutionPrice,
		Fee:            m.Fee,
		Actor:          m.Actor,
		Timestamp:      m.ExecutedAt,
	}
}

func pricePointToModel(ticker string, p market.PricePoint) *models.PricePointRecord {
	return &models.PricePointRecord{
		Ticker:    ticker,
		SampledAt: p.Timestamp,
		Value:     p.Value,
	}
}

func pricePointFromModel(m *models.PricePointRecord) market.PricePoint {
	return market.PricePoint{
		Timestamp: m.SampledAt,
		Value:     m.Value,
	}
}

// restoreMarkets rebuilds every persisted market into the registry. A row
// that fails to restore is logged and skipped so one bad record cannot
// keep the platform down.
func restoreMarkets(ctx context.Context, st storage.Storage, reg *market.Registry, logger *zap.Logger) (int, error) {
	rows, err := st.ListMarketSnapshots(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, row := range rows {
		tradeRows, err := st.ListTrades(ctx, row.Ticker, 0)
		if err != nil {
			return restored, err
		}
		pointRows, err := st.ListPricePoints(ctx, row.Ticker)
		if err != nil {
			return restored, err
		}

		trades := make([]market.Trade, 0, len(tradeRows))
		for _, t := range tradeRows {
			trades = append(trades, tradeFromModel(t))
		}
		points := make([]market.PricePoint, 0, len(pointRows))
		for _, p := range pointRows {
			points = append(points, pricePointFromModel(p))
		}

		if err := reg.Restore(snapshotFromModel(row), trades, points); err != nil {
			logger.Warn("Skipping unrestorable market",
				zap.String("ticker", row.Ticker),
				zap.Error(err))
			continue
		}
		restored++
	}
	return restored, nil
}

// flushMarkets writes the current state of every market to storage.
func flushMarkets(ctx context.Context, st storage.Storage, reg *market.Registry, logger *zap.Logger) {
	for _, snap := range reg.List() {
		if err := st.SaveMarketSnapshot(ctx, snapshotToModel(snap)); err != nil {
			logger.Error("Failed to persist market snapshot",
				zap.String("ticker", snap.Ticker),
				zap.Error(err))
			continue
		}

		trades, err := reg.LedgerTrades(snap.Ticker)
		if err == nil && len(trades) > 0 {
			rows := make([]*models.TradeRecord, 0, len(trades))
			for _, t := range trades {
				rows = append(rows, tradeToModel(t))
			}
			if err := st.SaveTrades(ctx, rows); err != nil {
				logger.Error("Failed to persist trades",
					zap.String("ticker", snap.Ticker),
					zap.Error(err))
			}
		}

		points, err := reg.History(snap.Ticker)
		if err == nil && len(points) > 0 {
			rows := make([]*models.PricePointRecord, 0, len(points))
			for _, p := range points {
				rows = append(rows, pricePointToModel(snap.Ticker, p))
			}
			if err := st.ReplacePricePoints(ctx, snap.Ticker, rows); err != nil {
				logger.Error("Failed to persist price history",
					zap.String("ticker", snap.Ticker),
					zap.Error(err))
			}
		}
	}
}

// snapshotLoop flushes periodically until the context is cancelled, with
// one final flush on the way out.
func snapshotLoop(ctx context.Context, interval time.Duration, st storage.Storage, reg *market.Registry, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flushMarkets(flushCtx, st, reg, logger)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			flushMarkets(ctx, st, reg, logger)
		}
	}
}

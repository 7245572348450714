// internal/storage/models/market.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the persisted state of one token market. One row
// per ticker, overwritten on every flush; together with the retained
// trades and price points it is sufficient to rebuild the market after
// a restart.
type MarketSnapshot struct {
	BaseModel
	Ticker      string `gorm:"uniqueIndex;not null;type:varchar(5)"`
	Name        string `gorm:"not null;type:varchar(100)"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Slope       decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	TotalSupply int64           `gorm:"not null"`
	UnitsSold   int64           `gorm:"not null"`

	ReserveNative   decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	LiquidityNative decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	TreasuryNative  decimal.Decimal `gorm:"type:decimal(38,18);not null"`

	GraduationThresholdUSD decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Graduated              bool            `gorm:"not null;default:false"`
	GraduatedAt            *time.Time

	MarketCreatedAt time.Time  `gorm:"not null"`
	LastTradeAt     *time.Time `gorm:"index"`
}

// TradeRecord is one settled trade. Append-only: rows are inserted once
// and never updated.
type TradeRecord struct {
	BaseModel
	TradeID        string          `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Ticker         string          `gorm:"index;not null;type:varchar(5)"`
	Kind           string          `gorm:"not null;type:varchar(4)"`
	Units          int64           `gorm:"not null"`
	NativeAmount   decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	ExecutionPrice decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Fee            decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Actor          string          `gorm:"type:varchar(64)"`
	ExecutedAt     time.Time       `gorm:"index;not null"`
}

// PricePointRecord is one chart sample of the bounded history series.
// The series is replaced wholesale on flush, matching the in-memory
// ring buffer.
type PricePointRecord struct {
	BaseModel
	Ticker    string          `gorm:"index;not null;type:varchar(5)"`
	SampledAt time.Time       `gorm:"index;not null"`
	Value     decimal.Decimal `gorm:"type:decimal(38,18);not null"`
}

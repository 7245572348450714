// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Market lifecycle events
	MarketCreated  EventType = "market.created"
	TokenGraduated EventType = "token.graduated"

	// Trading events
	TradeExecuted EventType = "trade.executed"
	PriceUpdated  EventType = "price.updated"

	// Liquidity migration events
	MigrationCompleted EventType = "migration.completed"
	MigrationFailed    EventType = "migration.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MarketCreatedEvent is emitted when a new token market is registered.
type MarketCreatedEvent struct {
	BaseEvent
	Ticker      string
	Name        string
	TotalSupply int64
}

// TradeExecutedEvent is emitted after a buy or sell settles. Monetary
// fields are decimal strings so subscribers never see float drift.
type TradeExecutedEvent struct {
	BaseEvent
	TradeID      string
	Ticker       string
	Kind         string
	Units        int64
	NativeAmount string
	Fee          string
	Actor        string
}

// PriceUpdatedEvent is emitted for every new chart sample, real or
// synthetic.
type PriceUpdatedEvent struct {
	BaseEvent
	Ticker    string
	Price     string
	Synthetic bool
}

// TokenGraduatedEvent is emitted exactly once per ticker, when the
// market cap crosses the graduation threshold.
type TokenGraduatedEvent struct {
	BaseEvent
	Ticker       string
	MarketCapUSD string
	UnitsSold    int64
}

// MigrationCompletedEvent is emitted when the liquidity-migration
// collaborator accepts a graduated token.
type MigrationCompletedEvent struct {
	BaseEvent
	Ticker string
}

// MigrationFailedEvent reports a failed migration. Graduation stands
// regardless; nothing retries against the curve.
type MigrationFailedEvent struct {
	BaseEvent
	Ticker string
	Reason string
}

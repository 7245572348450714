// internal/events/bus_test.go
package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []Event
	err      error
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.received...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestBusDeliversToSubscribedType(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer bus.Shutdown(context.Background())

	handler := &recordingHandler{}
	bus.Subscribe(TradeExecuted, handler)

	require.NoError(t, bus.Publish(TradeExecutedEvent{
		BaseEvent: NewBaseEvent(TradeExecuted),
		TradeID:   "t-1",
		Ticker:    "PEPA",
		Kind:      "buy",
		Units:     100,
	}))
	// Different type, must not reach the handler.
	require.NoError(t, bus.Publish(MarketCreatedEvent{
		BaseEvent: NewBaseEvent(MarketCreated),
		Ticker:    "PEPA",
	}))

	waitFor(t, func() bool { return len(handler.events()) == 1 })

	got, ok := handler.events()[0].(TradeExecutedEvent)
	require.True(t, ok)
	assert.Equal(t, "t-1", got.TradeID)
	assert.Equal(t, TradeExecuted, got.Type())
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer bus.Shutdown(context.Background())

	handler := &recordingHandler{}
	sub := bus.Subscribe(PriceUpdated, handler)

	require.NoError(t, bus.Publish(PriceUpdatedEvent{
		BaseEvent: NewBaseEvent(PriceUpdated),
		Ticker:    "MEOW",
		Price:     "0.0001",
	}))
	waitFor(t, func() bool { return len(handler.events()) == 1 })

	sub.Unsubscribe()

	require.NoError(t, bus.Publish(PriceUpdatedEvent{
		BaseEvent: NewBaseEvent(PriceUpdated),
		Ticker:    "MEOW",
		Price:     "0.0002",
	}))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, handler.events(), 1)
}

func TestBusPublishSyncCollectsHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer bus.Shutdown(context.Background())

	failing := &recordingHandler{err: errors.New("subscriber broke")}
	healthy := &recordingHandler{}
	bus.Subscribe(TokenGraduated, failing)
	bus.Subscribe(TokenGraduated, healthy)

	err := bus.PublishSync(context.Background(), TokenGraduatedEvent{
		BaseEvent: NewBaseEvent(TokenGraduated),
		Ticker:    "ASTER",
	})
	require.Error(t, err)

	// The error from one handler never blocks the others.
	assert.Len(t, failing.events(), 1)
	assert.Len(t, healthy.events(), 1)
}

func TestBusPublishAfterShutdownFails(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	require.NoError(t, bus.Shutdown(context.Background()))

	err := bus.Publish(MarketCreatedEvent{BaseEvent: NewBaseEvent(MarketCreated)})
	assert.Error(t, err)
}

func TestBusSubscribeFunc(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer bus.Shutdown(context.Background())

	var mu sync.Mutex
	var tickers []string
	bus.SubscribeFunc(MigrationCompleted, func(_ context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		tickers = append(tickers, event.(MigrationCompletedEvent).Ticker)
		return nil
	})

	require.NoError(t, bus.Publish(MigrationCompletedEvent{
		BaseEvent: NewBaseEvent(MigrationCompleted),
		Ticker:    "DGKNG",
	}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(tickers) == 1
	})
	mu.Lock()
	assert.Equal(t, []string{"DGKNG"}, tickers)
	mu.Unlock()
}

package market

import "errors"

// Validation errors returned by the registry. Every failure is detected
// before any state is mutated and returned synchronously to the caller;
// the core never retries on its own.
var (
	// ErrInvalidTicker is returned when a ticker is empty, too long, or
	// contains characters outside [A-Z0-9].
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrDuplicateTicker is returned when creating a token whose ticker
	// already exists.
	ErrDuplicateTicker = errors.New("ticker already exists")

	// ErrUnknownTicker is returned for trades or queries against a
	// ticker that was never created.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrCurveFrozen is returned for buy/sell attempts after the token
	// has graduated; post-graduation trading happens off the curve.
	ErrCurveFrozen = errors.New("bonding curve is frozen after graduation")

	// ErrInsufficientUnits is returned when a sell exceeds the units
	// sold so far.
	ErrInsufficientUnits = errors.New("sell size exceeds units sold")

	// ErrSupplyExceeded is returned when a buy would push units sold
	// past the total supply.
	ErrSupplyExceeded = errors.New("buy size exceeds remaining supply")

	// ErrInvalidAmount is returned for zero, negative, or unaffordable
	// trade sizes.
	ErrInvalidAmount = errors.New("invalid trade amount")
)

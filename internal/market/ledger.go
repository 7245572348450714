package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// ledger is the append-only per-ticker trade record. Recording is the
// sole mutator; entries are never updated or removed, only evicted
// oldest-first once the retention cap is reached. Callers synchronize
// through the owning registry entry's lock.
type ledger struct {
	trades   []Trade
	maxKept  int
	appended int64 // total settled trades, survives eviction
}

func newLedger(maxKept int) *ledger {
	if maxKept <= 0 {
		maxKept = DefaultLedgerCapacity
	}
	return &ledger{
		trades:  make([]Trade, 0, maxKept),
		maxKept: maxKept,
	}
}

// record appends a settled trade in settlement order.
func (l *ledger) record(t Trade) {
	if len(l.trades) >= l.maxKept {
		l.trades = l.trades[1:]
	}
	l.trades = append(l.trades, t)
	l.appended++
}

// recent returns up to n trades, newest first.
func (l *ledger) recent(n int) []Trade {
	if n <= 0 || n > len(l.trades) {
		n = len(l.trades)
	}
	out := make([]Trade, n)
	for i := 0; i < n; i++ {
		out[i] = l.trades[len(l.trades)-1-i]
	}
	return out
}

// volumeSince sums gross native volume for trades strictly after cutoff.
func (l *ledger) volumeSince(cutoff time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := len(l.trades) - 1; i >= 0; i-- {
		if !l.trades[i].Timestamp.After(cutoff) {
			break
		}
		total = total.Add(l.trades[i].NativeAmount)
	}
	return total
}

// holderDelta estimates the net holder change over retained trades:
// buys add a holder, sells that exit a position remove one. It is a
// display statistic, not an authoritative count.
func (l *ledger) holderDelta() int {
	delta := 0
	for _, t := range l.trades {
		switch t.Kind {
		case TradeBuy:
			delta++
		case TradeSell:
			delta--
		}
	}
	return delta
}

func (l *ledger) len() int { return len(l.trades) }

// all returns the retained trades in settlement order.
func (l *ledger) all() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

package market

import "time"

// history is a fixed-capacity ring buffer of price samples. Both real
// settlements and the synthetic walker append through the owning
// registry entry's lock, so no internal locking is needed.
type history struct {
	points []PricePoint
	head   int
	filled bool
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &history{points: make([]PricePoint, capacity)}
}

// append stores a sample, evicting the oldest once capacity is reached.
func (h *history) append(p PricePoint) {
	h.points[h.head] = p
	h.head++
	if h.head == len(h.points) {
		h.head = 0
		h.filled = true
	}
}

func (h *history) size() int {
	if h.filled {
		return len(h.points)
	}
	return h.head
}

// last returns the most recent sample, if any.
func (h *history) last() (PricePoint, bool) {
	if h.size() == 0 {
		return PricePoint{}, false
	}
	idx := h.head - 1
	if idx < 0 {
		idx = len(h.points) - 1
	}
	return h.points[idx], true
}

// ordered returns a copy of the samples from oldest to newest.
func (h *history) ordered() []PricePoint {
	n := h.size()
	out := make([]PricePoint, n)
	if !h.filled {
		copy(out, h.points[:h.head])
		return out
	}
	copy(out, h.points[h.head:])
	copy(out[len(h.points)-h.head:], h.points[:h.head])
	return out
}

// changeSince returns the percent change between the oldest sample after
// cutoff and the newest one. Zero when there is no usable baseline.
func (h *history) changeSince(cutoff time.Time) (float64, bool) {
	pts := h.ordered()
	for _, p := range pts {
		if p.Timestamp.After(cutoff) && p.Value.IsPositive() {
			latest := pts[len(pts)-1].Value
			change, _ := latest.Sub(p.Value).Div(p.Value).Mul(hundred).Float64()
			return change, true
		}
	}
	return 0, false
}

package pricefeed

import "sync"

// Sample is a live tick: TimeT in epoch seconds, Price the last close.
type Sample struct {
	TimeT float64 `json:"time_t"`
	Price float64 `json:"price"`
}

// Valid reports whether the sample can anchor a side classification.
func (s Sample) Valid() bool {
	return s.Price > 0 && s.TimeT > 0
}

// Tracker holds exactly one sample. Both chart instances write it,
// last-write-wins, no history and no smoothing.
type Tracker struct {
	mu     sync.Mutex
	sample Sample
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Update replaces the current sample.
func (t *Tracker) Update(s Sample) {
	t.mu.Lock()
	t.sample = s
	t.mu.Unlock()
}

// Latest returns the current sample; the zero Sample before any tick arrived.
func (t *Tracker) Latest() Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sample
}

// Reset clears the sample, used when the active symbol changes so a stale
// price never classifies the next symbol's lines.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.sample = Sample{}
	t.mu.Unlock()
}

package cursor

import "time"

// Watermark tracks the newest timestamp seen during a fetch
// It starts at the resolved lower bound and only moves forward
type Watermark struct {
	start time.Time
	at    time.Time
	seen  bool
}

// NewWatermark starts a watermark at lower
func NewWatermark(lower time.Time) *Watermark { return &Watermark{start: lower, at: lower} }

// Observe folds t into the watermark
// timestamps before the starting bound are stale and leave it untouched
func (w *Watermark) Observe(t time.Time) {
	if t.Before(w.start) {
		return
	}
	w.seen = true
	if t.After(w.at) {
		w.at = t
	}
}

// Value returns the newest timestamp folded in so far
func (w *Watermark) Value() time.Time { return w.at }

// Seen reports whether any timestamp was observed
func (w *Watermark) Seen() bool { return w.seen }

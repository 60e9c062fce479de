package flash

// Window is a time-bounded sliding window of event timestamps, ordered by
// time. After every update, all retained entries satisfy
// now - timestamp <= span, so Count is the rolling event rate over the span.
type Window struct {
	spanMs float64
	stamps []float64
}

// NewWindow returns a window retaining events for spanMs milliseconds.
func NewWindow(spanMs float64) *Window {
	return &Window{spanMs: spanMs}
}

// Add appends an event timestamp and prunes entries that have aged out
// relative to it. Timestamps are expected to be non-decreasing.
func (w *Window) Add(timestampMs float64) {
	w.stamps = append(w.stamps, timestampMs)
	w.Prune(timestampMs)
}

// Prune drops entries older than nowMs - span.
func (w *Window) Prune(nowMs float64) {
	cutoff := nowMs - w.spanMs
	i := 0
	for i < len(w.stamps) && w.stamps[i] < cutoff {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Count returns the number of events currently inside the window.
func (w *Window) Count() int {
	return len(w.stamps)
}

// Reset discards all retained events.
func (w *Window) Reset() {
	w.stamps = w.stamps[:0]
}

// Timestamps returns the retained event timestamps, oldest first. The
// returned slice is owned by the window and valid until the next update.
func (w *Window) Timestamps() []float64 {
	return w.stamps
}

package session

import "strobeguard/internal/flash"

// Warning is the one-shot event emitted when a source's flash rate crosses
// the frequency threshold. It is delivered at most once per latch cycle.
type Warning struct {
	ID                  string     `json:"id"`
	SourceID            string     `json:"source_id"`
	Kind                flash.Kind `json:"-"`
	FlashesInWindow     int        `json:"flashes_in_window"`
	MaxFlashesPerWindow int        `json:"max_flashes_per_window"`
	TotalFlashCount     int        `json:"total_flash_count"`
	// PositionMs is the capture timestamp of the frame that tripped the
	// threshold.
	PositionMs float64 `json:"position_ms"`
}

// Sink receives warnings from a session. A sink error is logged by the
// session but never prevents it from entering or remaining in the warned
// phase.
type Sink interface {
	OnWarning(w *Warning) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(w *Warning) error

// OnWarning implements Sink.
func (f SinkFunc) OnWarning(w *Warning) error {
	return f(w)
}

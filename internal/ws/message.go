package ws

import (
	"time"

	"strobeguard/internal/session"
)

// WarningMessage is the JSON payload broadcast when a source trips the
// flash threshold.
type WarningMessage struct {
	Type                string    `json:"type"` // "flash_warning"
	WarningID           string    `json:"warning_id"`
	SourceID            string    `json:"source_id"`
	Kind                string    `json:"kind"` // "general" or "red"
	FlashesInWindow     int       `json:"flashes_in_window"`
	MaxFlashesPerWindow int       `json:"max_flashes_per_window"`
	TotalFlashCount     int       `json:"total_flash_count"`
	PositionMs          float64   `json:"position_ms"`
	IssuedAt            time.Time `json:"issued_at"`
}

// NewWarningMessage converts an engine warning into its broadcast form.
func NewWarningMessage(w *session.Warning) *WarningMessage {
	return &WarningMessage{
		Type:                "flash_warning",
		WarningID:           w.ID,
		SourceID:            w.SourceID,
		Kind:                w.Kind.String(),
		FlashesInWindow:     w.FlashesInWindow,
		MaxFlashesPerWindow: w.MaxFlashesPerWindow,
		TotalFlashCount:     w.TotalFlashCount,
		PositionMs:          w.PositionMs,
		IssuedAt:            time.Now().UTC(),
	}
}

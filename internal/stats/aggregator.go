// Package stats aggregates detection outcomes into persistent counters.
package stats

import (
	"log/slog"
	"sync"
	"time"

	"strobeguard/internal/database"
	"strobeguard/internal/session"
)

// Aggregator records issued warnings and maintains the lifetime counters
// (sources monitored, warnings issued, flashes detected). It implements
// notify.WarningHandler so it can be subscribed directly to the warning bus.
type Aggregator struct {
	db     *database.Database
	logger *slog.Logger

	mu sync.Mutex
	// lastTotal tracks, per source, the cumulative flash total carried by
	// the most recent warning. A warning's TotalFlashCount keeps growing
	// across dismiss cycles, so only the growth since the previous warning
	// is new to the lifetime counter.
	lastTotal map[string]int
}

// NewAggregator creates an aggregator persisting into db. A nil logger
// falls back to slog.Default.
func NewAggregator(db *database.Database, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		db:        db,
		logger:    logger,
		lastTotal: make(map[string]int),
	}
}

// HandleWarning persists a warning and bumps the lifetime counters. Storage
// failures are logged; warning delivery to other subscribers is unaffected.
func (a *Aggregator) HandleWarning(w *session.Warning) {
	a.mu.Lock()
	delta := w.TotalFlashCount - a.lastTotal[w.SourceID]
	if delta < 0 {
		// Totals went backwards: the session was restarted and began
		// counting from zero again.
		delta = w.TotalFlashCount
	}
	a.lastTotal[w.SourceID] = w.TotalFlashCount
	a.mu.Unlock()

	rec := &database.WarningRecord{
		ID:                  w.ID,
		SourceID:            w.SourceID,
		Kind:                w.Kind.String(),
		FlashesInWindow:     w.FlashesInWindow,
		MaxFlashesPerWindow: w.MaxFlashesPerWindow,
		TotalFlashCount:     w.TotalFlashCount,
		PositionMs:          w.PositionMs,
		IssuedAt:            time.Now().UTC(),
	}
	if err := a.db.SaveWarning(rec); err != nil {
		a.logger.Error("failed to persist warning", "error", err, "warning_id", w.ID)
	}
	if err := a.db.IncrementCounter(database.CounterWarningsIssued, 1); err != nil {
		a.logger.Error("failed to increment warning counter", "error", err)
	}
	if err := a.db.IncrementCounter(database.CounterFlashesDetected, int64(delta)); err != nil {
		a.logger.Error("failed to increment flash counter", "error", err)
	}
}

// SourceMonitored registers a newly monitored source and bumps the
// sources-monitored counter.
func (a *Aggregator) SourceMonitored(sourceID, label string) {
	// A fresh attach starts a fresh session whose totals begin at zero.
	a.mu.Lock()
	delete(a.lastTotal, sourceID)
	a.mu.Unlock()

	rec := &database.SourceRecord{
		ID:        sourceID,
		Label:     label,
		Status:    "monitoring",
		CreatedAt: time.Now().UTC(),
	}
	if err := a.db.SaveSource(rec); err != nil {
		a.logger.Error("failed to persist source", "error", err, "source_id", sourceID)
		return
	}
	if err := a.db.IncrementCounter(database.CounterSourcesMonitored, 1); err != nil {
		a.logger.Error("failed to increment source counter", "error", err)
	}
}

// SourceStopped marks a source as no longer monitored.
func (a *Aggregator) SourceStopped(sourceID string) {
	if err := a.db.UpdateSourceStatus(sourceID, "stopped"); err != nil {
		a.logger.Error("failed to update source status", "error", err, "source_id", sourceID)
	}
}

// Package monitor owns the mapping from video sources to their detection
// sessions. Each source gets an exclusively-owned session inserted on
// discovery and removed on teardown; sessions share no mutable state.
package monitor

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"strobeguard/internal/analysis"
	"strobeguard/internal/config"
	"strobeguard/internal/notify"
	"strobeguard/internal/session"
	"strobeguard/internal/stats"
)

// Monitor manages detection sessions for any number of independent sources.
// The map itself is safe for concurrent use; frames for a single source must
// still arrive serially, per the session contract.
type Monitor struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	global   *config.Global
	bus      *notify.WarningBus
	stats    *stats.Aggregator
	logger   *slog.Logger
}

// New creates a monitor. Warnings from every session are published on bus.
// stats may be nil when persistence is not wired (tests, embedding).
func New(global *config.Global, bus *notify.WarningBus, st *stats.Aggregator, logger *slog.Logger) *Monitor {
	if global == nil {
		global = config.DefaultGlobal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		sessions: make(map[string]*session.Session),
		global:   global,
		bus:      bus,
		stats:    st,
		logger:   logger,
	}
}

// Attach creates and starts a session for a newly discovered source.
// Returns an error if the source is already monitored.
func (m *Monitor) Attach(sourceID, label string, overrides *config.SourceOverrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sourceID]; exists {
		return fmt.Errorf("source %s already monitored", sourceID)
	}

	effective := overrides.MergeWithGlobal(m.global)
	sink := session.SinkFunc(func(w *session.Warning) error {
		m.bus.Publish(w)
		return nil
	})
	sess, err := session.New(sourceID, effective.SessionConfig(), sink, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create session for %s: %w", sourceID, err)
	}
	sess.Start()
	m.sessions[sourceID] = sess

	if m.stats != nil {
		m.stats.SourceMonitored(sourceID, label)
	}
	m.logger.Info("source attached", "source_id", sourceID, "label", label)
	return nil
}

// Detach stops and removes the session for a source.
func (m *Monitor) Detach(sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sourceID]
	if !exists {
		return fmt.Errorf("source %s not monitored", sourceID)
	}
	sess.Stop()
	delete(m.sessions, sourceID)

	if m.stats != nil {
		m.stats.SourceStopped(sourceID)
	}
	m.logger.Info("source detached", "source_id", sourceID)
	return nil
}

// Feed forwards one frame to the source's session.
func (m *Monitor) Feed(sourceID string, f *analysis.Frame) error {
	sess, err := m.get(sourceID)
	if err != nil {
		return err
	}
	sess.OnFrame(f)
	return nil
}

// Reset resets a source's session, e.g. after a seek.
func (m *Monitor) Reset(sourceID string) error {
	sess, err := m.get(sourceID)
	if err != nil {
		return err
	}
	sess.Reset()
	return nil
}

// Dismiss clears a source's warning latch and resumes detection.
func (m *Monitor) Dismiss(sourceID string) error {
	sess, err := m.get(sourceID)
	if err != nil {
		return err
	}
	sess.Dismiss()
	return nil
}

// Phase returns the lifecycle phase of a source's session.
func (m *Monitor) Phase(sourceID string) (session.Phase, error) {
	sess, err := m.get(sourceID)
	if err != nil {
		return session.PhaseIdle, err
	}
	return sess.Phase(), nil
}

// Sources returns the monitored source IDs, sorted.
func (m *Monitor) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetGlobal replaces the global settings used for sessions attached from
// now on. Existing sessions keep the settings they were created with.
func (m *Monitor) SetGlobal(global *config.Global) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = global
}

// Global returns the current global settings.
func (m *Monitor) Global() *config.Global {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.global
}

// StopAll stops every session and empties the monitor.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sess := range m.sessions {
		sess.Stop()
		delete(m.sessions, id)
		if m.stats != nil {
			m.stats.SourceStopped(id)
		}
	}
}

func (m *Monitor) get(sourceID string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sourceID]
	if !exists {
		return nil, fmt.Errorf("source %s not monitored", sourceID)
	}
	return sess, nil
}

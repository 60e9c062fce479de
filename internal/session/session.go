// Package session drives flash detection for a single video source. A
// Session owns all classifier state for its source, applies the warmup and
// frame-stride policies, and latches a one-shot warning when the flash rate
// crosses the frequency threshold.
//
// Sessions are single-threaded by contract: OnFrame must not be called
// concurrently on the same instance. Independent sources get independent
// sessions sharing no state.
package session

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"strobeguard/internal/analysis"
	"strobeguard/internal/flash"
)

// Phase is the lifecycle state of a session.
type Phase int

const (
	// PhaseIdle - not started or stopped; frames are ignored.
	PhaseIdle Phase = iota
	// PhaseWarmup - analyzing frames to seed the comparison baseline; no
	// classification happens yet.
	PhaseWarmup
	// PhaseActive - classifying every eligible frame pair.
	PhaseActive
	// PhaseWarned - warning latched; frames are ignored until an explicit
	// dismiss or restart.
	PhaseWarned
)

// String returns a string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWarmup:
		return "warmup"
	case PhaseActive:
		return "active"
	case PhaseWarned:
		return "warned"
	default:
		return "unknown"
	}
}

// Session policy defaults.
const (
	DefaultFlashFrequencyThreshold = 3
	DefaultWarmupFrames            = 10
	DefaultFrameStride             = 3
)

// Config holds the per-session detection policy.
type Config struct {
	// Flash holds the classification thresholds.
	Flash flash.Config
	// FlashFrequencyThreshold is the window event count that trips a
	// warning.
	FlashFrequencyThreshold int
	// WarmupFrames is the number of analyzed frames consumed before
	// classification begins.
	WarmupFrames int
	// FrameStride admits every Nth OnFrame call; the rest return
	// immediately. Skipped frames are skipped for good, preserving
	// wall-clock timing.
	FrameStride int
	// MaxAnalysisWidth/MaxAnalysisHeight bound the analysis resolution.
	MaxAnalysisWidth  int
	MaxAnalysisHeight int
	// PixelSampleStride samples every Nth pixel of the analysis buffer.
	PixelSampleStride int
}

// DefaultConfig returns the default session policy.
func DefaultConfig() Config {
	return Config{
		Flash:                   flash.DefaultConfig(),
		FlashFrequencyThreshold: DefaultFlashFrequencyThreshold,
		WarmupFrames:            DefaultWarmupFrames,
		FrameStride:             DefaultFrameStride,
		MaxAnalysisWidth:        analysis.DefaultMaxWidth,
		MaxAnalysisHeight:       analysis.DefaultMaxHeight,
		PixelSampleStride:       analysis.DefaultSampleStride,
	}
}

// Validate checks the policy for usable ranges.
func (c Config) Validate() error {
	if err := c.Flash.Validate(); err != nil {
		return err
	}
	if c.FlashFrequencyThreshold < 1 {
		return fmt.Errorf("flash frequency threshold must be at least 1, got %d", c.FlashFrequencyThreshold)
	}
	if c.WarmupFrames < 0 {
		return fmt.Errorf("warmup frames must not be negative, got %d", c.WarmupFrames)
	}
	if c.FrameStride < 1 {
		return fmt.Errorf("frame stride must be at least 1, got %d", c.FrameStride)
	}
	return nil
}

// Session is the per-source detection state machine. Created in PhaseIdle;
// call Start before feeding frames.
type Session struct {
	sourceID   string
	cfg        Config
	extractor  *analysis.Extractor
	classifier *flash.Classifier
	sink       Sink
	logger     *slog.Logger

	phase               Phase
	prevMetrics         *analysis.FrameMetrics
	callCount           int
	analyzedFrames      int
	totalFlashCount     int
	maxFlashesPerWindow int
	generalWindow       *flash.Window
	redWindow           *flash.Window
}

// New creates a session for the given source. The sink receives the warning
// when the session latches; a nil logger falls back to slog.Default.
func New(sourceID string, cfg Config, sink Sink, logger *slog.Logger) (*Session, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id required")
	}
	if sink == nil {
		return nil, fmt.Errorf("warning sink required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		sourceID:      sourceID,
		cfg:           cfg,
		extractor:     analysis.NewExtractor(cfg.MaxAnalysisWidth, cfg.MaxAnalysisHeight, cfg.PixelSampleStride),
		classifier:    flash.NewClassifier(cfg.Flash),
		sink:          sink,
		logger:        logger.With("source_id", sourceID),
		phase:         PhaseIdle,
		generalWindow: flash.NewWindow(cfg.Flash.WindowMs),
		redWindow:     flash.NewWindow(cfg.Flash.WindowMs),
	}, nil
}

// Start resets all state and enters the warmup phase. Valid from any phase,
// including re-arming after a warning.
func (s *Session) Start() {
	s.clearState()
	s.totalFlashCount = 0
	s.maxFlashesPerWindow = 0
	s.phase = PhaseWarmup
	s.logger.Debug("detection session started")
}

// Stop idles the session. Subsequent OnFrame calls are no-ops until Start.
func (s *Session) Stop() {
	s.phase = PhaseIdle
	s.logger.Debug("detection session stopped")
}

// Reset clears the comparison baseline, both windows, and the analyzed frame
// count, returning an active or warming-up session to warmup. A warned
// session stays warned; use Dismiss to clear the latch. Callers must Reset
// after a seek, since the timestamp discontinuity invalidates the
// previous-frame comparison. Reset is idempotent and safe to call from
// within the warning sink.
func (s *Session) Reset() {
	s.clearState()
	if s.phase == PhaseActive || s.phase == PhaseWarmup {
		s.phase = PhaseWarmup
	}
	s.logger.Debug("detection session reset", "phase", s.phase)
}

// Dismiss clears the warning latch ("continue anyway") and returns the
// session to warmup. In the idle phase it only clears accumulated state.
func (s *Session) Dismiss() {
	s.clearState()
	if s.phase != PhaseIdle {
		s.phase = PhaseWarmup
	}
	s.logger.Debug("warning dismissed", "phase", s.phase)
}

func (s *Session) clearState() {
	s.prevMetrics = nil
	s.callCount = 0
	s.analyzedFrames = 0
	s.generalWindow.Reset()
	s.redWindow.Reset()
}

// OnFrame feeds one frame to the session. Only every FrameStride-th call
// proceeds to analysis; idle and warned sessions ignore frames entirely. A
// malformed frame or a fault during analysis never terminates the session.
func (s *Session) OnFrame(f *analysis.Frame) {
	s.callCount++
	if (s.callCount-1)%s.cfg.FrameStride != 0 {
		return
	}
	if s.phase == PhaseIdle || s.phase == PhaseWarned {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("frame analysis failed, skipping frame", "panic", r)
		}
	}()
	s.analyze(f)
}

func (s *Session) analyze(f *analysis.Frame) {
	metrics := s.extractor.Extract(f)
	s.analyzedFrames++

	if s.phase == PhaseWarmup {
		s.prevMetrics = &metrics
		if s.analyzedFrames > s.cfg.WarmupFrames {
			s.phase = PhaseActive
			s.logger.Debug("warmup complete", "analyzed_frames", s.analyzedFrames)
		}
		return
	}

	if s.prevMetrics == nil {
		s.prevMetrics = &metrics
		return
	}

	res := s.classifier.Classify(*s.prevMetrics, metrics, s.generalWindow, s.redWindow)
	// Suppressed or non-qualifying frames still become the comparison
	// baseline for the next call.
	s.prevMetrics = &metrics

	if res.IsGeneralEvent {
		s.totalFlashCount++
	}
	if res.IsRedEvent {
		s.totalFlashCount++
	}
	if res.GeneralWindowCount > s.maxFlashesPerWindow {
		s.maxFlashesPerWindow = res.GeneralWindowCount
	}

	general := res.GeneralWindowCount >= s.cfg.FlashFrequencyThreshold
	red := res.RedWindowCount >= s.cfg.FlashFrequencyThreshold
	if !general && !red {
		return
	}

	// General takes priority when both thresholds trip on the same frame.
	warning := &Warning{
		ID:                  uuid.NewString(),
		SourceID:            s.sourceID,
		Kind:                flash.KindGeneral,
		FlashesInWindow:     res.GeneralWindowCount,
		MaxFlashesPerWindow: s.maxFlashesPerWindow,
		TotalFlashCount:     s.totalFlashCount,
		PositionMs:          metrics.TimestampMs,
	}
	if !general {
		warning.Kind = flash.KindRed
		warning.FlashesInWindow = res.RedWindowCount
	}

	// Latch before delivery so a sink that synchronously resets or stops
	// the session observes consistent state.
	s.phase = PhaseWarned
	s.logger.Info("flash warning latched",
		"kind", warning.Kind.String(),
		"flashes_in_window", warning.FlashesInWindow,
		"position_ms", warning.PositionMs)
	if err := s.sink.OnWarning(warning); err != nil {
		s.logger.Error("warning sink failed", "error", err, "warning_id", warning.ID)
	}
}

// Phase returns the session's current lifecycle phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// SourceID returns the identifier of the monitored source.
func (s *Session) SourceID() string {
	return s.sourceID
}

// WarningActive reports whether the warning latch is set.
func (s *Session) WarningActive() bool {
	return s.phase == PhaseWarned
}

// AnalyzedFrames returns the number of frames that passed the stride filter
// since the last Start or Reset.
func (s *Session) AnalyzedFrames() int {
	return s.analyzedFrames
}

// TotalFlashCount returns the number of flash events recorded since Start.
func (s *Session) TotalFlashCount() int {
	return s.totalFlashCount
}

// MaxFlashesPerWindow returns the high-water mark of the general window
// since Start.
func (s *Session) MaxFlashesPerWindow() int {
	return s.maxFlashesPerWindow
}

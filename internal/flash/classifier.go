package flash

import (
	"fmt"
	"math"

	"strobeguard/internal/analysis"
)

// Default classification thresholds.
const (
	DefaultLuminanceRelativeThreshold = 0.10
	DefaultLuminanceAbsoluteMin       = 0.05
	DefaultMinBrightness              = 0.05
	DefaultRedDeltaThreshold          = 0.80
	DefaultWindowMs                   = 1000.0
)

// Config holds the classification thresholds.
type Config struct {
	// LuminanceRelativeThreshold is the minimum luminance delta relative to
	// the previous frame's luminance for a general flash.
	LuminanceRelativeThreshold float64
	// LuminanceAbsoluteMin is the minimum absolute luminance delta for a
	// general flash.
	LuminanceAbsoluteMin float64
	// MinBrightness is the dark-frame guard: both frames must be at least
	// this bright for any event to be recorded.
	MinBrightness float64
	// RedDeltaThreshold is the minimum change in saturated-red ratio for a
	// red flash.
	RedDeltaThreshold float64
	// WindowMs is the sliding window span in milliseconds.
	WindowMs float64
}

// DefaultConfig returns the default classification thresholds.
func DefaultConfig() Config {
	return Config{
		LuminanceRelativeThreshold: DefaultLuminanceRelativeThreshold,
		LuminanceAbsoluteMin:       DefaultLuminanceAbsoluteMin,
		MinBrightness:              DefaultMinBrightness,
		RedDeltaThreshold:          DefaultRedDeltaThreshold,
		WindowMs:                   DefaultWindowMs,
	}
}

// Validate checks the thresholds for usable ranges.
func (c Config) Validate() error {
	if c.LuminanceRelativeThreshold <= 0 {
		return fmt.Errorf("luminance relative threshold must be positive, got %v", c.LuminanceRelativeThreshold)
	}
	if c.LuminanceAbsoluteMin <= 0 {
		return fmt.Errorf("luminance absolute minimum must be positive, got %v", c.LuminanceAbsoluteMin)
	}
	if c.MinBrightness < 0 || c.MinBrightness > 1 {
		return fmt.Errorf("minimum brightness must be in [0,1], got %v", c.MinBrightness)
	}
	if c.RedDeltaThreshold <= 0 || c.RedDeltaThreshold > 1 {
		return fmt.Errorf("red delta threshold must be in (0,1], got %v", c.RedDeltaThreshold)
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("window span must be positive, got %vms", c.WindowMs)
	}
	return nil
}

// Result reports the outcome of classifying one pair of consecutive frames.
// It carries no shared state; the windows live with the owning session.
type Result struct {
	IsGeneralEvent     bool
	IsRedEvent         bool
	GeneralWindowCount int
	RedWindowCount     int
}

// Classifier decides whether a general and/or red flash event occurred
// between two consecutive metric samples.
type Classifier struct {
	cfg Config
}

// NewClassifier returns a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the classifier's thresholds.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Classify compares two consecutive metric samples, records any events into
// the supplied windows at cur's timestamp, and prunes both windows to cur's
// timestamp. General and red detection are independent tests sharing only
// the dark-frame guard.
func (c *Classifier) Classify(prev, cur analysis.FrameMetrics, general, red *Window) Result {
	// Both frames must be bright enough for any event to count. A black
	// frame inserted between bright frames would otherwise register every
	// cut as a flash.
	dark := cur.Luminance < c.cfg.MinBrightness || prev.Luminance < c.cfg.MinBrightness

	res := Result{}
	if !dark {
		delta := math.Abs(cur.Luminance - prev.Luminance)
		rel := delta / math.Max(prev.Luminance, 0.01)
		if rel > c.cfg.LuminanceRelativeThreshold && delta > c.cfg.LuminanceAbsoluteMin {
			res.IsGeneralEvent = true
			general.Add(cur.TimestampMs)
		}

		redDelta := math.Abs(cur.RedSaturationRatio - prev.RedSaturationRatio)
		if redDelta > c.cfg.RedDeltaThreshold {
			res.IsRedEvent = true
			red.Add(cur.TimestampMs)
		}
	}

	general.Prune(cur.TimestampMs)
	red.Prune(cur.TimestampMs)

	res.GeneralWindowCount = general.Count()
	res.RedWindowCount = red.Count()
	return res
}

// Package config holds the detection configuration surface: global defaults,
// per-source overrides, and persistence of runtime changes.
package config

import (
	"strconv"

	"strobeguard/internal/analysis"
	"strobeguard/internal/database"
	"strobeguard/internal/flash"
	"strobeguard/internal/session"
)

// Global contains the global detection settings applied to every source
// that carries no override.
type Global struct {
	LuminanceRelativeThreshold float64 `json:"luminance_relative_threshold"`
	LuminanceAbsoluteMin       float64 `json:"luminance_absolute_min"`
	MinBrightness              float64 `json:"min_brightness"`
	RedDeltaThreshold          float64 `json:"red_delta_threshold"`
	WindowMs                   float64 `json:"window_ms"`
	FlashFrequencyThreshold    int     `json:"flash_frequency_threshold"`
	WarmupFrames               int     `json:"warmup_frames"`
	FrameStride                int     `json:"frame_stride"`
	MaxAnalysisWidth           int     `json:"max_analysis_width"`
	MaxAnalysisHeight          int     `json:"max_analysis_height"`
	PixelSampleStride          int     `json:"pixel_sample_stride"`
}

// DefaultGlobal returns the default detection settings.
func DefaultGlobal() *Global {
	return &Global{
		LuminanceRelativeThreshold: flash.DefaultLuminanceRelativeThreshold,
		LuminanceAbsoluteMin:       flash.DefaultLuminanceAbsoluteMin,
		MinBrightness:              flash.DefaultMinBrightness,
		RedDeltaThreshold:          flash.DefaultRedDeltaThreshold,
		WindowMs:                   flash.DefaultWindowMs,
		FlashFrequencyThreshold:    session.DefaultFlashFrequencyThreshold,
		WarmupFrames:               session.DefaultWarmupFrames,
		FrameStride:                session.DefaultFrameStride,
		MaxAnalysisWidth:           analysis.DefaultMaxWidth,
		MaxAnalysisHeight:          analysis.DefaultMaxHeight,
		PixelSampleStride:          analysis.DefaultSampleStride,
	}
}

// SessionConfig converts the settings into a session policy.
func (g *Global) SessionConfig() session.Config {
	return session.Config{
		Flash: flash.Config{
			LuminanceRelativeThreshold: g.LuminanceRelativeThreshold,
			LuminanceAbsoluteMin:       g.LuminanceAbsoluteMin,
			MinBrightness:              g.MinBrightness,
			RedDeltaThreshold:          g.RedDeltaThreshold,
			WindowMs:                   g.WindowMs,
		},
		FlashFrequencyThreshold: g.FlashFrequencyThreshold,
		WarmupFrames:            g.WarmupFrames,
		FrameStride:             g.FrameStride,
		MaxAnalysisWidth:        g.MaxAnalysisWidth,
		MaxAnalysisHeight:       g.MaxAnalysisHeight,
		PixelSampleStride:       g.PixelSampleStride,
	}
}

// Validate checks the settings via the session policy validation.
func (g *Global) Validate() error {
	return g.SessionConfig().Validate()
}

// SourceOverrides contains per-source detection overrides. Nil fields mean
// "inherit from global".
type SourceOverrides struct {
	LuminanceRelativeThreshold *float64 `json:"luminance_relative_threshold,omitempty"`
	LuminanceAbsoluteMin       *float64 `json:"luminance_absolute_min,omitempty"`
	MinBrightness              *float64 `json:"min_brightness,omitempty"`
	RedDeltaThreshold          *float64 `json:"red_delta_threshold,omitempty"`
	WindowMs                   *float64 `json:"window_ms,omitempty"`
	FlashFrequencyThreshold    *int     `json:"flash_frequency_threshold,omitempty"`
	WarmupFrames               *int     `json:"warmup_frames,omitempty"`
	FrameStride                *int     `json:"frame_stride,omitempty"`
}

// MergeWithGlobal applies the overrides to a copy of the global settings.
func (o *SourceOverrides) MergeWithGlobal(global *Global) *Global {
	if global == nil {
		global = DefaultGlobal()
	}
	effective := *global
	if o == nil {
		return &effective
	}

	if o.LuminanceRelativeThreshold != nil {
		effective.LuminanceRelativeThreshold = *o.LuminanceRelativeThreshold
	}
	if o.LuminanceAbsoluteMin != nil {
		effective.LuminanceAbsoluteMin = *o.LuminanceAbsoluteMin
	}
	if o.MinBrightness != nil {
		effective.MinBrightness = *o.MinBrightness
	}
	if o.RedDeltaThreshold != nil {
		effective.RedDeltaThreshold = *o.RedDeltaThreshold
	}
	if o.WindowMs != nil {
		effective.WindowMs = *o.WindowMs
	}
	if o.FlashFrequencyThreshold != nil {
		effective.FlashFrequencyThreshold = *o.FlashFrequencyThreshold
	}
	if o.WarmupFrames != nil {
		effective.WarmupFrames = *o.WarmupFrames
	}
	if o.FrameStride != nil {
		effective.FrameStride = *o.FrameStride
	}
	return &effective
}

// Keys under which runtime-tunable settings are persisted in app_config.
const (
	keyLuminanceRelative = "detection.luminance_relative_threshold"
	keyLuminanceAbsolute = "detection.luminance_absolute_min"
	keyMinBrightness     = "detection.min_brightness"
	keyRedDelta          = "detection.red_delta_threshold"
	keyWindowMs          = "detection.window_ms"
	keyFlashFrequency    = "detection.flash_frequency_threshold"
	keyWarmupFrames      = "detection.warmup_frames"
	keyFrameStride       = "detection.frame_stride"
)

// LoadFromStore applies persisted runtime settings over the defaults.
// Missing or unparseable values keep their defaults.
func LoadFromStore(db *database.Database) (*Global, error) {
	g := DefaultGlobal()

	stored, err := db.ListConfigs()
	if err != nil {
		return nil, err
	}

	loadFloat := func(key string, dst *float64) {
		if v, ok := stored[key]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	loadInt := func(key string, dst *int) {
		if v, ok := stored[key]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	loadFloat(keyLuminanceRelative, &g.LuminanceRelativeThreshold)
	loadFloat(keyLuminanceAbsolute, &g.LuminanceAbsoluteMin)
	loadFloat(keyMinBrightness, &g.MinBrightness)
	loadFloat(keyRedDelta, &g.RedDeltaThreshold)
	loadFloat(keyWindowMs, &g.WindowMs)
	loadInt(keyFlashFrequency, &g.FlashFrequencyThreshold)
	loadInt(keyWarmupFrames, &g.WarmupFrames)
	loadInt(keyFrameStride, &g.FrameStride)

	if err := g.Validate(); err != nil {
		// Stored values drifted out of range; fall back to defaults.
		return DefaultGlobal(), nil
	}
	return g, nil
}

// SaveToStore persists the runtime-tunable settings.
func SaveToStore(db *database.Database, g *Global) error {
	values := map[string]string{
		keyLuminanceRelative: strconv.FormatFloat(g.LuminanceRelativeThreshold, 'g', -1, 64),
		keyLuminanceAbsolute: strconv.FormatFloat(g.LuminanceAbsoluteMin, 'g', -1, 64),
		keyMinBrightness:     strconv.FormatFloat(g.MinBrightness, 'g', -1, 64),
		keyRedDelta:          strconv.FormatFloat(g.RedDeltaThreshold, 'g', -1, 64),
		keyWindowMs:          strconv.FormatFloat(g.WindowMs, 'g', -1, 64),
		keyFlashFrequency:    strconv.Itoa(g.FlashFrequencyThreshold),
		keyWarmupFrames:      strconv.Itoa(g.WarmupFrames),
		keyFrameStride:       strconv.Itoa(g.FrameStride),
	}
	for key, value := range values {
		if err := db.SaveConfig(key, value); err != nil {
			return err
		}
	}
	return nil
}

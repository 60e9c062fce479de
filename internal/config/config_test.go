package config

import (
	"path/filepath"
	"testing"

	"strobeguard/internal/database"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestDefaultGlobalValid(t *testing.T) {
	if err := DefaultGlobal().Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestMergeWithGlobal(t *testing.T) {
	window := 1500.0
	stride := 1

	tests := []struct {
		name      string
		overrides *SourceOverrides
		check     func(t *testing.T, g *Global)
	}{
		{
			name:      "nil overrides inherit everything",
			overrides: nil,
			check: func(t *testing.T, g *Global) {
				if *g != *DefaultGlobal() {
					t.Errorf("merged = %+v, want defaults", g)
				}
			},
		},
		{
			name:      "empty overrides inherit everything",
			overrides: &SourceOverrides{},
			check: func(t *testing.T, g *Global) {
				if *g != *DefaultGlobal() {
					t.Errorf("merged = %+v, want defaults", g)
				}
			},
		},
		{
			name:      "set fields win",
			overrides: &SourceOverrides{WindowMs: &window, FrameStride: &stride},
			check: func(t *testing.T, g *Global) {
				if g.WindowMs != 1500 {
					t.Errorf("WindowMs = %v, want 1500", g.WindowMs)
				}
				if g.FrameStride != 1 {
					t.Errorf("FrameStride = %v, want 1", g.FrameStride)
				}
				if g.WarmupFrames != DefaultGlobal().WarmupFrames {
					t.Errorf("unset field changed: WarmupFrames = %v", g.WarmupFrames)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global := DefaultGlobal()
			merged := tt.overrides.MergeWithGlobal(global)
			tt.check(t, merged)
			// The global itself must not be mutated.
			if *global != *DefaultGlobal() {
				t.Errorf("merge mutated the global settings: %+v", global)
			}
		})
	}
}

func TestStoreRoundtrip(t *testing.T) {
	db := newTestDB(t)

	g := DefaultGlobal()
	g.WindowMs = 1500
	g.FlashFrequencyThreshold = 5
	g.RedDeltaThreshold = 0.6
	if err := SaveToStore(db, g); err != nil {
		t.Fatalf("SaveToStore: %v", err)
	}

	loaded, err := LoadFromStore(db)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if loaded.WindowMs != 1500 || loaded.FlashFrequencyThreshold != 5 || loaded.RedDeltaThreshold != 0.6 {
		t.Errorf("loaded = %+v", loaded)
	}
	// Fields not persisted keep their defaults.
	if loaded.MaxAnalysisWidth != DefaultGlobal().MaxAnalysisWidth {
		t.Errorf("MaxAnalysisWidth = %v", loaded.MaxAnalysisWidth)
	}
}

func TestLoadFromEmptyStore(t *testing.T) {
	db := newTestDB(t)
	loaded, err := LoadFromStore(db)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if *loaded != *DefaultGlobal() {
		t.Errorf("loaded = %+v, want defaults", loaded)
	}
}

func TestLoadIgnoresGarbageValues(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveConfig("detection.window_ms", "not-a-number"); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadFromStore(db)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if loaded.WindowMs != DefaultGlobal().WindowMs {
		t.Errorf("WindowMs = %v, want default", loaded.WindowMs)
	}
}

func TestLoadFallsBackWhenStoredValuesInvalid(t *testing.T) {
	db := newTestDB(t)
	// Parseable but out of range: the whole set falls back to defaults.
	if err := db.SaveConfig("detection.frame_stride", "0"); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadFromStore(db)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if loaded.FrameStride != DefaultGlobal().FrameStride {
		t.Errorf("FrameStride = %v, want default", loaded.FrameStride)
	}
}

package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSourceLifecycle(t *testing.T) {
	db := newTestDB(t)

	src := &SourceRecord{ID: "cam-1", Label: "lobby", Status: "monitoring", CreatedAt: time.Now().UTC()}
	if err := db.SaveSource(src); err != nil {
		t.Fatalf("SaveSource: %v", err)
	}

	got, err := db.GetSource("cam-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got == nil || got.Label != "lobby" || got.Status != "monitoring" {
		t.Fatalf("GetSource returned %+v", got)
	}

	// Upsert keeps the row unique.
	src.Status = "stopped"
	if err := db.SaveSource(src); err != nil {
		t.Fatalf("SaveSource upsert: %v", err)
	}
	all, err := db.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(all) != 1 || all[0].Status != "stopped" {
		t.Fatalf("ListSources = %+v", all)
	}

	if err := db.UpdateSourceStatus("cam-1", "idle"); err != nil {
		t.Fatalf("UpdateSourceStatus: %v", err)
	}
	got, _ = db.GetSource("cam-1")
	if got.Status != "idle" {
		t.Errorf("Status = %q, want idle", got.Status)
	}

	if err := db.DeleteSource("cam-1"); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	got, err = db.GetSource("cam-1")
	if err != nil || got != nil {
		t.Errorf("GetSource after delete = %+v, %v", got, err)
	}
}

func TestWarningStorage(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveSource(&SourceRecord{ID: "cam-1", Label: "lobby", Status: "monitoring", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("SaveSource: %v", err)
	}

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		w := &WarningRecord{
			ID:                  string(rune('a' + i)),
			SourceID:            "cam-1",
			Kind:                "general",
			FlashesInWindow:     3,
			MaxFlashesPerWindow: 4,
			TotalFlashCount:     10 + i,
			PositionMs:          float64(i) * 1000,
			IssuedAt:            base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.SaveWarning(w); err != nil {
			t.Fatalf("SaveWarning %d: %v", i, err)
		}
	}

	t.Run("newest first with limit", func(t *testing.T) {
		got, err := db.ListWarnings("", nil, 2)
		if err != nil {
			t.Fatalf("ListWarnings: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if !got[0].IssuedAt.After(got[1].IssuedAt) {
			t.Errorf("not ordered newest first: %v, %v", got[0].IssuedAt, got[1].IssuedAt)
		}
	})

	t.Run("since filter", func(t *testing.T) {
		since := base.Add(3 * time.Minute)
		got, err := db.ListWarnings("cam-1", &since, 0)
		if err != nil {
			t.Fatalf("ListWarnings: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})

	t.Run("source filter excludes others", func(t *testing.T) {
		got, err := db.ListWarnings("cam-2", nil, 0)
		if err != nil {
			t.Fatalf("ListWarnings: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})

	t.Run("delete old", func(t *testing.T) {
		n, err := db.DeleteOldWarnings(base.Add(2 * time.Minute))
		if err != nil {
			t.Fatalf("DeleteOldWarnings: %v", err)
		}
		if n != 2 {
			t.Errorf("deleted %d, want 2", n)
		}
	})
}

func TestCounters(t *testing.T) {
	db := newTestDB(t)

	if v, err := db.GetCounter(CounterWarningsIssued); err != nil || v != 0 {
		t.Fatalf("unset counter = %d, %v", v, err)
	}

	if err := db.IncrementCounter(CounterWarningsIssued, 1); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if err := db.IncrementCounter(CounterWarningsIssued, 4); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if err := db.IncrementCounter(CounterFlashesDetected, 12); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}

	if v, _ := db.GetCounter(CounterWarningsIssued); v != 5 {
		t.Errorf("warnings counter = %d, want 5", v)
	}

	all, err := db.GetCounters()
	if err != nil {
		t.Fatalf("GetCounters: %v", err)
	}
	if all[CounterWarningsIssued] != 5 || all[CounterFlashesDetected] != 12 {
		t.Errorf("GetCounters = %v", all)
	}
}

func TestConfigStorage(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveConfig("detection.window_ms", "1000"); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if err := db.SaveConfig("detection.window_ms", "1500"); err != nil {
		t.Fatalf("SaveConfig upsert: %v", err)
	}

	v, err := db.GetConfig("detection.window_ms")
	if err != nil || v != "1500" {
		t.Fatalf("GetConfig = %q, %v", v, err)
	}

	if v, _ := db.GetConfig("missing"); v != "" {
		t.Errorf("missing key = %q, want empty", v)
	}

	all, err := db.ListConfigs()
	if err != nil || len(all) != 1 {
		t.Fatalf("ListConfigs = %v, %v", all, err)
	}

	if err := db.DeleteConfig("detection.window_ms"); err != nil {
		t.Fatalf("DeleteConfig: %v", err)
	}
	if v, _ := db.GetConfig("detection.window_ms"); v != "" {
		t.Errorf("value survives delete: %q", v)
	}
}

package usage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

func TestLoadMissingFileReturnsZero(t *testing.T) {
	s, err := loadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalRecordingMs != 0 || s.TotalRecordingCount != 0 || s.TotalRecognizedChars != 0 {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stats.json")
	s := &Stats{TotalRecordingMs: 1500, TotalRecordingCount: 3, TotalRecognizedChars: 42}

	if err := saveTo(p, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := loadFrom(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *s {
		t.Fatalf("round trip mismatch: got %+v, want %+v", loaded, s)
	}
}

func TestUpdateAndSaveAccumulates(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()

	c, err := NewCounters()
	if err != nil {
		t.Fatalf("new counters: %v", err)
	}
	if err := c.UpdateAndSave(1000, 10); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.UpdateAndSave(500, 5); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap := c.Snapshot()
	if snap.TotalRecordingMs != 1500 || snap.TotalRecordingCount != 2 || snap.TotalRecognizedChars != 15 {
		t.Fatalf("unexpected accumulated stats: %+v", snap)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *reloaded != snap {
		t.Fatalf("persisted stats mismatch: got %+v, want %+v", reloaded, snap)
	}
}

func TestUpdateAndSaveRollsBackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// Replace the stats directory itself with a file so creating it fails,
	// forcing Save to error and UpdateAndSave to roll back.
	blocked := filepath.Join(dir, dirName)
	if err := os.WriteFile(blocked, []byte("not a directory"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()

	c := &Counters{stats: &Stats{TotalRecordingMs: 100, TotalRecordingCount: 1, TotalRecognizedChars: 7}}
	before := c.Snapshot()

	if err := c.UpdateAndSave(1000, 10); err == nil {
		t.Fatal("expected save failure to surface as an error")
	}

	after := c.Snapshot()
	if after != before {
		t.Fatalf("expected rollback to pre-update values, got %+v, want %+v", after, before)
	}
}

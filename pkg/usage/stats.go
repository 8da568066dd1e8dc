// Package usage implements the aggregate usage counters from §3: monotonic
// totals persisted to stats.json, updated read-modify-write with rollback
// on write failure.
package usage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	json "github.com/goccy/go-json"
)

const dirName = "PushToTalk"

// Stats holds the monotonic aggregate counters, serialized camelCase to
// match stats.json's documented shape.
type Stats struct {
	TotalRecordingMs      int64 `json:"totalRecordingMs"`
	TotalRecordingCount   int64 `json:"totalRecordingCount"`
	TotalRecognizedChars  int64 `json:"totalRecognizedChars"`
}

func path() (string, error) {
	p, err := xdg.ConfigFile(filepath.Join(dirName, "stats.json"))
	if err != nil {
		return "", fmt.Errorf("usage: resolve stats path: %w", err)
	}
	return p, nil
}

// Load reads stats.json; a missing file returns a zero-valued Stats rather
// than an error.
func Load() (*Stats, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}
	return loadFrom(p)
}

func loadFrom(p string) (*Stats, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("usage: read %s: %w", p, err)
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("usage: parse %s: %w", p, err)
	}
	return &s, nil
}

// Save writes s to stats.json.
func Save(s *Stats) error {
	p, err := path()
	if err != nil {
		return err
	}
	return saveTo(p, s)
}

func saveTo(p string, s *Stats) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("usage: create stats dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("usage: encode: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("usage: write %s: %w", p, err)
	}
	return nil
}

// Counters owns the in-memory Stats plus the read-modify-write persistence
// around it.
type Counters struct {
	mu    sync.Mutex
	stats *Stats
}

// NewCounters loads the persisted stats (or starts from zero).
func NewCounters() (*Counters, error) {
	s, err := Load()
	if err != nil {
		return nil, err
	}
	return &Counters{stats: s}, nil
}

// Snapshot returns a copy of the current counters.
func (c *Counters) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.stats
}

// UpdateAndSave applies the delta to the in-memory counters and persists
// them. If the save fails, the in-memory update is rolled back to the
// pre-update values, so in-memory state never diverges from what's on
// disk — the exact semantics of the original's update_and_save.
func (c *Counters) UpdateAndSave(recordingMs int64, recognizedChars int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := *c.stats

	c.stats.TotalRecordingMs += recordingMs
	c.stats.TotalRecordingCount++
	c.stats.TotalRecognizedChars += recognizedChars

	if err := Save(c.stats); err != nil {
		*c.stats = before
		return fmt.Errorf("usage: update rolled back: %w", err)
	}
	return nil
}

// Package clipboard implements the scoped clipboard-guard primitive used
// around every synthetic copy/paste cycle.
package clipboard

import (
	"fmt"
	"time"

	atotto "github.com/atotto/clipboard"

	"github.com/pushtotalk/pushtotalkd/pkg/platform"
)

// backend abstracts the OS clipboard so tests can substitute a fake rather
// than depending on a real clipboard being available in CI.
type backend interface {
	ReadAll() (string, error)
	WriteAll(string) error
}

type osBackend struct{}

func (osBackend) ReadAll() (string, error) { return atotto.ReadAll() }
func (osBackend) WriteAll(s string) error  { return atotto.WriteAll(s) }

var clip backend = osBackend{}

// pasteSettleDelay is how long insertText waits for the target app to
// consume the synthetic paste before the guard restores the snapshot.
const pasteSettleDelay = 100 * time.Millisecond

// selectionSentinel is written to the clipboard before a synthetic copy so
// capture_selection can detect "nothing was selected" by seeing the
// sentinel come back unchanged.
const selectionSentinel = "\x00pushtotalk-selection-probe\x00"

// selectionPollInterval / selectionPollTimeout bound the wait for the
// clipboard to change after a synthetic copy.
const (
	selectionPollInterval = 15 * time.Millisecond
	selectionPollTimeout  = 300 * time.Millisecond
)

// Guard owns a pre-capture clipboard snapshot and restores it exactly once.
type Guard struct {
	snapshot string
	released bool
}

// Acquire reads the current clipboard and returns a Guard that will restore
// it on Release.
func Acquire() (*Guard, error) {
	snap, err := clip.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("clipboard: acquire snapshot: %w", err)
	}
	return &Guard{snapshot: snap}, nil
}

// Release restores the snapshot. Safe to call more than once; only the
// first call has effect, so it can be deferred unconditionally on every
// exit path.
func (g *Guard) Release() error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	if err := clip.WriteAll(g.snapshot); err != nil {
		return fmt.Errorf("clipboard: restore snapshot: %w", err)
	}
	return nil
}

// InsertText sets the clipboard to text, synthesizes the paste chord, waits
// for the target app to consume it, then restores guard's snapshot on every
// exit path. selectionExists only affects the caller-visible semantics (a
// replace vs. an insert-at-cursor); the synthetic mechanism is identical.
func InsertText(probe platform.Probe, text string, selectionExists bool, guard *Guard) error {
	defer guard.Release()

	if err := clip.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: set text for paste: %w", err)
	}
	if err := probe.SendChordPaste(); err != nil {
		return fmt.Errorf("clipboard: synthesize paste: %w", err)
	}
	time.Sleep(pasteSettleDelay)
	return nil
}

// CaptureSelection sets the clipboard to a sentinel, synthesizes the copy
// chord, and polls for the clipboard to change. It returns the guard
// unconditionally (so the caller can still restore later) and the captured
// text, or "" if no selection was present or the copy failed — per §4.2,
// failure of the copy leaves the guard intact rather than erroring out.
func CaptureSelection(probe platform.Probe) (*Guard, string, error) {
	guard, err := Acquire()
	if err != nil {
		return nil, "", err
	}

	if err := clip.WriteAll(selectionSentinel); err != nil {
		return guard, "", nil
	}
	if err := probe.SendChordCopy(); err != nil {
		return guard, "", nil
	}

	deadline := time.Now().Add(selectionPollTimeout)
	for time.Now().Before(deadline) {
		cur, err := clip.ReadAll()
		if err == nil && cur != selectionSentinel {
			return guard, cur, nil
		}
		time.Sleep(selectionPollInterval)
	}
	return guard, "", nil
}

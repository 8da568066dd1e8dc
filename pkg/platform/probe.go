// Package platform implements the ground-truth hardware key probe and
// synthetic input/focus primitives the hotkey engine and clipboard guard
// build on.
package platform

import "github.com/pushtotalk/pushtotalkd/pkg/keys"

// WindowHandle is an opaque foreground-window reference.
type WindowHandle uintptr

// Probe is the platform key probe contract from §4.1: physical key state,
// chord synthesis, modifier defence, and foreground-window capture/restore.
type Probe interface {
	// IsPhysicallyDown reports the ground-truth hardware state of key,
	// bypassing any event queue.
	IsPhysicallyDown(key keys.Key) bool

	// SendChordCopy synthesizes the OS copy chord.
	SendChordCopy() error
	// SendChordPaste synthesizes the OS paste chord.
	SendChordPaste() error

	// ReleaseAllModifiers sends a key-up only for modifiers that are
	// physically down; it never synthesizes a key-up for an already-up
	// modifier.
	ReleaseAllModifiers() error

	// ForegroundWindow returns the current foreground window handle.
	ForegroundWindow() (WindowHandle, error)
	// IsWindowValid reports whether h still refers to a live window.
	IsWindowValid(h WindowHandle) bool
	// ForceForeground attempts to bring h to the foreground using a
	// cascade of strategies, failing only once every strategy is
	// exhausted.
	ForceForeground(h WindowHandle) error
	// RestoreFocusWithVerify retries ForceForeground up to maxRetries
	// times, verifying success via ForegroundWindow() == h between
	// attempts.
	RestoreFocusWithVerify(h WindowHandle, maxRetries int) error
}

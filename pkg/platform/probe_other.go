//go:build !windows

package platform

import (
	"fmt"

	"github.com/pushtotalk/pushtotalkd/pkg/keys"
)

// fallbackProbe backs non-Windows builds. Physical-down always reports true,
// so the polling hotkey engine sees every tracked key as held; there is no
// event-based key state on these builds. Chord synthesis, modifier release
// and ForceForeground are no-ops that report success, and
// RestoreFocusWithVerify always returns an error.
type fallbackProbe struct{}

// New constructs the fallback platform probe used on non-Windows builds.
func New() Probe { return &fallbackProbe{} }

func (fallbackProbe) IsPhysicallyDown(keys.Key) bool { return true }
func (fallbackProbe) SendChordCopy() error           { return nil }
func (fallbackProbe) SendChordPaste() error          { return nil }
func (fallbackProbe) ReleaseAllModifiers() error      { return nil }

func (fallbackProbe) ForegroundWindow() (WindowHandle, error) { return 0, nil }
func (fallbackProbe) IsWindowValid(WindowHandle) bool         { return true }
func (fallbackProbe) ForceForeground(WindowHandle) error      { return nil }
func (fallbackProbe) RestoreFocusWithVerify(WindowHandle, int) error {
	return fmt.Errorf("platform: focus reclamation unsupported on this platform")
}

// Package overlay defines the orchestrator's interface onto the recording
// indicator window. The window/tray UI itself is out of scope (§1's
// non-goals place the GUI surface outside this component's boundary) — this
// package only owns the seam the orchestrator calls through.
package overlay

import "github.com/pushtotalk/pushtotalkd/pkg/logging"

// Controller shows or hides the recording overlay and reports its current
// visibility, per §4.8/§4.9.
type Controller interface {
	Show()
	Hide() error
	IsVisible() bool
}

// LoggingController is a no-GUI default: it logs transitions and tracks
// visibility, used by the standalone binary when no window toolkit is
// wired in, and by tests.
type LoggingController struct {
	log     logging.Logger
	visible bool
}

// NewLoggingController builds a LoggingController.
func NewLoggingController(log logging.Logger) *LoggingController {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &LoggingController{log: log}
}

func (c *LoggingController) Show() {
	c.visible = true
	c.log.Debug("overlay: show")
}

func (c *LoggingController) Hide() error {
	c.visible = false
	c.log.Debug("overlay: hide")
	return nil
}

func (c *LoggingController) IsVisible() bool {
	return c.visible
}

// Package hotkey implements the §4.7 hotkey engine: a polling observer that
// tracks physical key state, strict-matches configured chords, and dispatches
// start/stop/cancel callbacks to the session orchestrator.
//
// The platform probe this engine is built on (pkg/platform) only exposes
// physical-key polling, not an OS-level key-hook — so this engine always
// runs in the polling observation mode §4.7 describes for platforms "where
// low-level hooks are fragile", with the watchdog implicit in the same tick
// loop rather than a second thread.
package hotkey

import (
	"context"
	"sync"
	"time"

	"github.com/pushtotalk/pushtotalkd/pkg/keys"
	"github.com/pushtotalk/pushtotalkd/pkg/logging"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
)

const (
	defaultPollInterval    = 10 * time.Millisecond
	defaultReleaseStableMs = 200 * time.Millisecond
	listenerRestartDelay   = 2 * time.Second
)

// Callbacks are invoked on the observer tick goroutine; implementations must
// not block — spawn async work instead, per §4.7's scheduling model.
type Callbacks struct {
	OnStart  func(role keys.Role, viaReleaseLock bool)
	OnStop   func(role keys.Role, viaReleaseLock bool)
	OnCancel func(role keys.Role, viaReleaseLock bool)
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateRecording
	stateRecordingLocked
)

// Engine is the hotkey observer and chord matcher.
type Engine struct {
	probe     platform.Probe
	bindings  *keys.DualBinding
	tracked   map[keys.Key]struct{}
	callbacks Callbacks
	log       logging.Logger

	pollInterval    time.Duration
	releaseStableMs time.Duration

	mu             sync.Mutex
	state          sessionState
	activeRole     keys.Role
	activeMode     keys.TriggerMode
	viaReleaseLock bool
	released       bool // software-tracked: strict match currently false
	missTicks      int  // consecutive ticks the watchdog's release condition held
}

// NewEngine validates bindings and builds an Engine. probe is polled on the
// observer goroutine started by Run.
func NewEngine(probe platform.Probe, bindings *keys.DualBinding, callbacks Callbacks, log logging.Logger) (*Engine, error) {
	if err := bindings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Engine{
		probe:           probe,
		bindings:        bindings,
		tracked:         bindings.TrackedKeys(),
		callbacks:       callbacks,
		log:             log,
		pollInterval:    defaultPollInterval,
		releaseStableMs: defaultReleaseStableMs,
		state:           stateIdle,
	}, nil
}

// Run blocks, polling until ctx is cancelled. A panic inside a tick is
// treated like a failed OS listener: pressed-state is cleared, a 2s sleep
// follows, and polling resumes — mirroring §4.7's listener-restart policy
// without duplicating the observer goroutine.
func (e *Engine) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		e.runLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		e.log.Warn("hotkey: observer loop exited unexpectedly, restarting", "delay", listenerRestartDelay)
		e.resetState()
		select {
		case <-time.After(listenerRestartDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) runLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("hotkey: observer tick panicked", "recover", r)
		}
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) resetState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateIdle
	e.released = false
	e.missTicks = 0
}

func (e *Engine) pressedSet() map[keys.Key]struct{} {
	pressed := make(map[keys.Key]struct{})
	for k := range e.tracked {
		if e.probe.IsPhysicallyDown(k) {
			pressed[k] = struct{}{}
		}
	}
	return pressed
}

func (e *Engine) tick() {
	pressed := e.pressedSet()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateIdle:
		e.dispatchFromIdle(pressed)
	case stateRecording:
		e.tickRecording(pressed)
	case stateRecordingLocked:
		e.tickRecordingLocked(pressed)
	}
}

// dispatchFromIdle implements §4.7's priority order: dictation release-lock,
// then dictation main, then assistant main. Must hold e.mu.
func (e *Engine) dispatchFromIdle(pressed map[keys.Key]struct{}) {
	dictation := e.bindings.Dictation
	assistant := e.bindings.AiAssistant

	if dictation.ReleaseLock != nil && keys.StrictMatch(dictation.ReleaseLock, pressed, e.tracked) {
		e.state = stateRecordingLocked
		e.activeRole = keys.RoleDictation
		e.activeMode = dictation.Mode
		e.viaReleaseLock = true
		e.released = false
		e.missTicks = 0
		e.invokeStart(keys.RoleDictation, true)
		return
	}
	if keys.StrictMatch(dictation.Keys, pressed, e.tracked) {
		e.state = stateRecording
		e.activeRole = keys.RoleDictation
		e.activeMode = dictation.Mode
		e.viaReleaseLock = false
		e.released = false
		e.missTicks = 0
		e.invokeStart(keys.RoleDictation, false)
		return
	}
	if keys.StrictMatch(assistant.Keys, pressed, e.tracked) {
		e.state = stateRecording
		e.activeRole = keys.RoleAiAssistant
		e.activeMode = assistant.Mode
		e.viaReleaseLock = false
		e.released = false
		e.missTicks = 0
		e.invokeStart(keys.RoleAiAssistant, false)
		return
	}
}

func (e *Engine) activeBinding() *keys.Binding {
	if e.activeRole == keys.RoleAiAssistant {
		return e.bindings.AiAssistant
	}
	return e.bindings.Dictation
}

func (e *Engine) tickRecording(pressed map[keys.Key]struct{}) {
	chord := e.activeBinding().Keys
	matched := keys.StrictMatch(chord, pressed, e.tracked)

	switch e.activeMode {
	case keys.Press:
		if !matched {
			e.stopAndGoIdle()
			return
		}
		e.released = !matched
		// An unmatched tick has already stopped the session above, so here
		// the chord is matched and runWatchdog only resets its counter. A
		// Toggle session is not watched: its falling edge is expected.
		e.runWatchdog(chord, pressed, matched)
	case keys.Toggle:
		if matched && e.released {
			e.stopAndGoIdle()
			return
		}
		e.released = !matched
	}
}

func (e *Engine) tickRecordingLocked(pressed map[keys.Key]struct{}) {
	lockChord := e.activeBinding().ReleaseLock
	if lockChord == nil {
		return
	}
	matched := keys.StrictMatch(lockChord, pressed, e.tracked)
	if matched && e.released {
		e.cancelLockedAndGoIdle()
		return
	}
	e.released = !matched
	// Watchdog does not apply to locked sessions: the release-lock chord's
	// falling edge is expected and must not force-stop anything.
}

// runWatchdog force-stops a normal recording if the software-tracked state
// shows the chord released and the hardware probe confirms at least one
// chord key is physically up for releaseStableMs consecutive ticks.
func (e *Engine) runWatchdog(chord, pressed map[keys.Key]struct{}, matched bool) {
	if matched {
		e.missTicks = 0
		return
	}
	anyPhysicallyUp := false
	for k := range chord {
		if _, down := pressed[k]; !down {
			anyPhysicallyUp = true
			break
		}
	}
	if !anyPhysicallyUp {
		e.missTicks = 0
		return
	}
	e.missTicks++
	if time.Duration(e.missTicks)*e.pollInterval >= e.releaseStableMs {
		e.log.Warn("hotkey: watchdog force-stopping stuck session", "role", e.activeRole.String())
		e.stopAndGoIdle()
	}
}

func (e *Engine) stopAndGoIdle() {
	role, viaLock := e.activeRole, e.viaReleaseLock
	e.state = stateIdle
	e.released = false
	e.missTicks = 0
	e.invokeStop(role, viaLock)
}

func (e *Engine) cancelLockedAndGoIdle() {
	role := e.activeRole
	e.state = stateIdle
	e.released = false
	e.missTicks = 0
	e.invokeCancel(role, true)
}

func (e *Engine) invokeStart(role keys.Role, viaReleaseLock bool) {
	if e.callbacks.OnStart != nil {
		e.callbacks.OnStart(role, viaReleaseLock)
	}
}

func (e *Engine) invokeStop(role keys.Role, viaReleaseLock bool) {
	if e.callbacks.OnStop != nil {
		e.callbacks.OnStop(role, viaReleaseLock)
	}
}

func (e *Engine) invokeCancel(role keys.Role, viaReleaseLock bool) {
	if e.callbacks.OnCancel != nil {
		e.callbacks.OnCancel(role, viaReleaseLock)
	}
}

// FinishLocked commits a release-lock session from an external UI command
// (e.g. a tray "finish" action), per §4.8's finish_locked(). It is a no-op
// if no locked session is active.
func (e *Engine) FinishLocked() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRecordingLocked {
		return
	}
	role := e.activeRole
	e.state = stateIdle
	e.released = false
	e.missTicks = 0
	e.invokeStop(role, true)
}

// CancelLocked cancels a release-lock session from an external UI command,
// per §4.8's cancel_locked(). It is a no-op if no locked session is active.
func (e *Engine) CancelLocked() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRecordingLocked {
		return
	}
	e.cancelLockedAndGoIdle()
}

// CancelCurrent cancels whatever session (locked or not) is currently
// active, per §4.8's cancel_current().
func (e *Engine) CancelCurrent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateRecording:
		role, viaLock := e.activeRole, e.viaReleaseLock
		e.state = stateIdle
		e.released = false
		e.missTicks = 0
		e.invokeCancel(role, viaLock)
	case stateRecordingLocked:
		e.cancelLockedAndGoIdle()
	}
}

// IsRecording reports whether any session is currently active.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != stateIdle
}

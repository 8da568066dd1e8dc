// Package orchestrator (continued) — Orchestrator implements §4.8's session
// lifecycle: it is the only component that composes the hotkey engine,
// capturer, recognizer clients, race strategy, rewriter-backed pipelines,
// clipboard guard and usage counters into one coherent recording cycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pushtotalk/pushtotalkd/pkg/asr"
	"github.com/pushtotalk/pushtotalkd/pkg/audio"
	"github.com/pushtotalk/pushtotalkd/pkg/clipboard"
	"github.com/pushtotalk/pushtotalkd/pkg/hotkey"
	"github.com/pushtotalk/pushtotalkd/pkg/keys"
	"github.com/pushtotalk/pushtotalkd/pkg/logging"
	"github.com/pushtotalk/pushtotalkd/pkg/overlay"
	"github.com/pushtotalk/pushtotalkd/pkg/pipeline"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
	"github.com/pushtotalk/pushtotalkd/pkg/usage"
)

// batchCapturer / streamingCapturer narrow audio.BatchCapturer and
// audio.StreamingCapturer down to the methods this package calls, and
// newBatchCapturer / newStreamingCapturer are swappable seams so tests can
// exercise the session lifecycle without opening a real audio device —
// the same pattern pkg/pipeline uses for its clipboard seams.
type batchCapturer interface {
	Start() error
	StopToBytes() []byte
}

type streamingCapturer interface {
	Start() (<-chan []byte, error)
	Stop() []byte
}

var (
	newBatchCapturer     = func(log logging.Logger) batchCapturer { return audio.NewBatchCapturer(log) }
	newStreamingCapturer = func(log logging.Logger) streamingCapturer { return audio.NewStreamingCapturer(log) }
)

// runDictationPipeline / runAssistantPipeline are swappable seams, mirroring
// pkg/pipeline's own acquireGuard/insertText pattern, so tests can exercise
// dispatchPipeline without a real OS clipboard.
var (
	runDictationPipeline = func(ctx context.Context, d *pipeline.Dictation, asrText string, asrTimeMs int64) (*pipeline.Result, error) {
		return d.Run(ctx, asrText, asrTimeMs)
	}
	runAssistantPipeline = func(ctx context.Context, a *pipeline.Assistant, instruction string, guard *clipboard.Guard, selection string, asrTimeMs int64) (*pipeline.Result, error) {
		return a.Run(ctx, instruction, guard, selection, asrTimeMs)
	}
)

// senderDrainTimeout bounds how long handleStop waits for the audio-sender
// task to drain before giving up on it, per testable property 5 ("no
// orphan tasks").
const senderDrainTimeout = 2 * time.Second

// overlayHideRetryDelay is the single retry delay on_cancel gives a failed
// overlay hide, per §4.8.
const overlayHideRetryDelay = 50 * time.Millisecond

// recordingSession is the §3 "Recording session" record: at most one exists
// at a time, owned by the Orchestrator for the duration of one recording.
type recordingSession struct {
	role           keys.Role
	viaReleaseLock bool
	startedAt      time.Time
	capturedVia    CaptureKind

	streamSession  asr.Session
	streamCapturer streamingCapturer
	batchCapturer  batchCapturer

	senderCancel context.CancelFunc
	senderDone   chan struct{}
}

func (s *recordingSession) teardown(log logging.Logger) {
	if s == nil {
		return
	}
	if s.senderCancel != nil {
		s.senderCancel()
	}
	if s.streamCapturer != nil {
		s.streamCapturer.Stop()
	}
	if s.batchCapturer != nil {
		s.batchCapturer.StopToBytes()
	}
	if s.streamSession != nil {
		if err := s.streamSession.Close(); err != nil {
			log.Warn("orchestrator: close stale recognizer session", "err", err)
		}
	}
	if s.senderDone != nil {
		select {
		case <-s.senderDone:
		case <-time.After(senderDrainTimeout):
			log.Warn("orchestrator: stale audio-sender task did not drain in time")
		}
	}
}

// Config wires every collaborator the Orchestrator composes. Probe,
// Bindings, and PrimaryBatch are required; everything else has a
// documented zero-value behaviour.
type Config struct {
	Probe    platform.Probe
	Overlay  overlay.Controller // nil -> overlay.LoggingController
	Log      logging.Logger     // nil -> logging.NoOpLogger
	Counters *usage.Counters    // nil disables usage persistence

	Bindings *keys.DualBinding

	StreamingPreferred bool
	StreamClient       asr.StreamingClient // nil disables the streaming path entirely

	PrimaryBatch   asr.BatchClient
	SecondaryBatch asr.BatchClient // nil disables the race; PrimaryBatch alone is the fallback
	EnableFallback bool

	DictationRewriter pipeline.Rewriter // nil: dictation never polishes
	AssistantRewriter pipeline.Rewriter // nil: assistant mode always errors
}

// Orchestrator implements §4.8. Construct with New, start with Activate,
// consume Events() for UI updates.
type Orchestrator struct {
	probe    platform.Probe
	overlay  overlay.Controller
	log      logging.Logger
	counters *usage.Counters
	engine   *hotkey.Engine

	streamingPreferred bool
	streamClient       asr.StreamingClient
	primaryBatch       asr.BatchClient
	secondaryBatch     asr.BatchClient
	enableFallback     bool

	dictationRewriter pipeline.Rewriter
	assistantRewriter pipeline.Rewriter

	events chan Event

	active            atomic.Bool
	isRecordingLocked atomic.Bool
	isProcessingStop  atomic.Bool

	runMu     sync.Mutex
	runCancel context.CancelFunc

	sessMu sync.Mutex
	sess   *recordingSession
}

// New validates cfg.Bindings and wires a hotkey.Engine whose callbacks
// dispatch straight back into the Orchestrator. The engine is not started
// until Activate is called.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Log == nil {
		cfg.Log = logging.NoOpLogger{}
	}
	if cfg.Overlay == nil {
		cfg.Overlay = overlay.NewLoggingController(cfg.Log)
	}
	if cfg.PrimaryBatch == nil {
		return nil, fmt.Errorf("orchestrator: PrimaryBatch is required")
	}

	o := &Orchestrator{
		probe:              cfg.Probe,
		overlay:            cfg.Overlay,
		log:                cfg.Log,
		counters:           cfg.Counters,
		streamingPreferred: cfg.StreamingPreferred,
		streamClient:       cfg.StreamClient,
		primaryBatch:       cfg.PrimaryBatch,
		secondaryBatch:     cfg.SecondaryBatch,
		enableFallback:     cfg.EnableFallback,
		dictationRewriter:  cfg.DictationRewriter,
		assistantRewriter:  cfg.AssistantRewriter,
		events:             make(chan Event, 64),
	}

	engine, err := hotkey.NewEngine(cfg.Probe, cfg.Bindings, hotkey.Callbacks{
		OnStart: func(role keys.Role, viaLock bool) {
			if o.active.Load() {
				go o.handleStart(role, viaLock)
			}
		},
		OnStop: func(role keys.Role, viaLock bool) {
			if o.active.Load() {
				go o.handleStop(role, viaLock)
			}
		},
		OnCancel: func(role keys.Role, viaLock bool) { go o.handleCancel(role, viaLock) },
	}, cfg.Log)
	if err != nil {
		return nil, err
	}
	o.engine = engine
	return o, nil
}

// Events returns the channel the UI bridge consumes status notifications
// from. Sends are non-blocking: a stalled consumer drops events rather than
// stalling a recording session.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) emit(t EventType, role keys.Role, data any) {
	select {
	case o.events <- Event{Type: t, Role: role, Data: data}:
	default:
		o.log.Warn("orchestrator: event channel full, dropping event", "type", t)
	}
}

// roleEvents adapts the Orchestrator to pipeline.Events for one dispatch,
// tagging emitted events with the role that produced them.
type roleEvents struct {
	o    *Orchestrator
	role keys.Role
}

func (e roleEvents) EmitPostProcessing() { e.o.emit(EventPostProcessing, e.role, nil) }

// Activate starts the hotkey observer (the §6 start_app command). Calling
// Activate twice without an intervening Deactivate is a no-op error.
func (o *Orchestrator) Activate() error {
	if !o.active.CompareAndSwap(false, true) {
		return fmt.Errorf("orchestrator: already active")
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.runMu.Lock()
	o.runCancel = cancel
	o.runMu.Unlock()
	go o.engine.Run(ctx)
	return nil
}

// Deactivate stops the hotkey observer and unconditionally tears down any
// in-flight session (the §6 stop_app command). After Deactivate returns, no
// further on_start/on_stop callbacks fire for any key event (testable
// property 6); the observer goroutine itself is allowed to linger briefly
// while its ctx.Done() is observed, per §9's note that native hooks are
// torn down lazily, never forcibly.
func (o *Orchestrator) Deactivate() {
	if !o.active.CompareAndSwap(true, false) {
		return
	}
	o.runMu.Lock()
	cancel := o.runCancel
	o.runCancel = nil
	o.runMu.Unlock()
	if cancel != nil {
		cancel()
	}

	o.sessMu.Lock()
	sess := o.sess
	o.sess = nil
	o.sessMu.Unlock()
	sess.teardown(o.log)

	o.isRecordingLocked.Store(false)
	o.isProcessingStop.Store(false)
}

// CancelTranscription cancels whatever session is active (§6
// cancel_transcription).
func (o *Orchestrator) CancelTranscription() { o.engine.CancelCurrent() }

// FinishLockedRecording commits a release-lock session (§6
// finish_locked_recording).
func (o *Orchestrator) FinishLockedRecording() { o.engine.FinishLocked() }

// CancelLockedRecording cancels a release-lock session (§6
// cancel_locked_recording).
func (o *Orchestrator) CancelLockedRecording() { o.engine.CancelLocked() }

// ShowOverlay / HideOverlay pass the §6 show_overlay/hide_overlay commands
// straight through to the overlay controller.
func (o *Orchestrator) ShowOverlay()       { o.overlay.Show() }
func (o *Orchestrator) HideOverlay() error { return o.overlay.Hide() }

// ResetHotkeyState implements §6's reset_hotkey_state: it cancels any
// in-flight session and clears every flag the hotkey-driven lifecycle
// depends on, recovering from a wedged state without requiring a restart.
func (o *Orchestrator) ResetHotkeyState() {
	o.engine.CancelCurrent()
	o.isRecordingLocked.Store(false)
	o.isProcessingStop.Store(false)
}

// GetHotkeyDebugInfo implements §6's get_hotkey_debug_info.
func (o *Orchestrator) GetHotkeyDebugInfo() string {
	return fmt.Sprintf(
		"recording=%v locked=%v processing_stop=%v",
		o.engine.IsRecording(), o.isRecordingLocked.Load(), o.isProcessingStop.Load(),
	)
}

// handleStart implements §4.8's on_start. It always runs on its own
// goroutine (dispatched from the observer tick) so it is free to block on
// device/network I/O without stalling the hotkey engine.
func (o *Orchestrator) handleStart(role keys.Role, viaReleaseLock bool) {
	if o.isRecordingLocked.Load() {
		o.log.Debug("orchestrator: ignoring start, a lock is already in effect")
		return
	}

	sess := &recordingSession{role: role, viaReleaseLock: viaReleaseLock, startedAt: time.Now()}

	o.sessMu.Lock()
	stale := o.sess
	o.sess = sess
	o.sessMu.Unlock()
	stale.teardown(o.log)

	o.emit(EventRecordingStarted, role, nil)
	o.overlay.Show()

	var startErr error
	if o.streamingPreferred && o.streamClient != nil {
		startErr = o.startStreaming(sess)
	} else {
		startErr = o.startBatch(sess)
	}
	if startErr != nil {
		o.log.Error("orchestrator: failed to open audio capture", "err", startErr)
		o.emit(EventError, role, fmt.Sprintf("could not start recording: %v", startErr))
		if err := o.overlay.Hide(); err != nil {
			o.log.Warn("orchestrator: overlay hide after capture failure", "err", err)
		}
		o.clearSessionIf(sess)
		return
	}

	if viaReleaseLock && role == keys.RoleDictation {
		o.isRecordingLocked.Store(true)
		o.emit(EventRecordingLocked, role, nil)
	}
}

func (o *Orchestrator) startStreaming(sess *recordingSession) error {
	ctx, cancel := context.WithCancel(context.Background())
	streamSess, err := o.streamClient.StartSession(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("start recognizer session: %w", err)
	}

	chunks, err := func() (<-chan []byte, error) {
		streamCap := newStreamingCapturer(o.log)
		ch, err := streamCap.Start()
		if err != nil {
			return nil, err
		}
		sess.streamCapturer = streamCap
		return ch, nil
	}()
	if err != nil {
		cancel()
		_ = streamSess.Close()
		return fmt.Errorf("open audio device: %w", err)
	}

	sess.capturedVia = CapturedViaStreamingChunks
	sess.streamSession = streamSess
	sess.senderCancel = cancel
	done := make(chan struct{})
	sess.senderDone = done
	go o.runSender(ctx, streamSess, chunks, done)
	return nil
}

func (o *Orchestrator) startBatch(sess *recordingSession) error {
	bc := newBatchCapturer(o.log)
	if err := bc.Start(); err != nil {
		return err
	}
	sess.capturedVia = CapturedViaBatchBuffer
	sess.batchCapturer = bc
	return nil
}

// runSender ferries chunks from the capturer to the recognizer session
// until either side closes, logging progress every 10 chunks per §4.8 step
// 4. drainSession stops the capturer (closing chunks) and waits on
// senderDone before it calls Finish and AwaitFinalText, so the sender has
// returned by then unless senderDrainTimeout expired first.
func (o *Orchestrator) runSender(ctx context.Context, sess asr.Session, chunks <-chan []byte, done chan struct{}) {
	defer close(done)
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if err := sess.SendChunk(ctx, chunk); err != nil {
				o.log.Warn("orchestrator: audio sender send failed", "err", err)
				return
			}
			count++
			if count%10 == 0 {
				o.log.Debug("orchestrator: audio sender progress", "chunks", count)
			}
		}
	}
}

// handleStop implements §4.8's on_stop / on external finish. The CAS on
// isProcessingStop serialises the hotkey-driven stop against an external
// finish_locked_recording call racing in on the same session.
func (o *Orchestrator) handleStop(role keys.Role, viaReleaseLock bool) {
	if !o.isProcessingStop.CompareAndSwap(false, true) {
		return
	}
	defer o.isProcessingStop.Store(false)

	o.sessMu.Lock()
	sess := o.sess
	o.sessMu.Unlock()
	if sess == nil {
		return
	}

	// §4.8 step 7: hotkey state resets on stop regardless of outcome, so a
	// committed release-lock session doesn't strand isRecordingLocked and
	// block every subsequent handleStart.
	o.isRecordingLocked.Store(false)

	o.emit(EventRecordingStopped, role, nil)

	var selectionGuard *clipboard.Guard
	var selectionText string
	if role == keys.RoleAiAssistant {
		// §4.9: selection capture must happen after the user's physical
		// keys have fully released, or the synthetic copy chord collides
		// with still-held modifiers.
		time.Sleep(100 * time.Millisecond)
		g, text, err := clipboard.CaptureSelection(o.probe)
		if err != nil {
			o.log.Warn("orchestrator: selection capture failed", "err", err)
		} else {
			selectionGuard, selectionText = g, text
		}
	}

	ctx := context.Background()
	asrText, wav, asrErr := o.drainSession(ctx, sess)
	recordingMs := time.Since(sess.startedAt).Milliseconds()

	o.emit(EventTranscribing, role, nil)

	if asrErr != nil && len(wav) > 0 && o.primaryBatch != nil {
		if o.secondaryBatch != nil && o.enableFallback {
			asrText, asrErr = asr.Race(ctx, o.log, o.primaryBatch, o.secondaryBatch, wav)
		} else {
			asrText, asrErr = o.primaryBatch.TranscribeBytes(ctx, wav)
		}
	}
	asrTimeMs := time.Since(sess.startedAt).Milliseconds()

	o.clearSessionIf(sess)

	if asrErr != nil {
		if errors.Is(asrErr, asr.ErrEmptyRecording) {
			o.finishAsCancelled(role, selectionGuard)
			return
		}
		o.log.Error("orchestrator: recognition failed", "err", asrErr)
		o.emit(EventError, role, fmt.Sprintf("recognition failed: %v", asrErr))
		selectionGuard.Release()
		if err := o.overlay.Hide(); err != nil {
			o.log.Warn("orchestrator: overlay hide after recognition failure", "err", err)
		}
		return
	}

	result, err := o.dispatchPipeline(ctx, role, asrText, asrTimeMs, selectionGuard, selectionText)
	if err != nil {
		o.log.Error("orchestrator: pipeline failed", "err", err)
		o.emit(EventError, role, fmt.Sprintf("processing failed: %v", err))
		return
	}
	if !result.Inserted {
		o.emit(EventError, role, "could not insert recognized text")
	}
	o.emit(EventTranscriptionComplete, role, result)

	if o.counters != nil {
		if err := o.counters.UpdateAndSave(recordingMs, int64(len([]rune(result.Text)))); err != nil {
			o.log.Warn("orchestrator: usage counters update failed", "err", err)
		}
	}
}

// drainSession implements §4.8 step 3: stop the capturer to obtain the full
// WAV for fallback, await the audio-sender task, then finish/commit the
// streaming session and await its final text.
func (o *Orchestrator) drainSession(ctx context.Context, sess *recordingSession) (string, []byte, error) {
	if sess.streamSession == nil {
		// Batch-only session: no streaming text exists, so the caller
		// always falls through to the batch race path below.
		wav := sess.batchCapturer.StopToBytes()
		return "", wav, fmt.Errorf("orchestrator: no streaming session active")
	}

	var wav []byte
	if sess.streamCapturer != nil {
		wav = sess.streamCapturer.Stop()
	}

	if sess.senderDone != nil {
		select {
		case <-sess.senderDone:
		case <-time.After(senderDrainTimeout):
			o.log.Warn("orchestrator: audio-sender task did not drain in time")
		}
	}
	if sess.senderCancel != nil {
		sess.senderCancel()
	}

	if err := sess.streamSession.Finish(ctx); err != nil {
		o.log.Warn("orchestrator: recognizer finish failed", "err", err)
	}
	text, err := sess.streamSession.AwaitFinalText(ctx)
	if closeErr := sess.streamSession.Close(); closeErr != nil {
		o.log.Warn("orchestrator: close recognizer session", "err", closeErr)
	}

	return text, wav, err
}

// dispatchPipeline implements §4.8 step 6.
func (o *Orchestrator) dispatchPipeline(ctx context.Context, role keys.Role, asrText string, asrTimeMs int64, selectionGuard *clipboard.Guard, selectionText string) (*pipeline.Result, error) {
	events := roleEvents{o: o, role: role}

	if role == keys.RoleDictation {
		d := &pipeline.Dictation{
			Probe:    o.probe,
			Overlay:  o.overlay,
			Rewriter: o.dictationRewriter,
			Events:   events,
			Log:      o.log,
		}
		return runDictationPipeline(ctx, d, asrText, asrTimeMs)
	}

	if o.assistantRewriter == nil {
		selectionGuard.Release()
		return nil, fmt.Errorf("assistant rewriter is not configured")
	}
	guard := selectionGuard
	if guard == nil {
		g, err := clipboard.Acquire()
		if err != nil {
			return nil, fmt.Errorf("acquire clipboard guard: %w", err)
		}
		guard = g
	}
	a := &pipeline.Assistant{
		Probe:    o.probe,
		Overlay:  o.overlay,
		Rewriter: o.assistantRewriter,
		Events:   events,
		Log:      o.log,
	}
	return runAssistantPipeline(ctx, a, asrText, guard, selectionText, asrTimeMs)
}

// finishAsCancelled implements §7's RecognizerEmpty handling: treated
// identically to a user cancellation.
func (o *Orchestrator) finishAsCancelled(role keys.Role, selectionGuard *clipboard.Guard) {
	selectionGuard.Release()
	if err := o.overlay.Hide(); err != nil {
		o.log.Warn("orchestrator: overlay hide after empty recording", "err", err)
	}
	o.isRecordingLocked.Store(false)
	o.emit(EventTranscriptionCancelled, role, nil)
}

// handleCancel implements §4.8's on_cancel.
func (o *Orchestrator) handleCancel(role keys.Role, viaReleaseLock bool) {
	o.sessMu.Lock()
	sess := o.sess
	o.sess = nil
	o.sessMu.Unlock()
	if sess == nil {
		return
	}

	sess.teardown(o.log)

	if err := o.overlay.Hide(); err != nil {
		time.Sleep(overlayHideRetryDelay)
		if err2 := o.overlay.Hide(); err2 != nil {
			o.log.Warn("orchestrator: overlay hide failed after retry", "err", err2)
		}
	}

	o.isRecordingLocked.Store(false)
	o.emit(EventTranscriptionCancelled, role, nil)
}

func (o *Orchestrator) clearSessionIf(sess *recordingSession) {
	o.sessMu.Lock()
	defer o.sessMu.Unlock()
	if o.sess == sess {
		o.sess = nil
	}
}

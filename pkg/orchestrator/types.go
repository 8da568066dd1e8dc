// Package orchestrator wires every other package into one recording
// session lifecycle: the hotkey engine's start/stop/cancel callbacks drive
// capture, recognition, the race fallback, the pipeline, and the usage
// counters, per §4.8.
package orchestrator

import "github.com/pushtotalk/pushtotalkd/pkg/keys"

// CaptureKind records which capturer variant produced a session's audio.
type CaptureKind int

const (
	CapturedViaBatchBuffer CaptureKind = iota
	CapturedViaStreamingChunks
)

// EventType enumerates the UI-facing events the orchestrator emits.
type EventType string

const (
	EventRecordingStarted       EventType = "recording_started"
	EventRecordingLocked        EventType = "recording_locked"
	EventRecordingStopped       EventType = "recording_stopped"
	EventTranscribing           EventType = "transcribing"
	EventPostProcessing         EventType = "post_processing"
	EventTranscriptionCancelled EventType = "transcription_cancelled"
	EventTranscriptionComplete  EventType = "transcription_complete"
	EventError                  EventType = "error"
)

// Event is a single orchestrator status notification; Data's shape depends
// on Type (e.g. a *pipeline.Result on completion, an error string on
// EventError).
type Event struct {
	Type EventType
	Role keys.Role
	Data any
}

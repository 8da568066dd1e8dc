package asr

import "errors"

// ErrEmptyRecording is returned by a batch client when the backend's
// "transcript" is actually an echo of the submitted hot-word dictionary —
// the §4.4 Qwen-specific hazard. The orchestrator treats this identically
// to a user cancellation: no injection, no transcription_complete event.
var ErrEmptyRecording = errors.New("asr: recording produced no speech")

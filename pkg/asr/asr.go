// Package asr implements the recognizer clients from §4.4: batch HTTP
// clients (one per backend) and streaming WebSocket sessions, plus the
// race strategy that arbitrates between two batch clients in §4.5.
package asr

import (
	"context"
	"strings"
)

// BatchClient speaks to one cloud batch-recognition backend. A hot-word
// dictionary may be supplied at construction and mutated at runtime via
// SetDictionary (the original's "hot-reload" behaviour, carried forward per
// SPEC_FULL.md's supplemented-features section).
type BatchClient interface {
	TranscribeBytes(ctx context.Context, wav []byte) (string, error)
	SetDictionary(words []string)
	Name() string
}

// Session is a half-duplex streaming recognition session: audio in, one
// eventual text result out. Protocol-level ack/status frames are absorbed
// internally by the implementation.
type Session interface {
	SendChunk(ctx context.Context, pcm []byte) error
	// Finish signals no more audio is coming (backends call this "finish"
	// or "commit"; the meaning is identical).
	Finish(ctx context.Context) error
	AwaitFinalText(ctx context.Context) (string, error)
	Close() error
}

// StreamingClient opens new streaming sessions against one backend.
type StreamingClient interface {
	StartSession(ctx context.Context) (Session, error)
	Name() string
}

// stripTrailingPunctuation removes common sentence-final punctuation (ASCII
// and the CJK full-width variants used by the upstream backends) that every
// batch client is required to strip before returning its text.
func stripTrailingPunctuation(s string) string {
	return strings.TrimRight(s, ".,!?;:。，！？；：、 \t\n")
}

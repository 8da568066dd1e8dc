// Package pipeline implements the post-recognition stage that decides how
// to transform ASR text and where to insert it, per §4.9: the dictation
// pipeline (optional rewriter, plain insert) and the assistant pipeline
// (mandatory rewriter, selection-aware insert).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pushtotalk/pushtotalkd/pkg/clipboard"
	"github.com/pushtotalk/pushtotalkd/pkg/logging"
	"github.com/pushtotalk/pushtotalkd/pkg/overlay"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
)

// Mode tags which pipeline produced a Result.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAssistant
)

func (m Mode) String() string {
	if m == ModeAssistant {
		return "assistant"
	}
	return "normal"
}

// focusSettleDelay is how long the pipeline waits after hiding the overlay
// for focus to return to the target app before synthesizing paste, per
// §4.9.
const focusSettleDelay = 150 * time.Millisecond

// acquireGuard / insertText are swappable seams so tests can exercise the
// pipelines' control flow without touching a real OS clipboard.
var (
	acquireGuard = clipboard.Acquire
	insertText   = clipboard.InsertText
)

// Result mirrors the §3 "Transcription result" record.
type Result struct {
	Text         string
	OriginalText string // set only when a rewriter transformed the text
	ASRTimeMs    int64
	LLMTimeMs    *int64
	TotalTimeMs  int64
	Mode         Mode
	Inserted     bool
}

// Rewriter is the subset of llm.Rewriter each pipeline depends on.
type Rewriter interface {
	Polish(ctx context.Context, text string) (string, error)
	AssistantQA(ctx context.Context, instruction string) (string, error)
	AssistantTextOp(ctx context.Context, instruction, selection string) (string, error)
}

// Events lets pipelines emit UI status without depending on the
// orchestrator directly.
type Events interface {
	EmitPostProcessing()
}

type noOpEvents struct{}

func (noOpEvents) EmitPostProcessing() {}

// Dictation implements §4.9's dictation pipeline.
type Dictation struct {
	Probe    platform.Probe
	Overlay  overlay.Controller
	Rewriter Rewriter // nil if the rewriter is disabled
	Events   Events
	Log      logging.Logger
}

// Run executes the dictation pipeline: optional polish, hide overlay, wait
// for focus, insert with no selection.
func (p *Dictation) Run(ctx context.Context, asrText string, asrTimeMs int64) (*Result, error) {
	start := time.Now()
	events := p.events()
	log := p.log()

	text := asrText
	var originalText string
	var llmMs *int64

	if p.Rewriter != nil {
		events.EmitPostProcessing()
		t0 := time.Now()
		polished, err := p.Rewriter.Polish(ctx, asrText)
		elapsed := time.Since(t0).Milliseconds()
		if err != nil {
			log.Warn("dictation: polish failed, using raw ASR text", "error", err)
		} else {
			originalText = asrText
			text = polished
			llmMs = &elapsed
		}
	}

	if err := p.Overlay.Hide(); err != nil {
		log.Warn("dictation: overlay hide failed", "error", err)
	}
	time.Sleep(focusSettleDelay)

	guard, err := acquireGuard()
	if err != nil {
		return nil, fmt.Errorf("dictation: acquire clipboard guard: %w", err)
	}
	inserted := true
	if err := insertText(p.Probe, text, false, guard); err != nil {
		log.Warn("dictation: insert failed", "error", err)
		inserted = false
	}

	return &Result{
		Text:         text,
		OriginalText: originalText,
		ASRTimeMs:    asrTimeMs,
		LLMTimeMs:    llmMs,
		TotalTimeMs:  time.Since(start).Milliseconds() + asrTimeMs,
		Mode:         ModeNormal,
		Inserted:     inserted,
	}, nil
}

func (p *Dictation) events() Events {
	if p.Events == nil {
		return noOpEvents{}
	}
	return p.Events
}

func (p *Dictation) log() logging.Logger {
	if p.Log == nil {
		return logging.NoOpLogger{}
	}
	return p.Log
}

// Assistant implements §4.9's assistant pipeline: the rewriter is mandatory
// here, so a rewriter failure surfaces as an error with no fallback and no
// injection.
type Assistant struct {
	Probe    platform.Probe
	Overlay  overlay.Controller
	Rewriter Rewriter
	Events   Events
	Log      logging.Logger
}

// Run executes the assistant pipeline. selectionGuard/selectionText come
// from clipboard.CaptureSelection, performed by the caller after the
// session's physical keys have fully released (see §4.9's selection-capture
// timing note) — selectionText == "" means no selection was captured.
func (p *Assistant) Run(ctx context.Context, instruction string, selectionGuard *clipboard.Guard, selectionText string, asrTimeMs int64) (*Result, error) {
	start := time.Now()
	events := p.events()
	log := p.log()

	events.EmitPostProcessing()

	t0 := time.Now()
	var text string
	var err error
	hasSelection := selectionText != ""
	if hasSelection {
		text, err = p.Rewriter.AssistantTextOp(ctx, instruction, selectionText)
	} else {
		text, err = p.Rewriter.AssistantQA(ctx, instruction)
	}
	llmMs := time.Since(t0).Milliseconds()
	if err != nil {
		selectionGuard.Release()
		return nil, fmt.Errorf("assistant: rewriter failed: %w", err)
	}

	if err := p.Overlay.Hide(); err != nil {
		log.Warn("assistant: overlay hide failed", "error", err)
	}
	time.Sleep(focusSettleDelay)

	inserted := true
	if err := insertText(p.Probe, text, hasSelection, selectionGuard); err != nil {
		log.Warn("assistant: insert failed", "error", err)
		inserted = false
	}

	return &Result{
		Text:        text,
		ASRTimeMs:   asrTimeMs,
		LLMTimeMs:   &llmMs,
		TotalTimeMs: time.Since(start).Milliseconds() + asrTimeMs,
		Mode:        ModeAssistant,
		Inserted:    inserted,
	}, nil
}

func (p *Assistant) events() Events {
	if p.Events == nil {
		return noOpEvents{}
	}
	return p.Events
}

func (p *Assistant) log() logging.Logger {
	if p.Log == nil {
		return logging.NoOpLogger{}
	}
	return p.Log
}

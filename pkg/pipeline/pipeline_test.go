package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pushtotalk/pushtotalkd/pkg/clipboard"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
)

type fakeOverlay struct {
	hidden  bool
	hideErr error
}

func (f *fakeOverlay) Show()             {}
func (f *fakeOverlay) Hide() error       { f.hidden = true; return f.hideErr }
func (f *fakeOverlay) IsVisible() bool   { return !f.hidden }

type fakeRewriter struct {
	polishOut string
	polishErr error

	qaOut  string
	qaErr  error
	opOut  string
	opErr  error

	lastInstruction string
	lastSelection   string
}

func (f *fakeRewriter) Polish(_ context.Context, text string) (string, error) {
	return f.polishOut, f.polishErr
}
func (f *fakeRewriter) AssistantQA(_ context.Context, instruction string) (string, error) {
	f.lastInstruction = instruction
	return f.qaOut, f.qaErr
}
func (f *fakeRewriter) AssistantTextOp(_ context.Context, instruction, selection string) (string, error) {
	f.lastInstruction = instruction
	f.lastSelection = selection
	return f.opOut, f.opErr
}

type fakeEvents struct{ emitted int }

func (f *fakeEvents) EmitPostProcessing() { f.emitted++ }

func withFakeClipboard(t *testing.T) *bool {
	t.Helper()
	inserted := false
	origAcquire, origInsert := acquireGuard, insertText
	acquireGuard = func() (*clipboard.Guard, error) { return &clipboard.Guard{}, nil }
	insertText = func(_ platform.Probe, _ string, _ bool, _ *clipboard.Guard) error {
		inserted = true
		return nil
	}
	t.Cleanup(func() {
		acquireGuard = origAcquire
		insertText = origInsert
	})
	return &inserted
}

func TestDictationPipelinePolishesAndInserts(t *testing.T) {
	inserted := withFakeClipboard(t)
	ov := &fakeOverlay{}
	rw := &fakeRewriter{polishOut: "Hello, world."}
	ev := &fakeEvents{}

	d := &Dictation{Overlay: ov, Rewriter: rw, Events: ev}
	res, err := d.Run(context.Background(), "hello world", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Hello, world." {
		t.Fatalf("expected polished text, got %q", res.Text)
	}
	if res.OriginalText != "hello world" {
		t.Fatalf("expected original text preserved, got %q", res.OriginalText)
	}
	if res.LLMTimeMs == nil {
		t.Fatal("expected llm time to be recorded")
	}
	if !*inserted {
		t.Fatal("expected text to be inserted")
	}
	if !ov.hidden {
		t.Fatal("expected overlay to be hidden")
	}
	if ev.emitted != 1 {
		t.Fatalf("expected one post_processing emission, got %d", ev.emitted)
	}
	if res.Mode != ModeNormal {
		t.Fatalf("expected normal mode, got %v", res.Mode)
	}
}

func TestDictationPipelineFallsBackOnRewriterFailure(t *testing.T) {
	withFakeClipboard(t)
	rw := &fakeRewriter{polishErr: errors.New("backend down")}
	d := &Dictation{Overlay: &fakeOverlay{}, Rewriter: rw}

	res, err := d.Run(context.Background(), "raw text", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "raw text" {
		t.Fatalf("expected fallback to raw ASR text, got %q", res.Text)
	}
	if res.OriginalText != "" {
		t.Fatalf("expected no original_text when rewriter was not applied, got %q", res.OriginalText)
	}
	if res.LLMTimeMs != nil {
		t.Fatal("expected no llm time recorded on rewriter failure")
	}
}

func TestDictationPipelineNoRewriterConfigured(t *testing.T) {
	withFakeClipboard(t)
	d := &Dictation{Overlay: &fakeOverlay{}}

	res, err := d.Run(context.Background(), "plain text", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "plain text" {
		t.Fatalf("expected unmodified text, got %q", res.Text)
	}
}

func TestAssistantPipelineQAWhenNoSelection(t *testing.T) {
	withFakeClipboard(t)
	rw := &fakeRewriter{qaOut: "42"}
	a := &Assistant{Overlay: &fakeOverlay{}, Rewriter: rw}

	res, err := a.Run(context.Background(), "what is the answer", &clipboard.Guard{}, "", 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "42" {
		t.Fatalf("expected qa result, got %q", res.Text)
	}
	if rw.lastInstruction != "what is the answer" {
		t.Fatalf("expected instruction passed through, got %q", rw.lastInstruction)
	}
	if res.Mode != ModeAssistant {
		t.Fatalf("expected assistant mode, got %v", res.Mode)
	}
}

func TestAssistantPipelineTextOpWhenSelectionPresent(t *testing.T) {
	withFakeClipboard(t)
	rw := &fakeRewriter{opOut: "the cat"}
	a := &Assistant{Overlay: &fakeOverlay{}, Rewriter: rw}

	res, err := a.Run(context.Background(), "fix typos", &clipboard.Guard{}, "teh cat", 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "the cat" {
		t.Fatalf("expected text-op result, got %q", res.Text)
	}
	if rw.lastSelection != "teh cat" {
		t.Fatalf("expected selection passed through, got %q", rw.lastSelection)
	}
}

func TestAssistantPipelineRewriterFailureSurfacesNoInsertion(t *testing.T) {
	inserted := withFakeClipboard(t)
	rw := &fakeRewriter{qaErr: errors.New("rewriter down")}
	a := &Assistant{Overlay: &fakeOverlay{}, Rewriter: rw}

	_, err := a.Run(context.Background(), "instruction", &clipboard.Guard{}, "", 10)
	if err == nil {
		t.Fatal("expected rewriter failure to surface as an error with no fallback")
	}
	if *inserted {
		t.Fatal("expected no insertion on rewriter failure")
	}
}

func TestModeStringers(t *testing.T) {
	if ModeNormal.String() != "normal" || ModeAssistant.String() != "assistant" {
		t.Fatalf("unexpected mode strings: %q %q", ModeNormal, ModeAssistant)
	}
}

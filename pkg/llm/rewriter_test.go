package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	name   string
	result string
	err    error
	last   []Message
}

func (f *fakeClient) Name() string { return f.name }
func (f *fakeClient) Complete(_ context.Context, messages []Message) (string, error) {
	f.last = messages
	return f.result, f.err
}

func TestPolishUsesPresetSystemPrompt(t *testing.T) {
	client := &fakeClient{result: "Hello, world."}
	r := NewRewriter(client, client, "polish preset", "qa prompt", "textop prompt")

	out, err := r.Polish(context.Background(), "hello  world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello, world." {
		t.Fatalf("unexpected result: %q", out)
	}
	if client.last[0].Content != "polish preset" {
		t.Fatalf("expected polish preset as system message, got %q", client.last[0].Content)
	}
}

func TestAssistantQAUsesQAPrompt(t *testing.T) {
	client := &fakeClient{result: "42"}
	r := NewRewriter(client, client, "polish", "qa prompt", "textop prompt")

	if _, err := r.AssistantQA(context.Background(), "what is the answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.last[0].Content != "qa prompt" {
		t.Fatalf("expected qa prompt as system message, got %q", client.last[0].Content)
	}
}

func TestAssistantTextOpUsesTextOpPrompt(t *testing.T) {
	client := &fakeClient{result: "the cat"}
	r := NewRewriter(client, client, "polish", "qa prompt", "textop prompt")

	out, err := r.AssistantTextOp(context.Background(), "fix typos", "teh cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "the cat" {
		t.Fatalf("unexpected result: %q", out)
	}
	if client.last[0].Content != "textop prompt" {
		t.Fatalf("expected textop prompt as system message, got %q", client.last[0].Content)
	}
}

func TestPolishFailurePropagates(t *testing.T) {
	client := &fakeClient{err: errors.New("backend down")}
	r := NewRewriter(client, client, "polish", "qa", "textop")

	if _, err := r.Polish(context.Background(), "text"); err == nil {
		t.Fatal("expected error to propagate; caller decides fallback policy")
	}
}

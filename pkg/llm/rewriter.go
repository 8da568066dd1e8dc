package llm

import "context"

// Rewriter implements the §4.6 contract on top of a Client: polish uses the
// active preset's system prompt with text as the user message; the two
// assistant call shapes use distinct system prompts and user-message
// shapes.
type Rewriter struct {
	dictationClient Client
	assistantClient Client

	polishPrompt      string
	qaPrompt          string
	textOpPrompt      string
}

// NewRewriter builds a Rewriter. assistantClient may equal dictationClient
// when config points both at the same backend; they are kept distinct
// because the spec allows separate endpoint/model/key configuration for
// each.
func NewRewriter(dictationClient, assistantClient Client, polishPrompt, qaPrompt, textOpPrompt string) *Rewriter {
	return &Rewriter{
		dictationClient: dictationClient,
		assistantClient: assistantClient,
		polishPrompt:    polishPrompt,
		qaPrompt:        qaPrompt,
		textOpPrompt:    textOpPrompt,
	}
}

// Polish rewrites text using the active preset's system prompt. A rewriter
// failure here is non-fatal for the caller (dictation downgrades to the raw
// ASR text); this method only reports the error, it does not decide policy.
func (r *Rewriter) Polish(ctx context.Context, text string) (string, error) {
	return r.dictationClient.Complete(ctx, []Message{
		{Role: "system", Content: r.polishPrompt},
		{Role: "user", Content: text},
	})
}

// AssistantQA answers a user instruction with no selected-text context.
func (r *Rewriter) AssistantQA(ctx context.Context, instruction string) (string, error) {
	return r.assistantClient.Complete(ctx, []Message{
		{Role: "system", Content: r.qaPrompt},
		{Role: "user", Content: instruction},
	})
}

// AssistantTextOp applies a user instruction to a piece of selected text.
func (r *Rewriter) AssistantTextOp(ctx context.Context, instruction, selection string) (string, error) {
	return r.assistantClient.Complete(ctx, []Message{
		{Role: "system", Content: r.textOpPrompt},
		{Role: "user", Content: "Instruction: " + instruction + "\n\nText:\n" + selection},
	})
}

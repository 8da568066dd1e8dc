// Package llm implements the rewriter (LLM) client from §4.6: a uniform
// chat-completion contract with two concrete provider bindings, and a
// Rewriter that shapes the three call forms the pipelines need (polish,
// assistant Q&A, assistant text-op).
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is implemented by each concrete LLM backend.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

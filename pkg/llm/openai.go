package llm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// OpenAIClient speaks the OpenAI chat-completions shape; also used for any
// OpenAI-compatible endpoint (the dictation rewriter preset and the
// assistant endpoint can each point at a different URL/model of this
// shape).
type OpenAIClient struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

// NewOpenAIClient constructs a client; url defaults to the public OpenAI
// endpoint when empty so OpenAI-compatible self-hosted gateways can be
// pointed at directly via config.
func NewOpenAIClient(apiKey, url, model string) *OpenAIClient {
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{apiKey: apiKey, url: url, model: model, client: &http.Client{Timeout: 30 * time.Second}}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: backend returned status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

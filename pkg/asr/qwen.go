package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pushtotalk/pushtotalkd/pkg/logging"
)

const (
	qwenMaxRetries    = 2
	qwenRetryDelay    = 500 * time.Millisecond
	qwenDictionaryJoin = "、"
)

// QwenClient is the bearer-token-authenticated batch backend, grounded in
// original_source's asr/http/qwen.rs. It carries its own bounded retry loop
// rather than relying solely on the race strategy's, matching the source.
type QwenClient struct {
	apiKey string
	url    string
	model  string
	client *http.Client
	log    logging.Logger

	mu         sync.RWMutex
	dictionary []string
}

// NewQwenClient constructs a Qwen-shaped batch client.
func NewQwenClient(apiKey, model string, log logging.Logger) *QwenClient {
	if model == "" {
		model = "qwen-audio-asr"
	}
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &QwenClient{
		apiKey: apiKey,
		url:    "https://dashscope.aliyuncs.com/api/v1/services/audio/asr/transcription",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

func (c *QwenClient) Name() string { return "qwen" }

// SetDictionary hot-reloads the hot-word dictionary used for the system
// message and the dictionary-echo heuristic.
func (c *QwenClient) SetDictionary(words []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dictionary = words
}

func (c *QwenClient) corpusText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.dictionary) == 0 {
		return ""
	}
	return strings.Join(c.dictionary, qwenDictionaryJoin)
}

// TranscribeBytes retries up to qwenMaxRetries+1 times with a fixed delay
// between attempts, logging each attempt at debug level, before surfacing
// the last error.
func (c *QwenClient) TranscribeBytes(ctx context.Context, wav []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= qwenMaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("qwen: retrying transcription", "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(qwenRetryDelay):
			}
		}
		text, err := c.transcribeOnce(ctx, wav)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.log.Debug("qwen: attempt failed", "attempt", attempt+1, "err", err)
	}
	return "", fmt.Errorf("qwen: all attempts failed: %w", lastErr)
}

func (c *QwenClient) transcribeOnce(ctx context.Context, wav []byte) (string, error) {
	corpus := c.corpusText()
	audioB64 := base64.StdEncoding.EncodeToString(wav)

	messages := []map[string]string{}
	if corpus != "" {
		messages = append(messages, map[string]string{"role": "system", "content": corpus})
	}
	messages = append(messages, map[string]string{"role": "user", "content": audioB64})

	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qwen: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("qwen: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("qwen: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("qwen: backend returned status %d", resp.StatusCode)
	}

	var result struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("qwen: decode response: %w", err)
	}

	text := stripTrailingPunctuation(result.Output.Text)

	if corpus != "" && text == corpus {
		return "", fmt.Errorf("%w: backend echoed the hot-word dictionary", ErrEmptyRecording)
	}

	return text, nil
}

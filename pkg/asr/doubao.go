package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pushtotalk/pushtotalkd/pkg/logging"
)

const (
	doubaoResourceID   = "volc.bigasr.auc_turbo"
	doubaoStatusOK     = "20000000"
	doubaoMaxRetries   = 2
	doubaoRetryDelay   = 500 * time.Millisecond
)

// DoubaoClient is the X-Api-* header-authenticated batch backend, grounded
// in original_source's asr/http/doubao.rs.
type DoubaoClient struct {
	appID     string
	accessKey string
	url       string
	client    *http.Client
	log       logging.Logger

	mu         sync.RWMutex
	dictionary []string
}

// NewDoubaoClient constructs a Doubao-shaped batch client.
func NewDoubaoClient(appID, accessKey string, log logging.Logger) *DoubaoClient {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &DoubaoClient{
		appID:     appID,
		accessKey: accessKey,
		url:       "https://openspeech.bytedance.com/api/v3/auc/bigmodel/recognize/flash",
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

func (c *DoubaoClient) Name() string { return "doubao" }

// SetDictionary hot-reloads the hot-word dictionary.
func (c *DoubaoClient) SetDictionary(words []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dictionary = words
}

func (c *DoubaoClient) hotwordsContext() string {
	c.mu.RLock()
	words := c.dictionary
	c.mu.RUnlock()
	if len(words) == 0 {
		return ""
	}
	hotwords := make([]map[string]string, 0, len(words))
	for _, w := range words {
		hotwords = append(hotwords, map[string]string{"word": w})
	}
	b, err := json.Marshal(map[string]any{"hotwords": hotwords})
	if err != nil {
		return ""
	}
	return string(b)
}

// TranscribeBytes carries the same bounded-retry shape as the Qwen client
// so either backend can serve as a race strategy's primary or secondary.
func (c *DoubaoClient) TranscribeBytes(ctx context.Context, wav []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= doubaoMaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("doubao: retrying transcription", "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(doubaoRetryDelay):
			}
		}
		text, err := c.transcribeOnce(ctx, wav)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.log.Debug("doubao: attempt failed", "attempt", attempt+1, "err", err)
	}
	return "", fmt.Errorf("doubao: all attempts failed: %w", lastErr)
}

func (c *DoubaoClient) transcribeOnce(ctx context.Context, wav []byte) (string, error) {
	request := map[string]any{"model_name": "bigmodel"}
	if context := c.hotwordsContext(); context != "" {
		request["corpus"] = map[string]string{"context": context}
	}

	payload := map[string]any{
		"user":    map[string]string{"uid": c.appID},
		"audio":   map[string]string{"data": base64.StdEncoding.EncodeToString(wav)},
		"request": request,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("doubao: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("doubao: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-App-Key", c.appID)
	req.Header.Set("X-Api-Access-Key", c.accessKey)
	req.Header.Set("X-Api-Resource-Id", doubaoResourceID)
	req.Header.Set("X-Api-Request-Id", uuid.NewString())
	req.Header.Set("X-Api-Sequence", "-1")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("doubao: request failed: %w", err)
	}
	defer resp.Body.Close()

	statusCode := resp.Header.Get("X-Api-Status-Code")
	apiMessage := resp.Header.Get("X-Api-Message")
	c.log.Info("doubao: response headers", "status_code", statusCode, "message", apiMessage)

	if statusCode != doubaoStatusOK {
		return "", fmt.Errorf("doubao: backend failed (%s): %s", statusCode, apiMessage)
	}

	var result struct {
		Result struct {
			Text string `json:"text"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("doubao: decode response: %w", err)
	}

	return stripTrailingPunctuation(result.Result.Text), nil
}

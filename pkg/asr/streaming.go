package asr

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pushtotalk/pushtotalkd/pkg/logging"
)

// StreamingWSClient opens per-recording WebSocket sessions against a cloud
// streaming recognizer: audio frames go out as binary messages, the
// eventual transcript comes back as a text message.
type StreamingWSClient struct {
	name   string
	host   string
	path   string
	apiKey string
	log    logging.Logger
}

// NewStreamingWSClient constructs a streaming recognizer client for one
// backend, identified by host/path (e.g. a SenseVoice-shaped or
// Doubao-shaped streaming endpoint).
func NewStreamingWSClient(name, host, path, apiKey string, log logging.Logger) *StreamingWSClient {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &StreamingWSClient{name: name, host: host, path: path, apiKey: apiKey, log: log}
}

func (c *StreamingWSClient) Name() string { return c.name }

func (c *StreamingWSClient) StartSession(ctx context.Context) (Session, error) {
	u := url.URL{Scheme: "wss", Host: c.host, Path: c.path, RawQuery: "api_key=" + c.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", c.name, err)
	}

	s := &wsSession{
		name:   c.name,
		conn:   conn,
		log:    c.log,
		result: make(chan sessionResult, 1),
	}
	go s.readLoop()
	return s, nil
}

type sessionResult struct {
	text string
	err  error
}

type wsSession struct {
	name string
	conn *websocket.Conn
	log  logging.Logger

	mu     sync.Mutex
	closed bool
	result chan sessionResult
}

func (s *wsSession) SendChunk(ctx context.Context, pcm []byte) error {
	if err := s.conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		return fmt.Errorf("%s: send chunk: %w", s.name, err)
	}
	return nil
}

func (s *wsSession) Finish(ctx context.Context) error {
	if err := wsjson.Write(ctx, s.conn, map[string]string{"event": "finish"}); err != nil {
		return fmt.Errorf("%s: send finish: %w", s.name, err)
	}
	return nil
}

func (s *wsSession) readLoop() {
	ctx := context.Background()
	for {
		messageType, payload, err := s.conn.Read(ctx)
		if err != nil {
			s.emit(sessionResult{err: fmt.Errorf("%s: read: %w", s.name, err)})
			return
		}
		if messageType != websocket.MessageText {
			continue
		}
		msg := string(payload)
		if strings.HasPrefix(msg, "ERR:") {
			s.emit(sessionResult{err: fmt.Errorf("%s: backend error: %s", s.name, msg)})
			return
		}
		if msg == "EOS" || msg == "" {
			continue
		}
		s.emit(sessionResult{text: stripTrailingPunctuation(msg)})
		return
	}
}

func (s *wsSession) emit(r sessionResult) {
	select {
	case s.result <- r:
	default:
	}
}

// AwaitFinalText has no built-in timeout by design (§5): liveness relies on
// the backend eventually sending an end-of-utterance frame, or on ctx being
// cancelled by the caller (user cancel / orchestrator shutdown).
func (s *wsSession) AwaitFinalText(ctx context.Context) (string, error) {
	select {
	case r := <-s.result:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *wsSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

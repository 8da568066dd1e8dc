// Command pushtotalkd runs the push-to-talk daemon: it loads configuration,
// wires every collaborator pkg/orchestrator depends on, activates the
// hotkey engine, and logs status events until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pushtotalk/pushtotalkd/pkg/asr"
	"github.com/pushtotalk/pushtotalkd/pkg/config"
	"github.com/pushtotalk/pushtotalkd/pkg/llm"
	"github.com/pushtotalk/pushtotalkd/pkg/logging"
	"github.com/pushtotalk/pushtotalkd/pkg/orchestrator"
	"github.com/pushtotalk/pushtotalkd/pkg/overlay"
	"github.com/pushtotalk/pushtotalkd/pkg/pipeline"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
	"github.com/pushtotalk/pushtotalkd/pkg/usage"
)

func main() {
	minimized := flag.Bool("minimized", false, "start without showing the recording overlay")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "pushtotalkd: load .env: %v\n", err)
	}

	log := logging.New(os.Getenv("PUSHTOTALK_LOG_LEVEL"))

	if err := run(*minimized, log); err != nil {
		log.Error("pushtotalkd: fatal", "err", err)
		os.Exit(1)
	}
}

func run(minimized bool, log logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bindings, err := cfg.Hotkeys.ToDualBinding()
	if err != nil {
		return fmt.Errorf("resolve hotkeys: %w", err)
	}

	primaryBatch, err := newBatchClient(cfg.PrimaryASR, log)
	if err != nil {
		return fmt.Errorf("configure primary asr: %w", err)
	}

	var secondaryBatch asr.BatchClient
	if cfg.FallbackASR != nil {
		secondaryBatch, err = newBatchClient(*cfg.FallbackASR, log)
		if err != nil {
			return fmt.Errorf("configure fallback asr: %w", err)
		}
	}

	var streamClient asr.StreamingClient
	if cfg.StreamingPreferred {
		streamClient = newStreamingClient(cfg.PrimaryASR, log)
	}

	counters, err := usage.NewCounters()
	if err != nil {
		return fmt.Errorf("load usage counters: %w", err)
	}

	overlayCtl := overlay.NewLoggingController(log)

	orch, err := orchestrator.New(orchestrator.Config{
		Probe:              platform.New(),
		Overlay:            overlayCtl,
		Log:                log,
		Counters:           counters,
		Bindings:           bindings,
		StreamingPreferred: cfg.StreamingPreferred,
		StreamClient:       streamClient,
		PrimaryBatch:       primaryBatch,
		SecondaryBatch:     secondaryBatch,
		EnableFallback:     cfg.EnableFallback,
		DictationRewriter:  newDictationRewriter(cfg.Rewriter),
		AssistantRewriter:  newAssistantRewriter(cfg.Assistant),
	})
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	if err := orch.Activate(); err != nil {
		return fmt.Errorf("activate orchestrator: %w", err)
	}
	defer orch.Deactivate()

	if minimized {
		_ = orch.HideOverlay()
	}
	log.Info("pushtotalkd: ready", "streaming_preferred", cfg.StreamingPreferred)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("pushtotalkd: shutting down")
			return nil
		case ev, ok := <-orch.Events():
			if !ok {
				return nil
			}
			logEvent(log, ev)
		}
	}
}

func logEvent(log logging.Logger, ev orchestrator.Event) {
	if ev.Type == orchestrator.EventError {
		log.Error("pushtotalkd: event", "type", ev.Type, "role", ev.Role, "data", ev.Data)
		return
	}
	log.Debug("pushtotalkd: event", "type", ev.Type, "role", ev.Role)
}

// newBatchClient selects the batch recognizer implementation named by
// cfg.Provider; an empty provider defaults to the bearer-token backend.
func newBatchClient(cfg config.ASRProviderConfig, log logging.Logger) (asr.BatchClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "doubao":
		return asr.NewDoubaoClient(cfg.AppID, cfg.AccessKey, log), nil
	case "qwen", "":
		return asr.NewQwenClient(cfg.APIKey, "", log), nil
	default:
		return nil, fmt.Errorf("unknown asr provider %q", cfg.Provider)
	}
}

// streamingEndpoints carries the host/path pair for each backend's
// streaming counterpart, since StreamingWSClient (unlike the batch
// clients) takes them as constructor parameters rather than hardcoding
// one backend's URL internally.
var streamingEndpoints = map[string][2]string{
	"qwen":   {"dashscope.aliyuncs.com", "/api-ws/v1/inference/stream"},
	"doubao": {"openspeech.bytedance.com", "/api/v3/auc/bigmodel/stream"},
}

func newStreamingClient(cfg config.ASRProviderConfig, log logging.Logger) asr.StreamingClient {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "qwen"
	}
	ep, ok := streamingEndpoints[provider]
	if !ok {
		return nil
	}
	return asr.NewStreamingWSClient(provider, ep[0], ep[1], cfg.APIKey, log)
}

func newDictationRewriter(cfg config.RewriterConfig) pipeline.Rewriter {
	if !cfg.Enabled {
		return nil
	}
	client := newLLMClient(cfg.APIKey, cfg.Endpoint, cfg.Model)
	return llm.NewRewriter(client, client, cfg.ActivePresetPrompt(), "", "")
}

func newAssistantRewriter(cfg config.AssistantConfig) pipeline.Rewriter {
	if cfg.APIKey == "" {
		return nil
	}
	client := newLLMClient(cfg.APIKey, cfg.Endpoint, cfg.Model)
	return llm.NewRewriter(client, client, "", cfg.QAPrompt, cfg.TextOpPrompt)
}

// newLLMClient picks the Anthropic binding for an Anthropic-shaped
// endpoint and otherwise assumes an OpenAI-compatible chat-completions
// endpoint, covering both provider bindings pkg/llm exposes.
func newLLMClient(apiKey, endpoint, model string) llm.Client {
	if strings.Contains(strings.ToLower(endpoint), "anthropic") {
		return llm.NewAnthropicClient(apiKey, model)
	}
	return llm.NewOpenAIClient(apiKey, endpoint, model)
}

// Package config implements typed settings persistence: load/save of the
// JSON config file under the OS user-config directory, with forward
// migration from older on-disk shapes, per §3 and §6.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	json "github.com/goccy/go-json"

	"github.com/pushtotalk/pushtotalkd/pkg/keys"
)

// dirName is the subdirectory under the OS config dir, matching the
// original's dirs::config_dir().join("PushToTalk").
const dirName = "PushToTalk"

// ASRProviderConfig names one recognizer backend plus its credentials.
// AppID/AccessKey are only populated for the X-Api-* header backend; APIKey
// alone is used for the bearer-token backend.
type ASRProviderConfig struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"apiKey,omitempty"`
	AppID     string `json:"appId,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
}

// RewriterPreset is one named polish system prompt.
type RewriterPreset struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt"`
}

// RewriterConfig configures the dictation-mode rewriter.
type RewriterConfig struct {
	Enabled      bool             `json:"enabled"`
	Endpoint     string           `json:"endpoint"`
	Model        string           `json:"model"`
	APIKey       string           `json:"apiKey"`
	Presets      []RewriterPreset `json:"presets"`
	ActivePreset string           `json:"activePreset"`
}

// ActivePresetPrompt returns the system prompt for the configured active
// preset, or "" if none matches.
func (r RewriterConfig) ActivePresetPrompt() string {
	for _, p := range r.Presets {
		if p.Name == r.ActivePreset {
			return p.SystemPrompt
		}
	}
	return ""
}

// AssistantConfig configures the AI-assistant rewriter.
type AssistantConfig struct {
	Endpoint     string `json:"endpoint"`
	Model        string `json:"model"`
	APIKey       string `json:"apiKey"`
	QAPrompt     string `json:"qaPrompt"`
	TextOpPrompt string `json:"textOpPrompt"`
}

// CloseButtonBehaviour selects what the OS window-close gesture does.
type CloseButtonBehaviour string

const (
	CloseQuit       CloseButtonBehaviour = "quit"
	CloseHideToTray CloseButtonBehaviour = "hide_to_tray"
	CloseAsk        CloseButtonBehaviour = "ask"
)

// HotkeyConfig is the on-disk shape of one Binding (§3), serialized as key
// name strings rather than the keys.Key enum directly.
type HotkeyConfig struct {
	Keys        []string `json:"keys"`
	Mode        string   `json:"mode"` // "press" | "toggle"
	ReleaseLock []string `json:"releaseLock,omitempty"`
}

// DualHotkeyConfig is the on-disk shape of a DualBinding.
type DualHotkeyConfig struct {
	Dictation   HotkeyConfig `json:"dictation"`
	AiAssistant HotkeyConfig `json:"aiAssistant"`
}

// ToBinding resolves the on-disk key names into a runtime keys.Binding. It
// does not call Validate itself; callers validate the resulting
// keys.DualBinding as a whole so the subset-conflict invariant can be
// checked across both chords at once.
func (h HotkeyConfig) ToBinding() (*keys.Binding, error) {
	ks, err := keys.ParseKeys(h.Keys)
	if err != nil {
		return nil, fmt.Errorf("hotkey: %w", err)
	}
	b := keys.NewBinding(keys.ParseTriggerMode(h.Mode), ks...)
	if len(h.ReleaseLock) > 0 {
		lock, err := keys.ParseKeys(h.ReleaseLock)
		if err != nil {
			return nil, fmt.Errorf("hotkey release lock: %w", err)
		}
		b.WithReleaseLock(lock...)
	}
	return b, nil
}

// ToDualBinding resolves both chords and validates the resulting
// keys.DualBinding per §3's invariants, surfacing any violation as
// ConfigurationInvalid (§7) to the caller.
func (d DualHotkeyConfig) ToDualBinding() (*keys.DualBinding, error) {
	dictation, err := d.Dictation.ToBinding()
	if err != nil {
		return nil, fmt.Errorf("dictation: %w", err)
	}
	assistant, err := d.AiAssistant.ToBinding()
	if err != nil {
		return nil, fmt.Errorf("ai_assistant: %w", err)
	}
	db := &keys.DualBinding{Dictation: dictation, AiAssistant: assistant}
	if err := db.Validate(); err != nil {
		return nil, err
	}
	return db, nil
}

// Config is the full typed settings record, §3/§6.
type Config struct {
	PrimaryASR     ASRProviderConfig  `json:"primaryAsr"`
	FallbackASR    *ASRProviderConfig `json:"fallbackAsr,omitempty"`
	EnableFallback bool               `json:"enableFallback"`

	Hotkeys            DualHotkeyConfig `json:"hotkeys"`
	StreamingPreferred bool             `json:"streamingPreferred"`

	Rewriter  RewriterConfig  `json:"rewriter"`
	Assistant AssistantConfig `json:"assistant"`

	CloseButtonBehaviour CloseButtonBehaviour `json:"closeButtonBehaviour"`

	// Legacy fields, read only by migrate() then never written back.
	LegacyAPIKey       string                    `json:"apiKey,omitempty"`
	LegacyHotkey       []string                  `json:"hotkey,omitempty"`
	LegacySmartCommand *legacySmartCommandConfig `json:"smartCommandConfig,omitempty"`
}

type legacySmartCommandConfig struct {
	APIKey       string `json:"apiKey"`
	Endpoint     string `json:"endpoint"`
	Model        string `json:"model"`
	QAPrompt     string `json:"qaPrompt"`
	TextOpPrompt string `json:"textOpPrompt"`
}

// Default returns a config with conservative, fully-populated defaults —
// used both as the starting point for migrate() and when no file exists
// yet.
func Default() *Config {
	return &Config{
		PrimaryASR: ASRProviderConfig{Provider: "qwen"},
		Hotkeys: DualHotkeyConfig{
			Dictation:   HotkeyConfig{Keys: []string{"CtrlLeft", "SuperLeft"}, Mode: "press"},
			AiAssistant: HotkeyConfig{Keys: []string{"AltLeft", "Space"}, Mode: "press"},
		},
		StreamingPreferred:   true,
		CloseButtonBehaviour: CloseHideToTray,
	}
}

func path() (string, error) {
	dir, err := xdg.ConfigFile(filepath.Join(dirName, "config.json"))
	if err != nil {
		return "", fmt.Errorf("config: resolve config path: %w", err)
	}
	return dir, nil
}

// Load reads config.json, migrating legacy shapes forward. A missing file
// is not an error: it returns Default().
func Load() (*Config, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}
	return loadFrom(p)
}

// Save writes cfg to config.json, creating the config directory if needed.
func Save(cfg *Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	return saveTo(p, cfg)
}

func loadFrom(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", p, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", p, err)
	}

	// A second unmarshal onto a zero Config, used only to see which fields
	// were actually present on disk: cfg itself was seeded from Default()
	// before unmarshaling, so an absent "hotkeys" object looks identical to
	// an explicit one matching the default.
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", p, err)
	}
	migrate(cfg, &onDisk)
	return cfg, nil
}

func saveTo(p string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", p, err)
	}
	return nil
}

// migrate fills fields missing from older on-disk shapes from their legacy
// counterparts: single-hotkey -> dual-hotkey dictation slot; single API key
// -> primary provider config; legacy smart_command_config with a valid key
// -> assistant config. onDisk reflects only what was literally present in
// the source JSON (no Default() seeding), since cfg's own Hotkeys field is
// never actually empty by the time migrate runs.
func migrate(cfg *Config, onDisk *Config) {
	if len(cfg.LegacyHotkey) > 0 && len(onDisk.Hotkeys.Dictation.Keys) == 0 {
		cfg.Hotkeys.Dictation = HotkeyConfig{Keys: cfg.LegacyHotkey, Mode: "press"}
	}
	if cfg.LegacyAPIKey != "" && cfg.PrimaryASR.APIKey == "" {
		cfg.PrimaryASR.APIKey = cfg.LegacyAPIKey
	}
	if cfg.LegacySmartCommand != nil && cfg.LegacySmartCommand.APIKey != "" && cfg.Assistant.APIKey == "" {
		cfg.Assistant = AssistantConfig{
			Endpoint:     cfg.LegacySmartCommand.Endpoint,
			Model:        cfg.LegacySmartCommand.Model,
			APIKey:       cfg.LegacySmartCommand.APIKey,
			QAPrompt:     cfg.LegacySmartCommand.QAPrompt,
			TextOpPrompt: cfg.LegacySmartCommand.TextOpPrompt,
		}
	}
	cfg.LegacyAPIKey, cfg.LegacyHotkey, cfg.LegacySmartCommand = "", nil, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrimaryASR.Provider != "qwen" {
		t.Fatalf("expected default provider, got %q", cfg.PrimaryASR.Provider)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.PrimaryASR.APIKey = "secret"
	cfg.Rewriter.Enabled = true

	if err := saveTo(p, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := loadFrom(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PrimaryASR.APIKey != "secret" {
		t.Fatalf("expected api key to round-trip, got %q", loaded.PrimaryASR.APIKey)
	}
	if !loaded.Rewriter.Enabled {
		t.Fatal("expected rewriter.enabled to round-trip")
	}
}

func TestMigrateLegacyHotkey(t *testing.T) {
	cfg := &Config{LegacyHotkey: []string{"CtrlLeft", "SuperLeft"}}
	migrate(cfg, cfg)
	if len(cfg.Hotkeys.Dictation.Keys) != 2 {
		t.Fatalf("expected legacy hotkey migrated into dictation binding, got %+v", cfg.Hotkeys.Dictation)
	}
}

func TestMigrateLegacyAPIKey(t *testing.T) {
	cfg := &Config{LegacyAPIKey: "old-key"}
	migrate(cfg, cfg)
	if cfg.PrimaryASR.APIKey != "old-key" {
		t.Fatalf("expected legacy api key migrated into primary provider config, got %q", cfg.PrimaryASR.APIKey)
	}
}

func TestMigrateLegacySmartCommand(t *testing.T) {
	cfg := &Config{
		LegacySmartCommand: &legacySmartCommandConfig{
			APIKey:   "assistant-key",
			Endpoint: "https://example.com",
			Model:    "gpt-4o",
		},
	}
	migrate(cfg, cfg)
	if cfg.Assistant.APIKey != "assistant-key" {
		t.Fatalf("expected legacy smart_command_config migrated into assistant config, got %+v", cfg.Assistant)
	}
}

func TestMigrateDoesNotOverwriteExisting(t *testing.T) {
	cfg := &Config{
		LegacyAPIKey: "old-key",
		PrimaryASR:   ASRProviderConfig{APIKey: "already-set"},
	}
	migrate(cfg, cfg)
	if cfg.PrimaryASR.APIKey != "already-set" {
		t.Fatal("migrate must not overwrite an already-populated field")
	}
}

func TestLoadMigratesLegacyHotkeyFromDisk(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	legacy := []byte(`{"hotkey": ["CtrlLeft", "SuperLeft"]}`)
	if err := os.WriteFile(p, legacy, 0o600); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	cfg, err := loadFrom(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Hotkeys.Dictation.Keys) != 2 {
		t.Fatalf("expected on-disk legacy hotkey migrated into dictation binding, got %+v", cfg.Hotkeys.Dictation)
	}
	if cfg.Hotkeys.AiAssistant.Keys[0] != "AltLeft" {
		t.Fatalf("expected assistant binding to keep its default, got %+v", cfg.Hotkeys.AiAssistant)
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"arena/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ARENA_SERVER_URL", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "arena")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.StorePath() != filepath.Join(wantData, "arena.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.Transcription.Language != "pt" {
		t.Fatalf("expected default language pt, got %q", cfg.Transcription.Language)
	}
	if cfg.Transcription.MinChars != 50 {
		t.Fatalf("expected min chars 50, got %d", cfg.Transcription.MinChars)
	}
	if cfg.Analysis.FirstHalfEnd != 45 || cfg.Analysis.SecondHalfEnd != 90 {
		t.Fatalf("unexpected half bounds: %+v", cfg.Analysis)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.LockDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "arena.toml")
	t.Setenv("ARENA_SERVER_URL", "")

	type payload struct {
		Server struct {
			URL string `toml:"url"`
		} `toml:"server"`
		Sync struct {
			FunctionURL     string `toml:"function_url"`
			ServiceKey      string `toml:"service_key"`
			ConfirmAttempts int    `toml:"confirm_attempts"`
		} `toml:"sync"`
		Transcription struct {
			Language string `toml:"language"`
		} `toml:"transcription"`
	}
	custom := payload{}
	custom.Server.URL = "https://processing.example.com/"
	custom.Sync.FunctionURL = "https://functions.example.com/sync-match"
	custom.Sync.ServiceKey = "secret"
	custom.Sync.ConfirmAttempts = 9
	custom.Transcription.Language = "pt-BR"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Server.URL != "https://processing.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Server.URL)
	}
	if cfg.Sync.ConfirmAttempts != 9 {
		t.Fatalf("expected confirm attempts 9, got %d", cfg.Sync.ConfirmAttempts)
	}
	if cfg.Transcription.Language != "pt" {
		t.Fatalf("expected language normalized to base pt, got %q", cfg.Transcription.Language)
	}
	policy := cfg.Confirm()
	if policy.Attempts != 9 || policy.BaseDelay <= 0 || policy.MaxDelay < policy.BaseDelay {
		t.Fatalf("unexpected confirm policy: %+v", policy)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("ARENA_SERVER_URL", "https://env.example.com")
	t.Setenv("ARENA_SYNC_KEY", "env-key")
	t.Setenv("ARENA_NTFY_TOPIC", "https://ntfy.sh/arena-test")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.URL != "https://env.example.com" {
		t.Fatalf("expected server url from env, got %q", cfg.Server.URL)
	}
	if cfg.Sync.ServiceKey != "env-key" {
		t.Fatalf("expected sync key from env, got %q", cfg.Sync.ServiceKey)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/arena-test" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsMissingSyncKey(t *testing.T) {
	t.Setenv("ARENA_SYNC_KEY", "")
	cfg := config.Default()
	cfg.Sync.FunctionURL = "https://functions.example.com/sync"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing service key")
	}
	if !strings.Contains(err.Error(), "sync.service_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad scheme", func(c *config.Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"inverted first half", func(c *config.Config) { c.Analysis.FirstHalfEnd = 0 }, "first_half_end"},
		{"inverted second half", func(c *config.Config) { c.Analysis.SecondHalfEnd = 10 }, "second_half_end"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"no confirm attempts", func(c *config.Config) { c.Sync.ConfirmAttempts = 0 }, "confirm_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("ARENA_SERVER_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nurl="), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

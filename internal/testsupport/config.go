package testsupport

import (
	"path/filepath"
	"testing"

	"arena/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Confirm waits are shortened so tests exercising retries stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Server.URL = "http://127.0.0.1:1"
	cfgVal.Server.MaxRetries = 0
	cfgVal.Server.RetryBaseMillis = 1
	cfgVal.Sync.ConfirmAttempts = 3
	cfgVal.Sync.ConfirmBaseDelayMillis = 1
	cfgVal.Sync.ConfirmMaxDelayMillis = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServerURL points the processing service at url (usually an httptest server).
func WithServerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.URL = url
	}
}

// WithSyncFunction configures the fallback sync function endpoint and key.
func WithSyncFunction(url, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.FunctionURL = url
		b.cfg.Sync.ServiceKey = key
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

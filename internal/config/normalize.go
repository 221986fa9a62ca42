package config

import (
	"fmt"
	"os"
	"strings"

	"arena/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeSync()
	c.normalizeTranscription()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.URL = strings.TrimSpace(c.Server.URL)
	if value, ok := os.LookupEnv("ARENA_SERVER_URL"); ok && strings.TrimSpace(value) != "" {
		c.Server.URL = strings.TrimSpace(value)
	}
	if c.Server.URL == "" {
		c.Server.URL = defaultServerURL
	}
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
	c.Server.APIKey = strings.TrimSpace(c.Server.APIKey)
	if c.Server.APIKey == "" {
		if value, ok := os.LookupEnv("ARENA_SERVER_KEY"); ok {
			c.Server.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Server.TimeoutSeconds <= 0 {
		c.Server.TimeoutSeconds = defaultServerTimeoutSeconds
	}
	if c.Server.MaxRetries < 0 {
		c.Server.MaxRetries = 0
	}
	if c.Server.RetryBaseMillis <= 0 {
		c.Server.RetryBaseMillis = defaultServerRetryBaseMillis
	}
	if c.Server.TranscribeTimeout <= 0 {
		c.Server.TranscribeTimeout = defaultTranscribeTimeout
	}
}

func (c *Config) normalizeSync() {
	c.Sync.FunctionURL = strings.TrimSpace(c.Sync.FunctionURL)
	c.Sync.ServiceKey = strings.TrimSpace(c.Sync.ServiceKey)
	if c.Sync.ServiceKey == "" {
		if value, ok := os.LookupEnv("ARENA_SYNC_KEY"); ok {
			c.Sync.ServiceKey = strings.TrimSpace(value)
		}
	}
	if c.Sync.TimeoutSeconds <= 0 {
		c.Sync.TimeoutSeconds = defaultSyncTimeoutSeconds
	}
	if c.Sync.ConfirmAttempts <= 0 {
		c.Sync.ConfirmAttempts = defaultConfirmAttempts
	}
	if c.Sync.ConfirmBaseDelayMillis < 0 {
		c.Sync.ConfirmBaseDelayMillis = 0
	}
	if c.Sync.ConfirmMaxDelayMillis < c.Sync.ConfirmBaseDelayMillis {
		c.Sync.ConfirmMaxDelayMillis = c.Sync.ConfirmBaseDelayMillis
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Language = language.Hint(c.Transcription.Language, defaultTranscriptionLanguage)
	if c.Transcription.MinChars <= 0 {
		c.Transcription.MinChars = defaultTranscriptMinChars
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("ARENA_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

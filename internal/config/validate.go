package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if err := validateURL("server.url", c.Server.URL); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"server.timeout_seconds":            c.Server.TimeoutSeconds,
		"server.transcribe_timeout_seconds": c.Server.TranscribeTimeout,
		"notifications.request_timeout":     c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateSync() error {
	if c.Sync.FunctionURL != "" {
		if err := validateURL("sync.function_url", c.Sync.FunctionURL); err != nil {
			return err
		}
		if c.Sync.ServiceKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("sync.service_key is required when sync.function_url is set. Set ARENA_SYNC_KEY env var or edit %s (create with 'arena config init')", defaultPath)
		}
	}
	if c.Sync.ConfirmAttempts <= 0 {
		return errors.New("sync.confirm_attempts must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.FirstHalfStart < 0 || a.SecondHalfStart < 0 {
		return errors.New("analysis half start minutes must be >= 0")
	}
	if a.FirstHalfEnd <= a.FirstHalfStart {
		return errors.New("analysis.first_half_end must be greater than analysis.first_half_start")
	}
	if a.SecondHalfEnd <= a.SecondHalfStart {
		return errors.New("analysis.second_half_end must be greater than analysis.second_half_start")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services/remote"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagConfigPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) flagConfigPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// logger builds the CLI logger. The --log-level flag wins over the config.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		copied := *cfg
		copied.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		cfg = &copied
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

func (c *commandContext) withStore(fn func(*config.Config, *matchstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	store, err := matchstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open match store: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func newRemoteClient(cfg *config.Config) *remote.Client {
	base := time.Duration(cfg.Server.RetryBaseMillis) * time.Millisecond
	return remote.NewClient(remote.Config{
		BaseURL:           cfg.Server.URL,
		APIKey:            cfg.Server.APIKey,
		Timeout:           cfg.ServerTimeout(),
		TranscribeTimeout: cfg.TranscribeTimeout(),
	},
		remote.WithRetryMaxAttempts(cfg.Server.MaxRetries+1),
		remote.WithRetryBackoff(base, 20*base),
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

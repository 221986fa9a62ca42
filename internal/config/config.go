package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used for state, logs, and run locks.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	LockDir string `toml:"lock_dir"`
}

// Server contains settings for the primary processing service that ensures
// matches, transcribes video, and runs tactical analysis.
type Server struct {
	URL               string `toml:"url"`
	APIKey            string `toml:"api_key"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxRetries        int    `toml:"max_retries"`
	RetryBaseMillis   int    `toml:"retry_base_millis"`
	TranscribeTimeout int    `toml:"transcribe_timeout_seconds"`
}

// Sync contains settings for the fallback sync function and the
// write-then-confirm loop that follows every sync attempt.
type Sync struct {
	FunctionURL            string `toml:"function_url"`
	ServiceKey             string `toml:"service_key"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	ConfirmAttempts        int    `toml:"confirm_attempts"`
	ConfirmBaseDelayMillis int    `toml:"confirm_base_delay_millis"`
	ConfirmMaxDelayMillis  int    `toml:"confirm_max_delay_millis"`
}

// Transcription contains speech-to-text and transcript selection settings.
type Transcription struct {
	Language string `toml:"language"`
	MinChars int    `toml:"min_chars"`
}

// Analysis contains the default game-minute bounds used when a segment does
// not carry its own start/end minutes.
type Analysis struct {
	FirstHalfStart  int `toml:"first_half_start"`
	FirstHalfEnd    int `toml:"first_half_end"`
	SecondHalfStart int `toml:"second_half_start"`
	SecondHalfEnd   int `toml:"second_half_end"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	ReprocessStarted   bool   `toml:"reprocess_started"`
	SegmentFailed      bool   `toml:"segment_failed"`
	IntegrityWarning   bool   `toml:"integrity_warning"`
	ReprocessCompleted bool   `toml:"reprocess_completed"`
	ReprocessAborted   bool   `toml:"reprocess_aborted"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for arena.
//
// Configuration sections by subsystem:
//   - Paths: local state, log, and lock directories
//   - Server: primary processing service (ensure, transcribe, analyze)
//   - Sync: fallback sync function and confirm retry policy
//   - Transcription: language hint and minimum usable transcript length
//   - Analysis: default half bounds in game minutes
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Sync          Sync          `toml:"sync"`
	Transcription Transcription `toml:"transcription"`
	Analysis      Analysis      `toml:"analysis"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("arena.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the sqlite database location inside the data directory.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "arena.db")
}

// RunLogDir returns the directory holding per-run JSON logs.
func (c *Config) RunLogDir() string {
	return filepath.Join(c.Paths.LogDir, "runs")
}

// ServerTimeout returns the per-request timeout for the processing service.
func (c *Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// TranscribeTimeout returns the per-request timeout used for speech-to-text,
// which runs far longer than the other processing calls.
func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.Server.TranscribeTimeout) * time.Second
}

// ConfirmPolicy describes the bounded retry used after every write that must
// become visible in the durable store.
type ConfirmPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Confirm returns the write-then-confirm retry policy.
func (c *Config) Confirm() ConfirmPolicy {
	return ConfirmPolicy{
		Attempts:  c.Sync.ConfirmAttempts,
		BaseDelay: time.Duration(c.Sync.ConfirmBaseDelayMillis) * time.Millisecond,
		MaxDelay:  time.Duration(c.Sync.ConfirmMaxDelayMillis) * time.Millisecond,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

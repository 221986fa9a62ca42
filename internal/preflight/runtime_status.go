package preflight

import (
	"strings"

	"arena/internal/config"
)

// Names of the optional checks. Their failure degrades a run without
// blocking it.
const (
	NameSyncFallback  = "Sync fallback"
	NameNotifications = "Notifications"
)

// CheckSyncFallback reports whether the direct-write sync function is usable.
// Without it, a failed primary sync aborts every run.
func CheckSyncFallback(cfg *config.Config) Result {
	const name = NameSyncFallback

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Sync.FunctionURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Sync.ServiceKey) == "" {
		return Result{Name: name, Detail: "Missing service key"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

// CheckNotifications reports the ntfy configuration.
func CheckNotifications(cfg *config.Config) Result {
	const name = NameNotifications

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return Result{Name: name, Detail: "ntfy_topic must be a full URL"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}

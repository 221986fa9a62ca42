package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arena/internal/config"
)

const userAgent = "arena/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventReprocessStarted   Event = "reprocess_started"
	EventSegmentFailed      Event = "segment_failed"
	EventIntegrityWarning   Event = "integrity_warning"
	EventReprocessCompleted Event = "reprocess_completed"
	EventReprocessAborted   Event = "reprocess_aborted"
	EventTestNotification   Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventReprocessStarted:   cfg.Notifications.ReprocessStarted,
			EventSegmentFailed:      cfg.Notifications.SegmentFailed,
			EventIntegrityWarning:   cfg.Notifications.IntegrityWarning,
			EventReprocessCompleted: cfg.Notifications.ReprocessCompleted,
			EventReprocessAborted:   cfg.Notifications.ReprocessAborted,
			EventTestNotification:   true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return fmt.Errorf("notifications: unknown event %q", event)
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	label := matchLabel(payload)
	switch event {
	case EventReprocessStarted:
		return message{
			title: "Arena - Reprocess Started",
			body:  fmt.Sprintf("Reprocessing %s (%d segments)", label, payload.int("segments")),
			tags:  []string{"arena", "reprocess", "started"},
		}, true
	case EventSegmentFailed:
		return message{
			title: "Arena - Segment Failed",
			body:  fmt.Sprintf("%s half of %s failed: %s", titleHalf(payload.string("half")), label, payload.string("error")),
			tags:  []string{"arena", "segment", "warning"},
		}, true
	case EventIntegrityWarning:
		return message{
			title:    "Arena - Transcript Check",
			body:     fmt.Sprintf("Transcript for the %s half of %s mentions neither team", payload.string("half"), label),
			tags:     []string{"arena", "integrity", "warning"},
			priority: "high",
		}, true
	case EventReprocessCompleted:
		return message{
			title: "Arena - Reprocess Complete",
			body: fmt.Sprintf("%s reprocessed: %d events, final score %d-%d",
				label, payload.int("events"), payload.int("homeScore"), payload.int("awayScore")),
			tags: []string{"arena", "reprocess", "completed"},
		}, true
	case EventReprocessAborted:
		return message{
			title:    "Arena - Reprocess Aborted",
			body:     fmt.Sprintf("Reprocess of %s aborted: %s", label, payload.string("reason")),
			tags:     []string{"arena", "reprocess", "alert"},
			priority: "high",
		}, true
	case EventTestNotification:
		return message{
			title:    "Arena - Test",
			body:     "Notification system test",
			tags:     []string{"arena", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func matchLabel(payload Payload) string {
	home := payload.string("homeTeam")
	away := payload.string("awayTeam")
	if home != "" && away != "" {
		return home + " vs " + away
	}
	if id := payload.string("matchId"); id != "" {
		return "match " + id
	}
	return "match"
}

func titleHalf(half string) string {
	if half == "" {
		return "Unknown"
	}
	return strings.ToUpper(half[:1]) + half[1:]
}

func (p Payload) string(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) int(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

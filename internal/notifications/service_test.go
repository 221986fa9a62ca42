package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"arena/internal/config"
	"arena/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventReprocessCompleted, notifications.Payload{"matchId": "m"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "segment failed",
			event:         notifications.EventSegmentFailed,
			payload:       notifications.Payload{"homeTeam": "Home", "awayTeam": "Away", "half": "second", "error": "analysis timed out"},
			expectTitle:   "Arena - Segment Failed",
			expectMessage: "Second half of Home vs Away failed: analysis timed out",
			expectTags:    "arena,segment,warning",
		},
		{
			name:          "completed",
			event:         notifications.EventReprocessCompleted,
			payload:       notifications.Payload{"homeTeam": "Home", "awayTeam": "Away", "events": 8, "homeScore": 2, "awayScore": 1},
			expectTitle:   "Arena - Reprocess Complete",
			expectMessage: "Home vs Away reprocessed: 8 events, final score 2-1",
			expectTags:    "arena,reprocess,completed",
		},
		{
			name:           "aborted",
			event:          notifications.EventReprocessAborted,
			payload:        notifications.Payload{"matchId": "m-7", "reason": "sync failed"},
			expectTitle:    "Arena - Reprocess Aborted",
			expectMessage:  "Reprocess of match m-7 aborted: sync failed",
			expectTags:     "arena,reprocess,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTestNotification,
			expectTitle:    "Arena - Test",
			expectMessage:  "Notification system test",
			expectTags:     "arena,test",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := newCaptureServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tt.event, tt.payload); err != nil {
				t.Fatalf("Publish returned error: %v", err)
			}
			reqs := captured()
			if len(reqs) != 1 {
				t.Fatalf("expected one request, got %d", len(reqs))
			}
			got := reqs[0]
			if got.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if got.body != tt.expectMessage {
				t.Fatalf("message = %q, want %q", got.body, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestDisabledEventIsSkipped(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ReprocessStarted = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventReprocessStarted, nil); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if n := len(captured()); n != 0 {
		t.Fatalf("expected disabled event to be skipped, got %d requests", n)
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTestNotification, nil); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

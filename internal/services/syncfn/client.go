package syncfn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arena/internal/services"
)

const defaultTimeout = 30 * time.Second

// Result is the sync function's response body.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Client posts payloads to the fallback sync function.
type Client struct {
	url        string
	serviceKey string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for the function at url authenticated by serviceKey.
func NewClient(url, serviceKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		url:        strings.TrimSpace(url),
		serviceKey: strings.TrimSpace(serviceKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a function URL is available.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

// Sync submits payload. A response with success=false is returned as an error
// carrying the function's message.
func (c *Client) Sync(ctx context.Context, payload Payload) (Result, error) {
	var result Result
	if !c.Configured() {
		return result, services.Wrap(services.ErrConfiguration, "syncing", "fallback sync", "sync.function_url is not set", nil)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return result, services.Wrap(services.ErrValidation, "syncing", "fallback sync", "payload id is empty", nil)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("sync function: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return result, fmt.Errorf("sync function: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("apikey", c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "syncing", "fallback sync", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "syncing", "fallback sync", "read body", err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil && resp.StatusCode < http.StatusMultipleChoices {
			return result, services.Wrap(services.ErrExternalService, "syncing", "fallback sync", "decode response", err)
		}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return result, services.Wrap(services.ErrExternalService, "syncing", "fallback sync",
			fmt.Sprintf("http %d: %s", resp.StatusCode, msg), nil)
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = "function reported failure"
		}
		return result, services.Wrap(services.ErrExternalService, "syncing", "fallback sync", msg, nil)
	}
	return result, nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arena/internal/matchstore"
	"arena/internal/services"
	"arena/internal/services/syncfn"
)

const (
	defaultHTTPTimeout       = 2 * time.Minute
	defaultTranscribeTimeout = 30 * time.Minute
	defaultRetryAttempts     = 3
	defaultRetryBaseDelay    = 500 * time.Millisecond
	defaultRetryMaxDelay     = 10 * time.Second
	maxResponseBytes         = 32 << 20
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	TranscribeTimeout time.Duration
}

// Client wraps the processing service HTTP API.
type Client struct {
	cfg              Config
	httpClient       *http.Client
	transcribeClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every call.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			c.transcribeClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the total attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a processing service client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	transcribeTimeout := cfg.TranscribeTimeout
	if transcribeTimeout <= 0 {
		transcribeTimeout = defaultTranscribeTimeout
	}
	client := &Client{
		cfg: Config{
			BaseURL:           strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:            strings.TrimSpace(cfg.APIKey),
			Timeout:           timeout,
			TranscribeTimeout: transcribeTimeout,
		},
		httpClient:       &http.Client{Timeout: timeout},
		transcribeClient: &http.Client{Timeout: transcribeTimeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// EnsureMatch asks the service to make sure the match record exists in the
// durable store.
func (c *Client) EnsureMatch(ctx context.Context, matchID string) (EnsureResult, error) {
	var result EnsureResult
	if strings.TrimSpace(matchID) == "" {
		return result, services.Wrap(services.ErrValidation, "syncing", "ensure match", "match id is empty", nil)
	}
	err := c.do(ctx, c.httpClient, http.MethodPost, "api/matches/"+url.PathEscape(matchID)+"/ensure", nil, &result, "ensure match", "syncing")
	if err != nil {
		return result, err
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = "service reported failure"
		}
		return result, services.Wrap(services.ErrExternalService, "syncing", "ensure match", msg, nil)
	}
	return result, nil
}

// GetMatch reads the match record held by the service. A missing match
// returns (nil, nil).
func (c *Client) GetMatch(ctx context.Context, matchID string) (*matchstore.Match, error) {
	var payload syncfn.Payload
	err := c.do(ctx, c.httpClient, http.MethodGet, "api/matches/"+url.PathEscape(matchID), nil, &payload, "get match", "syncing")
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, nil
	}
	m := payload.Match()
	return &m, nil
}

// UpdateMatch writes status and scores to the match record held by the
// service, the same record GetMatch confirms.
func (c *Client) UpdateMatch(ctx context.Context, matchID string, update matchstore.MatchUpdate) error {
	if strings.TrimSpace(matchID) == "" {
		return services.Wrap(services.ErrValidation, "finalizing", "update match", "match id is empty", nil)
	}
	patch := MatchPatch{HomeScore: update.HomeScore, AwayScore: update.AwayScore}
	if update.Status != nil {
		status := string(*update.Status)
		patch.Status = &status
	}
	var ack Ack
	if err := c.do(ctx, c.httpClient, http.MethodPatch, "api/matches/"+url.PathEscape(matchID), patch, &ack, "update match", "finalizing"); err != nil {
		return err
	}
	return ack.err("finalizing", "update match")
}

// InvalidateMatch tells the service to drop cached views of the match.
func (c *Client) InvalidateMatch(ctx context.Context, matchID string) error {
	var ack Ack
	if err := c.do(ctx, c.httpClient, http.MethodPost, "api/matches/"+url.PathEscape(matchID)+"/invalidate-cache", nil, &ack, "invalidate match", "finalizing"); err != nil {
		return err
	}
	return ack.err("finalizing", "invalidate match")
}

func (a Ack) err(stage, op string) error {
	if a.Success {
		return nil
	}
	msg := strings.TrimSpace(a.Error)
	if msg == "" {
		msg = "service reported failure"
	}
	return services.Wrap(services.ErrExternalService, stage, op, msg, nil)
}

// SyncVideos links videos already uploaded to storage as match segments.
func (c *Client) SyncVideos(ctx context.Context, matchID string) (SyncVideosResult, error) {
	var result SyncVideosResult
	err := c.do(ctx, c.httpClient, http.MethodPost, "api/matches/"+url.PathEscape(matchID)+"/sync-videos", nil, &result, "sync videos", "fetching_videos")
	if err != nil {
		return result, err
	}
	if !result.Success && strings.TrimSpace(result.Error) != "" {
		return result, services.Wrap(services.ErrExternalService, "fetching_videos", "sync videos", result.Error, nil)
	}
	return result, nil
}

// TranscribeLargeVideo runs speech-to-text over a video file. It uses the
// long transcription timeout.
func (c *Client) TranscribeLargeVideo(ctx context.Context, req TranscribeRequest) (TranscribeResult, error) {
	var result TranscribeResult
	if strings.TrimSpace(req.VideoURL) == "" {
		return result, services.Wrap(services.ErrValidation, "transcribing", "transcribe video", "video url is empty", nil)
	}
	if err := c.do(ctx, c.transcribeClient, http.MethodPost, "api/transcribe-large-video", req, &result, "transcribe video", "transcribing"); err != nil {
		return result, err
	}
	if strings.TrimSpace(result.Text) == "" {
		return result, services.Wrap(services.ErrExternalService, "transcribing", "transcribe video", "service returned empty transcript", nil)
	}
	return result, nil
}

// AnalyzeMatch runs tactical analysis over one half's transcript.
func (c *Client) AnalyzeMatch(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	var result AnalyzeResult
	if strings.TrimSpace(req.Transcription) == "" {
		return result, services.Wrap(services.ErrValidation, "analyzing", "analyze match", "transcription is empty", nil)
	}
	err := c.do(ctx, c.httpClient, http.MethodPost, "api/analyze-match", req, &result, "analyze match", "analyzing")
	return result, err
}

// CheckAIStatus reports which AI providers the service can use.
func (c *Client) CheckAIStatus(ctx context.Context) (AIStatus, error) {
	var status AIStatus
	err := c.do(ctx, c.httpClient, http.MethodGet, "api/ai-status", nil, &status, "check ai status", "preflight")
	return status, err
}

// Health pings the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, c.httpClient, http.MethodGet, "health", nil, &body, "health", "preflight"); err != nil {
		return err
	}
	if status := strings.ToLower(strings.TrimSpace(body.Status)); status != "" && status != "ok" && status != "healthy" {
		return services.Wrap(services.ErrExternalService, "preflight", "health", "service status "+body.Status, nil)
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, payload, target any, op, stage string) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, stage, op, "server.url is not set", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage, op, "build url", err)
	}
	var encoded []byte
	if payload != nil {
		encoded, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.sendOnce(ctx, httpClient, method, endpoint, encoded, target)
		if err == nil {
			return nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}
	return wrapFailure(stage, op, lastErr)
}

func wrapFailure(stage, op string, err error) error {
	var statusErr *httpStatusError
	switch {
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrCancelled, stage, op, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stage, op, "request timed out", err)
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, stage, op, "resource not found", err)
	case errors.As(err, &statusErr) && statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError:
		return services.Wrap(services.ErrValidation, stage, op, "request rejected", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, stage, op, "request timed out", err)
	}
	return services.Wrap(services.ErrExternalService, stage, op, "request failed", err)
}

func (c *Client) sendOnce(ctx context.Context, httpClient *http.Client, method, endpoint string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: string(data), RetryAfter: retryAfter}
	}
	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if c.retryMaxDelay > 0 && delay > c.retryMaxDelay/2 {
			delay = c.retryMaxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

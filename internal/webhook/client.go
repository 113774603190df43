// ABOUTME: Message delivery client for the remote workflow webhook.
// ABOUTME: One JSON POST per message with timeout, 429 backoff, and error mapping.

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// requestTimeout aborts a single in-flight request; backoff delays
	// between attempts do not count against it.
	requestTimeout = 30 * time.Second

	// baseDelay and maxRetries define the 429 backoff schedule:
	// 2s, 4s, 8s, then give up.
	baseDelay  = 2 * time.Second
	maxRetries = 3
)

const (
	timeoutMessage    = "Connection lost – retry"
	networkMessage    = "Network error. Please check your connection."
	rateLimitMessage  = "Too many requests. Please try again later."
	malformedMessage  = "Invalid response format from webhook"
	unexpectedMessage = "An unexpected error occurred"
)

// errRateLimited signals a 429 between attempt and backoff handling.
var errRateLimited = errors.New("rate limited")

// Reply is a normalized webhook response.
type Reply struct {
	Text      string
	FollowUps []string
}

// Client delivers user messages to the configured webhook. It holds no
// conversation state; its only side effect is the network call.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	baseDelay  time.Duration
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a delivery client for the given webhook URL. token may be
// empty; when set it is sent as a bearer Authorization header.
func NewClient(webhookURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        webhookURL,
		token:      token,
		httpClient: &http.Client{},
		timeout:    requestTimeout,
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
		logger:     logger.With("component", "webhook"),
	}
}

// request is the JSON body sent to the webhook.
type request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Send delivers one user message and returns the normalized reply. On
// failure the returned error is always a *Error. A 429 response is retried
// with exponential backoff up to maxRetries times; every other failure is
// returned immediately.
func (c *Client) Send(ctx context.Context, sessionID, message string, ts time.Time) (*Reply, error) {
	payload, err := json.Marshal(request{
		SessionID: sessionID,
		Message:   message,
		Timestamp: ts.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, newError(KindUnknown, unexpectedMessage, true)
	}

	for attempt := 0; ; attempt++ {
		reply, err := c.attempt(ctx, payload)
		if err == nil {
			return reply, nil
		}

		if !errors.Is(err, errRateLimited) {
			return nil, err
		}

		if attempt >= c.maxRetries {
			c.logger.Warn("rate limit retries exhausted", "attempts", attempt+1)
			return nil, newError(KindRateLimit, rateLimitMessage, false)
		}

		delay := c.baseDelay << attempt
		c.logger.Debug("rate limited, backing off",
			"attempt", attempt,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, classifyTransport(ctx.Err())
		}
	}
}

// attempt issues a single HTTP request under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, payload []byte) (*Reply, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(KindUnknown, unexpectedMessage, true)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(text))
		if readErr != nil || detail == "" {
			detail = "Unknown error"
		}
		return nil, newError(KindServer,
			fmt.Sprintf("Server error (%d): %s", resp.StatusCode, detail),
			resp.StatusCode >= 500)
	}

	return parseReply(resp.Body)
}

// parseReply validates the webhook response contract: reply must be a
// non-empty string, follow_up is passed through only when it is an array of
// strings.
func parseReply(body io.Reader) (*Reply, error) {
	var raw struct {
		Reply    json.RawMessage `json:"reply"`
		FollowUp json.RawMessage `json:"follow_up"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, newError(KindServer, malformedMessage, false)
	}

	var text string
	if len(raw.Reply) == 0 || json.Unmarshal(raw.Reply, &text) != nil || text == "" {
		return nil, newError(KindServer, malformedMessage, false)
	}

	reply := &Reply{Text: text}
	if len(raw.FollowUp) > 0 {
		var followUps []string
		if err := json.Unmarshal(raw.FollowUp, &followUps); err == nil {
			reply.FollowUps = followUps
		}
	}
	return reply, nil
}

// classifyTransport maps low-level request failures onto the error taxonomy.
// An abort before a response (deadline or cancellation) is a timeout;
// connectivity failures are network errors; anything else falls through to
// the unknown catch-all so callers always receive a well-formed *Error.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindTimeout, timeoutMessage, true)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return newError(KindTimeout, timeoutMessage, true)
		}
		return newError(KindNetwork, networkMessage, true)
	}

	return newError(KindUnknown, unexpectedMessage, true)
}

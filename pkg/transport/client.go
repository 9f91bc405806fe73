// Package transport sends survey submissions to the ingestion endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// HeaderVersion carries the survey definition version.
const HeaderVersion = "X-Survey-Version"

// Ack is the decoded body of an accepted submission.
type Ack struct {
	Status  int
	Success bool
	Body    map[string]any
}

// Sender delivers a payload. *Client implements it.
type Sender interface {
	Send(ctx context.Context, payload Payload) (*Ack, error)
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, payload Payload) (*Ack, error)

// Send delegates to the underlying function.
func (fn SenderFunc) Send(ctx context.Context, payload Payload) (*Ack, error) {
	return fn(ctx, payload)
}

// Client posts payloads to a single endpoint. It does not retry.
type Client struct {
	endpoint   string
	version    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithVersion sets the X-Survey-Version header value.
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = strings.TrimSpace(version)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Endpoint returns the target URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Send posts payload and interprets the response. The body is decoded before
// the status is inspected, so a non-JSON error page surfaces as a
// *MalformedResponseError.
func (c *Client) Send(ctx context.Context, payload Payload) (*Ack, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if payload.UserAgent != "" {
		req.Header.Set("User-Agent", payload.UserAgent)
	}
	if c.version != "" {
		req.Header.Set(HeaderVersion, c.version)
	}

	c.logger.Debug("sending submission",
		zap.String("endpoint", c.endpoint),
		zap.String("submission_id", payload.SubmissionID),
		zap.Int("fields", len(payload.Fields)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &MalformedResponseError{Status: resp.StatusCode, Err: err}
	}
	if decoded == nil {
		return nil, &MalformedResponseError{Status: resp.StatusCode, Err: fmt.Errorf("empty body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, decoded)}
	}

	success, _ := decoded["success"].(bool)
	c.logger.Debug("submission accepted", zap.Int("status", resp.StatusCode), zap.Bool("success", success))
	return &Ack{Status: resp.StatusCode, Success: success, Body: decoded}, nil
}

func statusMessage(status int, body map[string]any) string {
	for _, key := range []string{"error", "details"} {
		if msg, ok := body[key].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return fmt.Sprintf("Server error: %d", status)
}

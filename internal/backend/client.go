// Package backend talks to the remote conversational service that produces
// answers for relayed messages.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ApologyText is returned to the user when the backend is unreachable or
	// answers with something that cannot be parsed.
	ApologyText = "Sorry, I'm having trouble reaching the assistant right now. Please try again in a moment."

	// ResetFailedText replaces the idle notice when the remote reset fails.
	ResetFailedText = "Sorry, I couldn't reset this conversation. Please try again later."

	// VersionHeader carries the protocol version on every request.
	VersionHeader = "pd-version"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 500
)

// Gateway is the request/response contract the dispatcher relies on.
type Gateway interface {
	// RequestAnswer never fails: errors come back as user-facing text.
	RequestAnswer(ctx context.Context, prompt, uid string) string
	ResetSession(ctx context.Context, uid string) error
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL string
	version string
	client  *http.Client
}

// NewClient creates a backend client. A non-positive timeout uses 60s.
func NewClient(baseURL, version string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string { return c.baseURL }

type promptRequest struct {
	Prompt string `json:"prompt"`
	UID    string `json:"uid"`
}

type promptResponse struct {
	Answer string `json:"answer"`
}

type resetRequest struct {
	UID string `json:"uid"`
}

// RequestAnswer posts the prompt and returns the backend's answer.
// Non-2xx responses become an error string built from the body; transport
// and decoding failures become ApologyText.
func (c *Client) RequestAnswer(ctx context.Context, prompt, uid string) string {
	status, body, err := c.post(ctx, "/prompt", promptRequest{Prompt: prompt, UID: uid})
	if err != nil {
		slog.Warn("backend prompt failed", "uid", uid, "err", err)
		return ApologyText
	}

	if !isSuccess(status) {
		slog.Warn("backend prompt rejected", "uid", uid, "status", status)
		return fmt.Sprintf("Error %d: %s", status, truncate(strings.TrimSpace(string(body)), maxErrorBody))
	}

	var resp promptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Warn("backend prompt returned malformed JSON", "uid", uid, "err", err)
		return ApologyText
	}
	return resp.Answer
}

// ResetSession asks the backend to drop the remote context for uid.
func (c *Client) ResetSession(ctx context.Context, uid string) error {
	status, body, err := c.post(ctx, "/reset", resetRequest{UID: uid})
	if err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	if !isSuccess(status) {
		return fmt.Errorf("reset session: backend error %d: %s", status, truncate(strings.TrimSpace(string(body)), maxErrorBody))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(VersionHeader, c.version)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

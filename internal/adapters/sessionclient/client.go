// Package sessionclient requests client credentials from the session endpoint
// on behalf of the chat panel.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultPath = "/api/chatkit/session"

	maxResponseBytes = 1 << 20
	defaultTimeout   = 20 * time.Second
)

// StatusError is a failed endpoint call. Message is safe to show to a user.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.CredentialSource = (*Client)(nil)

// NewClient targets the full endpoint URL, for example
// http://127.0.0.1:8787/api/chatkit/session.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{endpoint: strings.TrimSpace(endpoint), http: httpClient}
}

func (c *Client) RequestClientSecret(ctx context.Context, overrides domain.SessionRequest) (domain.Credential, error) {
	body, err := json.Marshal(domain.SessionRequest{
		APIKey:       strings.TrimSpace(overrides.APIKey),
		WorkflowID:   strings.TrimSpace(overrides.WorkflowID),
		RefreshToken: strings.TrimSpace(overrides.RefreshToken),
		User:         strings.TrimSpace(overrides.User),
	})
	if err != nil {
		return domain.Credential{}, fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("call session endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("read session response: %w", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || payload == nil || payload["error"] != nil {
		return domain.Credential{}, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload, resp.StatusCode),
		}
	}

	return domain.ParseCredential(payload["client_secret"])
}

func errorMessage(payload map[string]json.RawMessage, status int) string {
	if raw, ok := payload["error"]; ok {
		var message string
		if err := json.Unmarshal(raw, &message); err == nil && strings.TrimSpace(message) != "" {
			return message
		}
	}
	return fmt.Sprintf("Unable to create a ChatKit session (status %d).", status)
}

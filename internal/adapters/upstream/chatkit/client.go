package chatkit

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
	DefaultBaseURL  = "https://api.openai.com"
	sessionsPath    = "/v1/chatkit/sessions"
	betaHeader      = "OpenAI-Beta"
	betaHeaderValue = "chatkit_beta=v1"

	maxSessionResponseBytes = 1 << 20
	defaultTimeout          = 15 * time.Second
)

// Client calls the upstream session-issuing API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.SessionIssuer = (*Client)(nil)

// NewClient builds an issuer client. A nil httpClient gets an instrumented
// client with a bounded timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(defaultTimeout)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func (c *Client) CreateSession(ctx context.Context, secret string, payload domain.SessionPayload) (domain.Session, error) {
	if strings.TrimSpace(secret) == "" {
		return domain.Session{}, &domain.ConfigurationError{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode session payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionsPath, bytes.NewReader(body))
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set(betaHeader, betaHeaderValue)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Session{}, fmt.Errorf("call session issuer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionResponseBytes))
	if err != nil {
		return domain.Session{}, fmt.Errorf("read session response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Session{}, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       Redact(string(raw), secret),
		}
	}

	credential, err := domain.ExtractClientSecret(raw)
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{Raw: json.RawMessage(raw), ClientSecret: credential}, nil
}

// Redact removes every occurrence of secret from text.
func Redact(text string, secret string) string {
	if strings.TrimSpace(secret) == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, "[REDACTED]")
}

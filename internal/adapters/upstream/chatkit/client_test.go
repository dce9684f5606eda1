package chatkit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionSendsSecretHeadersAndPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chatkit/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "chatkit_beta=v1", r.Header.Get("OpenAI-Beta"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "gpt-4.1-mini", payload["model"])
		assert.Equal(t, "be brief", payload["instructions"])
		assert.Equal(t, "rt_1", payload["refresh_token"])
		assert.NotContains(t, payload, "workflow")
		assert.NotContains(t, payload, "user")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cksess_1","client_secret":"cs_abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	session, err := client.CreateSession(context.Background(), "sk-test", domain.SessionPayload{
		Model:        "gpt-4.1-mini",
		Instructions: "be brief",
		RefreshToken: "rt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_abc", session.ClientSecret.Value())
	assert.JSONEq(t, `{"id":"cksess_1","client_secret":"cs_abc"}`, string(session.Raw))
}

func TestCreateSessionAcceptsObjectClientSecret(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"client_secret":{"value":"cs_obj","expires_at":1760000000}}`))
	}))
	defer server.Close()

	session, err := NewClient(server.URL, server.Client()).CreateSession(context.Background(), "sk-test", domain.SessionPayload{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "cs_obj", session.ClientSecret.Value())
	assert.JSONEq(t, `{"client_secret":{"value":"cs_obj","expires_at":1760000000}}`, string(session.Raw))
}

func TestCreateSessionReturnsRedactedUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-test"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).CreateSession(context.Background(), "sk-test", domain.SessionPayload{Model: "m"})

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.NotContains(t, upstreamErr.Body, "sk-test")
	assert.Contains(t, upstreamErr.Body, "[REDACTED]")
	assert.NotContains(t, err.Error(), "sk-test")
}

func TestCreateSessionRejectsResponseWithoutClientSecret(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cksess_1"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).CreateSession(context.Background(), "sk-test", domain.SessionPayload{Model: "m"})

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestCreateSessionRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewClient("http://127.0.0.1:0", nil).CreateSession(context.Background(), "  ", domain.SessionPayload{})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRedact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "key [REDACTED] and [REDACTED]", Redact("key sk-1 and sk-1", "sk-1"))
	assert.Equal(t, "unchanged", Redact("unchanged", ""))
}

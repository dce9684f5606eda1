package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bnema/chatkit-broker/internal/adapters/upstream/chatkit"
	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSecrets map[string]string

func (s staticSecrets) Get(_ context.Context, key string) (string, error) {
	value, ok := s[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s staticSecrets) Put(context.Context, string, string) error { return domain.ErrSecretStoreReadOnly }
func (s staticSecrets) Delete(context.Context, string) error      { return domain.ErrSecretStoreReadOnly }

type upstreamCall struct {
	auth    string
	payload map[string]any
}

type harness struct {
	handler http.Handler
	calls   chan upstreamCall
	server  *Server
}

func newHarness(t *testing.T, secrets staticSecrets, brokerCfg application.BrokerConfig, apiCfg Config, status int, body string) *harness {
	t.Helper()

	calls := make(chan upstreamCall, 16)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		calls <- upstreamCall{auth: r.Header.Get("Authorization"), payload: payload}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(upstream.Close)

	issuer := chatkit.NewClient(upstream.URL, upstream.Client())
	broker := application.NewSessionBroker(secrets, issuer, brokerCfg, zerolog.Nop())
	server := NewServer(broker, apiCfg, prometheus.NewRegistry(), zerolog.Nop())

	return &harness{handler: server.Handler(), calls: calls, server: server}
}

func (h *harness) post(path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func serverSecret() staticSecrets {
	return staticSecrets{application.DefaultSecretKey: "sk-server-secret"}
}

func TestSessionEmptyBodyUsesServerSecret(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, `{"id":"cksess_1","client_secret":"cs_1"}`)

	rec := h.post(SessionPath, `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"cksess_1","client_secret":"cs_1"}`, rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	call := <-h.calls
	assert.Equal(t, "Bearer sk-server-secret", call.auth)
	assert.NotContains(t, call.payload, "workflow")
	assert.Equal(t, application.DefaultModel, call.payload["model"])
	assert.NotContains(t, rec.Body.String(), "sk-server-secret")
}

func TestSessionAliasPathAndObjectSecret(t *testing.T) {
	t.Parallel()

	body := `{"client_secret":{"value":"cs_obj","expires_at":1760000000}}`
	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, body)

	rec := h.post(SessionAliasPath, ``)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())
}

func TestSessionWorkflowOverride(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{WorkflowID: "wf_default"}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	rec := h.post(SessionPath, `{"workflowId":"wf_abc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	call := <-h.calls
	assert.Equal(t, "wf_abc", call.payload["workflow"])
}

func TestSessionMalformedBodyTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	rec := h.post(SessionPath, `{not json`)

	require.Equal(t, http.StatusOK, rec.Code)
	call := <-h.calls
	assert.NotContains(t, call.payload, "workflow")
}

func TestSessionWrongTypedFieldKeepsOtherOverrides(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{WorkflowID: "wf_default"}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	rec := h.post(SessionPath, `{"workflowId":"wf_abc","refresh_token":123,"user":["device"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	call := <-h.calls
	assert.Equal(t, "wf_abc", call.payload["workflow"])
	assert.NotContains(t, call.payload, "refresh_token")
	assert.NotContains(t, call.payload, "user")
}

func TestDecodeSessionRequest(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body string
		want domain.SessionRequest
	}{
		"empty":      {body: "", want: domain.SessionRequest{}},
		"array":      {body: `["wf_abc"]`, want: domain.SessionRequest{}},
		"null field": {body: `{"workflowId":null,"user":"dev-1"}`, want: domain.SessionRequest{User: "dev-1"}},
		"all fields": {
			body: `{"refresh_token":"rt","apiKey":"sk-dev","workflowId":"wf_1","user":"dev-1"}`,
			want: domain.SessionRequest{RefreshToken: "rt", APIKey: "sk-dev", WorkflowID: "wf_1", User: "dev-1"},
		},
		"mixed types": {body: `{"apiKey":42,"workflowId":"wf_1"}`, want: domain.SessionRequest{WorkflowID: "wf_1"}},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, decodeSessionRequest(strings.NewReader(tc.body)))
		})
	}
}

func TestSessionMissingSecretReturnsConfigurationError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSecrets{}, application.BrokerConfig{}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	rec := h.post(SessionPath, `{"apiKey":"sk-client"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.MissingServerSecretMessage, decodeError(t, rec))
	assert.Empty(t, h.calls)
}

func TestSessionUpstreamFailureIsRedacted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided: sk-server-secret"}}`)

	rec := h.post(SessionPath, `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	message := decodeError(t, rec)
	assert.True(t, strings.HasPrefix(message, "Failed to create ChatKit session: "))
	assert.NotContains(t, rec.Body.String(), "sk-server-secret")
}

func TestSessionUpstreamWithoutClientSecretIsBadGateway(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, `{"id":"cksess_1"}`)

	rec := h.post(SessionPath, `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ChatKit session response did not include a client secret.", decodeError(t, rec))
}

func TestSessionRejectsOtherMethods(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SessionPath, nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Equal(t, methodNotAllowedMessage, decodeError(t, rec))
}

func TestSessionRateLimited(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{RateLimitRPS: 0.5, RateLimitBurst: 1}, http.StatusOK, `{"client_secret":"cs_1"}`)

	first := h.post(SessionPath, `{}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := h.post(SessionPath, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))
	assert.Equal(t, rateLimitedMessage, decodeError(t, second))
}

func TestHealthReadyAndMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, serverSecret(), application.BrokerConfig{}, Config{}, http.StatusOK, `{"client_secret":"cs_1"}`)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	h.server.SetReady(true)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	require.Equal(t, http.StatusOK, h.post(SessionPath, `{}`).Code)
	metrics := get("/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `chatkit_broker_sessions_total{outcome="issued",status="200"} 1`)
}

func TestClientAddress(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, SessionPath, nil)
	req.RemoteAddr = "198.51.100.2:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "198.51.100.2", clientAddress(req, false))
	assert.Equal(t, "203.0.113.9", clientAddress(req, true))
}

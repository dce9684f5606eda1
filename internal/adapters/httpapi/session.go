package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/rs/zerolog"
)

const (
	methodNotAllowedMessage = "Method not allowed."
	rateLimitedMessage      = "Too many session requests. Try again shortly."
	unexpectedErrorMessage  = "Unable to create a ChatKit session."
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, methodNotAllowedMessage)
		return
	}

	started := time.Now()
	logger := zerolog.Ctx(r.Context())

	if ok, retryAfter := s.limiter.Allow(clientAddress(r, s.cfg.TrustProxyHeaders)); !ok {
		s.metrics.rateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
		writeError(w, http.StatusTooManyRequests, rateLimitedMessage)
		return
	}

	req := decodeSessionRequest(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))

	session, err := s.broker.CreateSession(r.Context(), req)
	if err != nil {
		status, message, outcome := classifyError(err)
		logger.Warn().Err(err).Str("outcome", outcome).Int("status", status).Msg("session request failed")
		s.metrics.observe(outcome, strconv.Itoa(status), time.Since(started).Seconds())
		writeError(w, status, message)
		return
	}

	s.metrics.observe("issued", strconv.Itoa(http.StatusOK), time.Since(started).Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(session.Raw)
}

// decodeSessionRequest treats an unreadable or non-object body as an empty
// request. Fields that are not strings are dropped one by one; the rest are kept.
func decodeSessionRequest(body io.Reader) domain.SessionRequest {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return domain.SessionRequest{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.SessionRequest{}
	}

	return domain.SessionRequest{
		RefreshToken: stringField(fields, "refresh_token"),
		APIKey:       stringField(fields, "apiKey"),
		WorkflowID:   stringField(fields, "workflowId"),
		User:         stringField(fields, "user"),
	}
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func classifyError(err error) (int, string, string) {
	var (
		cfgErr       *domain.ConfigurationError
		upstreamErr  *domain.UpstreamError
		malformedErr *domain.MalformedResponseError
	)

	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, cfgErr.Error(), "configuration"
	case errors.As(err, &upstreamErr):
		status := upstreamErr.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return status, upstreamErr.Error(), "upstream"
	case errors.As(err, &malformedErr):
		return http.StatusBadGateway, malformedErr.Error(), "malformed"
	default:
		return http.StatusBadGateway, unexpectedErrorMessage, "transport"
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func retryAfterSeconds(wait time.Duration) int {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

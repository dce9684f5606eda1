package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultSecretKey    = "chatkit/openai_api_key"
	DefaultModel        = "gpt-4.1-mini"
	DefaultInstructions = "You are an upbeat product specialist embedded on a marketing site. Provide succinct answers and highlight key capabilities of ChatKit."
)

type BrokerConfig struct {
	// SecretKey names the trusted secret in the secret store.
	SecretKey    string
	Model        string
	Instructions string
	// WorkflowID is the deployment default; empty means no workflow is sent.
	WorkflowID string
	// Production disables every client-supplied override.
	Production bool
	// AllowClientSecret lets a non-production client supply its own API key
	// when the server has none.
	AllowClientSecret bool
}

func (c BrokerConfig) withDefaults() BrokerConfig {
	if strings.TrimSpace(c.SecretKey) == "" {
		c.SecretKey = DefaultSecretKey
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.Instructions) == "" {
		c.Instructions = DefaultInstructions
	}
	c.WorkflowID = strings.TrimSpace(c.WorkflowID)
	return c
}

// SessionBroker issues short-lived client credentials on behalf of callers that
// must never see the trusted secret. It holds no per-request state.
type SessionBroker struct {
	secrets ports.SecretStore
	issuer  ports.SessionIssuer
	cfg     BrokerConfig
	logger  zerolog.Logger
}

func NewSessionBroker(secrets ports.SecretStore, issuer ports.SessionIssuer, cfg BrokerConfig, logger zerolog.Logger) *SessionBroker {
	return &SessionBroker{
		secrets: secrets,
		issuer:  issuer,
		cfg:     cfg.withDefaults(),
		logger:  logger.With().Str("component", "session_broker").Logger(),
	}
}

func (b *SessionBroker) Config() BrokerConfig {
	return b.cfg
}

func (b *SessionBroker) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	secret, source, err := b.resolveSecret(ctx, req)
	if err != nil {
		return domain.Session{}, err
	}

	payload := b.buildPayload(req)

	session, err := b.issuer.CreateSession(ctx, secret, payload)
	if err != nil {
		return domain.Session{}, redactError(err, secret)
	}

	b.logger.Debug().
		Str("secret_source", source).
		Str("workflow", payload.Workflow).
		Bool("refresh", payload.RefreshToken != "").
		Msg("issued chatkit session")

	return session, nil
}

func (b *SessionBroker) resolveSecret(ctx context.Context, req domain.SessionRequest) (string, string, error) {
	if b.secrets != nil {
		secret, err := b.secrets.Get(ctx, b.cfg.SecretKey)
		if err == nil && strings.TrimSpace(secret) != "" {
			return secret, "server", nil
		}
		if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", "", ctxErr
			}
			b.logger.Error().Err(err).Str("secret_key", b.cfg.SecretKey).Msg("resolve trusted secret")
			return "", "", &domain.ConfigurationError{Message: fmt.Sprintf("Unable to read the server secret %q.", b.cfg.SecretKey)}
		}
	}

	if b.overridesAllowed() && b.cfg.AllowClientSecret {
		if clientKey := strings.TrimSpace(req.APIKey); clientKey != "" {
			return clientKey, "client", nil
		}
	}

	return "", "", &domain.ConfigurationError{Message: domain.MissingServerSecretMessage}
}

func (b *SessionBroker) buildPayload(req domain.SessionRequest) domain.SessionPayload {
	payload := domain.SessionPayload{
		Model:        b.cfg.Model,
		Instructions: b.cfg.Instructions,
		Workflow:     b.cfg.WorkflowID,
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		User:         strings.TrimSpace(req.User),
	}

	if b.overridesAllowed() {
		if workflowID := strings.TrimSpace(req.WorkflowID); workflowID != "" {
			payload.Workflow = workflowID
		}
	}

	return payload
}

func (b *SessionBroker) overridesAllowed() bool {
	return !b.cfg.Production
}

// redactError scrubs the secret from upstream bodies even if the issuer adapter did not.
func redactError(err error, secret string) error {
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		return &domain.UpstreamError{
			StatusCode: upstreamErr.StatusCode,
			Body:       strings.ReplaceAll(upstreamErr.Body, secret, "[REDACTED]"),
		}
	}
	if strings.Contains(err.Error(), secret) {
		return errors.New(strings.ReplaceAll(err.Error(), secret, "[REDACTED]"))
	}
	return err
}

package ports

import (
	"context"

	"github.com/bnema/chatkit-broker/internal/domain"
)

// SessionIssuer creates short-lived client sessions at the upstream API.
type SessionIssuer interface {
	CreateSession(ctx context.Context, secret string, payload domain.SessionPayload) (domain.Session, error)
}

// CredentialSource hands out client credentials to the chat panel.
type CredentialSource interface {
	RequestClientSecret(ctx context.Context, overrides domain.SessionRequest) (domain.Credential, error)
}

// SessionCreator is the broker operation behind the session endpoint.
type SessionCreator interface {
	CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error)
}

package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
)

// Store resolves secrets from process environment variables. It is read-only:
// the environment is deployment configuration, not something the broker writes.
type Store struct {
	vars   map[string]string
	lookup func(string) (string, bool)
}

var _ ports.SecretStore = (*Store)(nil)

// NewStore maps secret keys to environment variable names.
func NewStore(vars map[string]string) *Store {
	return newStoreWithLookup(vars, os.LookupEnv)
}

func newStoreWithLookup(vars map[string]string, lookup func(string) (string, bool)) *Store {
	copied := make(map[string]string, len(vars))
	for key, name := range vars {
		copied[key] = name
	}
	return &Store{vars: copied, lookup: lookup}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, ok := s.vars[key]
	if !ok {
		return "", fmt.Errorf("no environment variable mapped for %q: %w", key, domain.ErrSecretNotFound)
	}

	value, ok := s.lookup(name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s: %w", name, domain.ErrSecretNotFound)
	}

	return value, nil
}

func (s *Store) Put(_ context.Context, key string, _ string) error {
	return fmt.Errorf("env secret %q: %w", key, domain.ErrSecretStoreReadOnly)
}

func (s *Store) Delete(_ context.Context, key string) error {
	return fmt.Errorf("env secret %q: %w", key, domain.ErrSecretStoreReadOnly)
}

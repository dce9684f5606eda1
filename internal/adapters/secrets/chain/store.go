package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/bnema/chatkit-broker/internal/adapters/secrets/env"
	filestore "github.com/bnema/chatkit-broker/internal/adapters/secrets/file"
	passstore "github.com/bnema/chatkit-broker/internal/adapters/secrets/pass"
	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
)

// Store consults backends in order. Reads return the first hit; writes go to
// the first backend that accepts them; deletes clear every writable backend.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret store chain has no backends")

func NewStore(backends ...ports.SecretStore) *Store {
	store, err := NewStoreChecked(backends...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(backends ...ports.SecretStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("secret store backend %d is nil", i)
		}
	}

	return &Store{backends: append([]ports.SecretStore(nil), backends...)}, nil
}

// NewEnvPassFile resolves from the environment first, then pass, then files under fileRoot.
func NewEnvPassFile(envVars map[string]string, fileRoot string) (*Store, error) {
	return NewStoreChecked(envstore.NewStore(envVars), passstore.NewStore(), filestore.NewStore(fileRoot))
}

// NewEnvFile is NewEnvPassFile without the pass backend.
func NewEnvFile(envVars map[string]string, fileRoot string) (*Store, error) {
	return NewStoreChecked(envstore.NewStore(envVars), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	allMissing := true

	for i, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldStop(err) {
			return "", err
		}
		if !isMissing(err) {
			allMissing = false
		}
		errs = append(errs, fmt.Errorf("backend %d: %w", i, err))
	}

	if allMissing {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return "", fmt.Errorf("resolve secret %q: %w", key, stripNotFound(errs))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error

	for i, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldStop(err) {
			return err
		}
		if isSkippable(err) {
			continue
		}
		errs = append(errs, fmt.Errorf("backend %d put failed: %w", i, err))
	}

	if len(errs) == 0 {
		return fmt.Errorf("secret %q: no writable backend: %w", key, domain.ErrSecretStoreReadOnly)
	}

	return errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error

	for i, backend := range s.backends {
		err := backend.Delete(ctx, key)
		if err == nil || isSkippable(err) {
			continue
		}
		if shouldStop(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d delete failed: %w", i, err))
	}

	return errors.Join(errs...)
}

func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isMissing(err error) bool {
	return errors.Is(err, domain.ErrSecretNotFound) || errors.Is(err, passstore.ErrUnavailable)
}

func isSkippable(err error) bool {
	return errors.Is(err, domain.ErrSecretStoreReadOnly) || errors.Is(err, passstore.ErrUnavailable)
}

// stripNotFound keeps a backend failure from being reported as "not configured"
// just because another backend had no entry.
func stripNotFound(errs []error) error {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if errors.Is(err, domain.ErrSecretNotFound) {
			continue
		}
		kept = append(kept, err)
	}
	return errors.Join(kept...)
}

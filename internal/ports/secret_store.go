package ports

import "context"

// SecretStore resolves server-held secrets. Implementations wrap domain.ErrSecretNotFound
// when a key has no value, and domain.ErrSecretStoreReadOnly when they cannot be written.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

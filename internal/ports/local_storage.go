package ports

import "context"

// LocalStorage is a per-user string key/value store, the analogue of browser localStorage.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
}

package ports

import "context"

// SessionStore is the key-value store the session manager persists to.
// Get returns domain.ErrKeyNotFound when the key is absent.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

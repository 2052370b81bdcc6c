package ports

import "context"

// SessionStore keeps the small key/value state the session identity manager needs.
// Get returns domain.ErrSessionNotFound for a missing key.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

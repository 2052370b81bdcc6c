package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/jobchat-cli/internal/adapters/session/file"
	memorystore "github.com/bnema/jobchat-cli/internal/adapters/session/memory"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports"
)

// Store writes to primary and falls back to a second backend when primary
// fails, so an unwritable session directory never loses the token.
type Store struct {
	primary  ports.SessionStore
	fallback ports.SessionStore
}

var _ ports.SessionStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary session store is nil")
	errNilFallbackStore = errors.New("fallback session store is nil")
)

func NewStore(primary ports.SessionStore, fallback ports.SessionStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewFileWithMemoryFallback(dir string) *Store {
	return &Store{primary: filestore.NewStore(dir), fallback: memorystore.NewStore()}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

// Get prefers primary; a key missing there is looked up in fallback, which
// only holds keys primary failed to write.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	if errors.Is(err, domain.ErrSessionNotFound) && errors.Is(fallbackErr, domain.ErrSessionNotFound) {
		return "", err
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	if err == nil && fallbackErr == nil {
		return nil
	}

	return errors.Join(err, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	SessionIDKey  = "agentic_job_search_session_id"
	PageLoadIDKey = "agentic_job_search_page_load_id"
)

type SessionOptions struct {
	// ReuseStored adopts a valid token left in the store by an earlier run
	// instead of starting a new session for this process.
	ReuseStored bool
	Clock       ports.Clock
	Logger      zerolog.Logger
	NewRandom   func() string
}

// SessionService owns the runtime session token for one process lifetime.
// Store failures are logged and never returned: the in-memory token stays
// authoritative.
type SessionService struct {
	store      ports.SessionStore
	clock      ports.Clock
	logger     zerolog.Logger
	newRandom  func() string
	reuse      bool
	pageLoadID string

	mu    sync.Mutex
	token domain.SessionToken
}

func NewSessionService(store ports.SessionStore, opts SessionOptions) *SessionService {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.NewRandom == nil {
		opts.NewRandom = func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
	}

	return &SessionService{
		store:      store,
		clock:      opts.Clock,
		logger:     opts.Logger,
		newRandom:  opts.NewRandom,
		reuse:      opts.ReuseStored,
		pageLoadID: uuid.NewString(),
	}
}

func (s *SessionService) GetOrCreateSessionID(ctx context.Context) domain.SessionToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token
	}

	if s.reuse {
		if stored, ok := s.lookup(ctx); ok {
			s.token = stored
			s.remember(ctx, "")
			return s.token
		}
	}

	s.token = s.generate()
	s.remember(ctx, s.token)
	s.logger.Debug().Str("session_id", string(s.token)).Msg("new session id generated")

	return s.token
}

// ForceNewSessionID drops the current token and starts a new session.
func (s *SessionService) ForceNewSessionID(ctx context.Context) domain.SessionToken {
	s.ClearSessionID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = s.generate()
	s.remember(ctx, s.token)
	s.logger.Debug().Str("session_id", string(s.token)).Msg("session id regenerated")

	return s.token
}

func (s *SessionService) ClearSessionID(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.store == nil {
		return
	}

	var errs []error
	for _, key := range []string{SessionIDKey, PageLoadIDKey} {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn().Err(err).Msg("clear stored session id")
	}
}

// StoredSessionID reports the token persisted by the most recent run, if any.
func (s *SessionService) StoredSessionID(ctx context.Context) (domain.SessionToken, error) {
	if s.store == nil {
		return "", domain.ErrSessionNotFound
	}

	value, err := s.store.Get(ctx, SessionIDKey)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", err
		}
		return "", fmt.Errorf("get stored session id: %w", err)
	}

	return domain.SessionToken(value), nil
}

func (s *SessionService) lookup(ctx context.Context) (domain.SessionToken, bool) {
	if s.store == nil {
		return "", false
	}

	value, err := s.store.Get(ctx, SessionIDKey)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn().Err(err).Msg("read stored session id")
		}
		return "", false
	}

	token := domain.SessionToken(strings.TrimSpace(value))
	if !token.Valid() {
		return "", false
	}

	return token, true
}

// remember persists the page-load marker and, when token is set, the token.
func (s *SessionService) remember(ctx context.Context, token domain.SessionToken) {
	if s.store == nil {
		return
	}

	if token != "" {
		if err := s.store.Put(ctx, SessionIDKey, string(token)); err != nil {
			s.logger.Warn().Err(err).Msg("persist session id")
		}
	}
	if err := s.store.Put(ctx, PageLoadIDKey, s.pageLoadID); err != nil {
		s.logger.Warn().Err(err).Msg("persist page load id")
	}
}

func (s *SessionService) generate() domain.SessionToken {
	id := fmt.Sprintf("session_%d_%s", s.clock.Now().UnixMilli(), s.newRandom())
	if len(id) < domain.MinSessionTokenLength {
		id += strings.Repeat("0", domain.MinSessionTokenLength-len(id))
	}

	return domain.SessionToken(id)
}

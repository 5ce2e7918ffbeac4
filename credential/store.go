package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Reason explains why a session left the store.
type Reason string

const (
	ReasonLogout   Reason = "logout"
	ReasonExpired  Reason = "expired"
	ReasonRejected Reason = "rejected"
	ReasonReplaced Reason = "replaced"
)

// Persister mirrors the session slot outside the process. Only the session is
// persisted; login inputs never reach it.
type Persister interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context) error
}

// InvalidationHook is called after a session has been removed from the store.
type InvalidationHook func(s Session, reason Reason)

// Store holds the anonymous credential and the single active session slot.
//
// The anonymous credential is immutable after NewStore. The session slot is
// written by the login flow (Begin) and the API client (Invalidate); every
// read-modify-write on it happens under mu.
type Store struct {
	anonymous Credential
	logger    *slog.Logger
	persister Persister
	hooks     []InvalidationHook
	now       func() time.Time

	mu      sync.RWMutex
	session *Session
}

// Option configures a Store.
type Option func(*Store)

// WithPersister mirrors session changes to p.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithInvalidationHook registers fn to run whenever a session is destroyed.
func WithInvalidationHook(fn InvalidationHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, fn) }
}

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// ErrNoAnonymousKey is returned by NewStore when the anonymous key is empty.
var ErrNoAnonymousKey = errors.New("credential: anonymous key is required")

// NewStore creates a Store around the configured anonymous key.
func NewStore(anonymousKey string, opts ...Option) (*Store, error) {
	if anonymousKey == "" {
		return nil, ErrNoAnonymousKey
	}
	s := &Store{
		anonymous: Credential{Kind: Anonymous, Value: anonymousKey},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Restore loads a previously persisted session into the empty slot. It is a
// no-op without a persister. A persisted session that has already expired is
// deleted instead of restored.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.persister == nil {
		return false, nil
	}
	sess, err := s.persister.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("credential: restore session: %w", err)
	}
	if sess == nil || !sess.Valid() {
		return false, nil
	}
	if sess.Expired(s.now()) {
		if err := s.persister.Delete(ctx); err != nil {
			s.logger.Warn("failed to delete expired persisted session", "error", err)
		}
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return false, nil
	}
	restored := *sess
	s.session = &restored
	s.logger.Debug("session restored", "role", restored.Role)
	return true, nil
}

// Anonymous returns the process-wide anonymous credential.
func (s *Store) Anonymous() Credential {
	return s.anonymous
}

// Session returns the active session. An expired session is cleared and
// reported as absent.
func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()
	if sess == nil {
		return Session{}, false
	}
	if !sess.Expired(s.now()) {
		return *sess, true
	}

	s.mu.Lock()
	if s.session == nil || s.session.Token.Value != sess.Token.Value {
		// Replaced or cleared while we waited for the write lock.
		cur := s.session
		s.mu.Unlock()
		if cur == nil {
			return Session{}, false
		}
		return *cur, true
	}
	expired := *s.session
	s.session = nil
	s.mu.Unlock()

	s.afterRemoval(expired, ReasonExpired)
	return Session{}, false
}

// Begin installs sess as the active session, replacing any previous one.
func (s *Store) Begin(sess Session) error {
	if !sess.Valid() {
		return errors.New("credential: session has no user token")
	}

	s.mu.Lock()
	prev := s.session
	next := sess
	s.session = &next
	s.mu.Unlock()

	if prev != nil && prev.Token.Value != sess.Token.Value {
		s.runHooks(*prev, ReasonReplaced)
	}
	if s.persister != nil {
		if err := s.persister.Save(context.Background(), sess); err != nil {
			s.logger.Warn("failed to persist session", "error", err)
		}
	}
	s.logger.Info("session started", "role", sess.Role, "expires_at", sess.ExpiresAt)
	return nil
}

// Invalidate clears the active session if its token is still token. It
// reports whether a session was removed. A rejection that arrives after the
// slot was replaced by a newer login leaves the newer session in place.
func (s *Store) Invalidate(token string) bool {
	s.mu.Lock()
	if s.session == nil || s.session.Token.Value != token {
		s.mu.Unlock()
		return false
	}
	removed := *s.session
	s.session = nil
	s.mu.Unlock()

	s.afterRemoval(removed, ReasonRejected)
	return true
}

// Clear removes the active session (logout).
func (s *Store) Clear() {
	s.mu.Lock()
	removed := s.session
	s.session = nil
	s.mu.Unlock()

	if removed == nil {
		return
	}
	s.afterRemoval(*removed, ReasonLogout)
}

func (s *Store) afterRemoval(sess Session, reason Reason) {
	if s.persister != nil {
		if err := s.persister.Delete(context.Background()); err != nil {
			s.logger.Warn("failed to delete persisted session", "error", err)
		}
	}
	s.logger.Info("session ended", "role", sess.Role, "reason", reason)
	s.runHooks(sess, reason)
}

func (s *Store) runHooks(sess Session, reason Reason) {
	for _, h := range s.hooks {
		h(sess, reason)
	}
}

package search

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hooks lets callers observe registry and controller activity without the
// search package depending on a metrics backend. Nil hooks are skipped.
type Hooks struct {
	OnAcquire  func(key Key)
	OnConflict func(key Key)
	OnDestroy  func(key Key, reason DestroyReason, lifetime time.Duration)
	OnBypass   func(provider string)
	OnLookup   func(provider string, took time.Duration, err error)
}

// Registry maps (scope, user) to at most one live session.
type Registry struct {
	mu       sync.Mutex
	sessions map[Key]*Session

	now   func() time.Time
	hooks Hooks
	log   logrus.FieldLogger
}

type RegistryOption func(*Registry)

func WithHooks(h Hooks) RegistryOption {
	return func(r *Registry) { r.hooks = h }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func WithRegistryLogger(log logrus.FieldLogger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[Key]*Session),
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire creates and registers a session for key if none exists. The
// check and the insert happen under one lock, so concurrent callers for
// the same key get exactly one session and a *ConflictError each.
func (r *Registry) Acquire(key Key, query string) (*Session, error) {
	r.mu.Lock()
	if existing, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		if r.hooks.OnConflict != nil {
			r.hooks.OnConflict(key)
		}
		return nil, &ConflictError{Existing: existing}
	}
	s := newSession(key, query, r.now())
	r.sessions[key] = s
	r.mu.Unlock()

	if r.hooks.OnAcquire != nil {
		r.hooks.OnAcquire(key)
	}
	r.log.WithFields(logrus.Fields{
		"guild":   key.ScopeID,
		"user":    key.UserID,
		"session": s.ID(),
	}).Debug("search session opened")
	return s, nil
}

// Get returns the live session for key.
func (r *Registry) Get(key Key) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Release removes whatever session key owns. Releasing an absent key is a
// no-op.
func (r *Registry) Release(key Key) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if ok {
		r.finish(s, ReasonReleased)
	}
}

// Cancel is the user-initiated teardown: the live session for key is
// marked cancelled and destroyed. It reports whether a session was found.
func (r *Registry) Cancel(key Key) bool {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	r.finish(s, ReasonCancelled)
	return true
}

// Destroy removes s and fires its destroy signal. The registry entry is
// only removed if it still belongs to s, so a late timer of an old session
// can never evict a newer one.
func (r *Registry) Destroy(s *Session, reason DestroyReason) {
	r.mu.Lock()
	if cur, ok := r.sessions[s.key]; ok && cur == s {
		delete(r.sessions, s.key)
	}
	r.mu.Unlock()

	r.finish(s, reason)
}

// Claim atomically removes the bound session id owned by key and destroys
// it with reason. Only one caller can claim a given session.
func (r *Registry) Claim(key Key, id string, reason DestroyReason) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if !ok || s.ID() != id {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if s.State() != StateBound {
		r.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	delete(r.sessions, key)
	r.mu.Unlock()

	r.finish(s, reason)
	return s, nil
}

// Bind exposes a ResultsReady session to the UI. The session stays
// registered until the UI destroys it or ttl elapses.
func (r *Registry) Bind(s *Session, ttl time.Duration) error {
	return s.bind(ttl, func() { r.Destroy(s, ReasonExpired) })
}

func (r *Registry) finish(s *Session, reason DestroyReason) {
	if !s.destroy(reason) {
		return
	}
	if r.hooks.OnDestroy != nil {
		r.hooks.OnDestroy(s.key, reason, r.now().Sub(s.createdAt))
	}
	r.log.WithFields(logrus.Fields{
		"guild":   s.key.ScopeID,
		"user":    s.key.UserID,
		"session": s.ID(),
		"reason":  reason,
	}).Debug("search session destroyed")
}

package search

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State int

const (
	StateOpen State = iota
	StateResultsReady
	StateBound
	StateEmpty
	StateCancelled
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateResultsReady:
		return "results-ready"
	case StateBound:
		return "bound"
	case StateEmpty:
		return "empty"
	case StateCancelled:
		return "cancelled"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// DestroyReason tells listeners why a session went away.
type DestroyReason string

const (
	ReasonSelected  DestroyReason = "selected"
	ReasonCancelled DestroyReason = "cancelled"
	ReasonExpired   DestroyReason = "expired"
	ReasonEmpty     DestroyReason = "empty"
	ReasonFailed    DestroyReason = "failed"
	ReasonReleased  DestroyReason = "released"
)

// Key identifies the owner of a session: one user inside one scope (guild).
type Key struct {
	ScopeID string
	UserID  string
}

// Session tracks one user's in-flight search. It is created by a Registry
// and never reused once destroyed.
type Session struct {
	id        string
	key       Key
	rawQuery  string
	createdAt time.Time

	mu           sync.Mutex
	state        State
	displayQuery string
	results      []Result
	reason       DestroyReason
	timer        *time.Timer

	done        chan struct{}
	destroyOnce sync.Once
}

func newSession(key Key, query string, now time.Time) *Session {
	return &Session{
		id:           uuid.NewString(),
		key:          key,
		rawQuery:     query,
		displayQuery: query,
		createdAt:    now,
		state:        StateOpen,
		done:         make(chan struct{}),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Key() Key             { return s.key }
func (s *Session) RawQuery() string     { return s.rawQuery }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Done is closed exactly once, when the session is destroyed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query is the query shown to the user, which may be the provider's
// corrected form of RawQuery.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayQuery
}

// Results returns a copy of the normalized results.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// Reason is empty until the session is destroyed.
func (s *Session) Reason() DestroyReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Resolve records the lookup outcome. An open session moves to
// ResultsReady when there is at least one result and to Empty otherwise.
func (s *Session) Resolve(out Outcome) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpen:
	case StateCancelled, StateDestroyed:
		return s.state, ErrSessionClosed
	default:
		return s.state, ErrInvalidTransition
	}

	if out.Query != "" {
		s.displayQuery = out.Query
	}
	if len(out.Results) == 0 {
		s.state = StateEmpty
		return s.state, nil
	}
	s.results = slices.Clone(out.Results)
	s.state = StateResultsReady
	return s.state, nil
}

// bind moves ResultsReady to Bound and arms the expiry timer.
func (s *Session) bind(ttl time.Duration, expire func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateResultsReady:
	case StateCancelled, StateDestroyed:
		return ErrSessionClosed
	default:
		return ErrInvalidTransition
	}

	s.state = StateBound
	if ttl > 0 {
		s.timer = time.AfterFunc(ttl, expire)
	}
	return nil
}

// cancel marks a live session as cancelled. Destruction follows.
func (s *Session) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpen, StateResultsReady, StateBound:
		s.state = StateCancelled
		return true
	default:
		return false
	}
}

// destroy is idempotent; the first reason wins.
func (s *Session) destroy(reason DestroyReason) bool {
	destroyed := false
	s.destroyOnce.Do(func() {
		s.mu.Lock()
		s.state = StateDestroyed
		s.reason = reason
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.mu.Unlock()

		close(s.done)
		destroyed = true
	})
	return destroyed
}

package search

import (
	"errors"
	"fmt"
)

var (
	ErrArgumentMissing   = errors.New("search term is required")
	ErrSessionConflict   = errors.New("a search panel is already open")
	ErrLookupFailure     = errors.New("lookup failed")
	ErrEmptyResult       = errors.New("no results")
	ErrVoiceUnavailable  = errors.New("voice channel unavailable")
	ErrSessionClosed     = errors.New("session is closed")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrSessionNotFound   = errors.New("session not found")
)

// ConflictError is returned by Registry.Acquire when the key already owns
// a live session.
type ConflictError struct {
	Existing *Session
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v (session %s, state %s)", ErrSessionConflict, e.Existing.ID(), e.Existing.State())
}

func (e *ConflictError) Unwrap() error { return ErrSessionConflict }

// LookupError is a provider failure or a lookup deadline.
type LookupError struct {
	Provider string
	Query    string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup for %q failed: %v", e.Provider, e.Query, e.Err)
}

func (e *LookupError) Unwrap() []error { return []error{ErrLookupFailure, e.Err} }

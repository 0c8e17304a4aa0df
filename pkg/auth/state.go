// Package auth holds the signed-in session of an application and the token
// revocation list of the service.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by a Provider that no longer knows the
// session being signed out.
var ErrSessionNotFound = errors.New("session_not_found")

type Session struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ChangeEvent string

const (
	EventSignedIn       ChangeEvent = "SIGNED_IN"
	EventSignedOut      ChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
)

// Provider is the identity backend.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	OnChange(fn func(ChangeEvent, *Session)) (unsubscribe func())
	SignOut(ctx context.Context, accessToken string) error
}

// StatusError is a provider answer with an HTTP status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// AlreadySignedOut reports whether a sign-out failure means the session is
// gone anyway.
func AlreadySignedOut(err error) bool {
	if errors.Is(err, ErrSessionNotFound) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusForbidden || se.Message == ErrSessionNotFound.Error())
}

// State is the application's view of the signed-in user. Call Init, then
// Listen, and Teardown when the application shuts down.
type State struct {
	provider Provider

	mu          sync.RWMutex
	session     *Session
	loading     bool
	unsubscribe func()
	watchers    map[int]func(*Session)
	nextWatcher int
}

func NewState(p Provider) *State {
	return &State{
		provider: p,
		loading:  true,
		watchers: make(map[int]func(*Session)),
	}
}

// Init loads the current session. An error leaves the state signed out.
func (s *State) Init(ctx context.Context) error {
	session, err := s.provider.GetSession(ctx)
	if err != nil {
		s.set(nil)
		return err
	}
	s.set(session)
	return nil
}

// Listen follows provider change events until Teardown. Calling it twice
// keeps a single subscription.
func (s *State) Listen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.provider.OnChange(func(ev ChangeEvent, session *Session) {
		if ev == EventSignedOut {
			session = nil
		}
		s.set(session)
	})
}

func (s *State) Teardown() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// SignOut clears the local session first, then tells the provider. A
// provider that no longer knows the session is not an error, so signing out
// twice succeeds.
func (s *State) SignOut(ctx context.Context) error {
	s.mu.RLock()
	var token string
	if s.session != nil {
		token = s.session.AccessToken
	}
	s.mu.RUnlock()

	s.set(nil)
	if token == "" {
		return nil
	}
	if err := s.provider.SignOut(ctx, token); err != nil && !AlreadySignedOut(err) {
		return err
	}
	return nil
}

func (s *State) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *State) Authenticated() bool {
	return s.Session() != nil
}

func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Watch calls fn with every new session (nil when signed out).
func (s *State) Watch(fn func(*Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *State) set(session *Session) {
	s.mu.Lock()
	s.session = session
	s.loading = false
	watchers := make([]func(*Session), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(session)
	}
}

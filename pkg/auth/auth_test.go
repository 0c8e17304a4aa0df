package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/types"
)

type fakeProvider struct {
	mu         sync.Mutex
	session    *Session
	getErr     error
	signOutErr error
	signOuts   []string
	listener   func(ChangeEvent, *Session)
	unsubbed   int
}

func (p *fakeProvider) GetSession(context.Context) (*Session, error) {
	return p.session, p.getErr
}

func (p *fakeProvider) OnChange(fn func(ChangeEvent, *Session)) func() {
	p.mu.Lock()
	p.listener = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.listener = nil
		p.unsubbed++
		p.mu.Unlock()
	}
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.signOuts = append(p.signOuts, token)
	return p.signOutErr
}

func (p *fakeProvider) emit(ev ChangeEvent, s *Session) {
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l(ev, s)
	}
}

func TestStateLifecycle(t *testing.T) {
	p := &fakeProvider{session: &Session{UserID: "u1", AccessToken: "t1"}}
	s := NewState(p)
	assert.True(t, s.Loading())

	require.NoError(t, s.Init(context.Background()))
	assert.False(t, s.Loading())
	assert.True(t, s.Authenticated())

	var seen []*Session
	cancel := s.Watch(func(sess *Session) { seen = append(seen, sess) })
	defer cancel()

	s.Listen()
	s.Listen()
	p.emit(EventTokenRefreshed, &Session{UserID: "u1", AccessToken: "t2"})
	assert.Equal(t, "t2", s.Session().AccessToken)

	p.emit(EventSignedOut, &Session{UserID: "u1"})
	assert.False(t, s.Authenticated())
	assert.Len(t, seen, 2)

	s.Teardown()
	s.Teardown()
	assert.Equal(t, 1, p.unsubbed)

	p.emit(EventSignedIn, &Session{UserID: "u2"})
	assert.False(t, s.Authenticated(), "no updates after teardown")
}

func TestStateInitError(t *testing.T) {
	p := &fakeProvider{getErr: errors.New("network")}
	s := NewState(p)
	assert.Error(t, s.Init(context.Background()))
	assert.False(t, s.Loading())
	assert.False(t, s.Authenticated())
}

func TestSignOut(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"ok", nil, false},
		{"session not found", ErrSessionNotFound, false},
		{"forbidden", &StatusError{Code: http.StatusForbidden, Message: "forbidden"}, false},
		{"not found message", &StatusError{Code: http.StatusBadRequest, Message: "session_not_found"}, false},
		{"server error", &StatusError{Code: 500, Message: "boom"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{session: &Session{UserID: "u", AccessToken: "tok"}, signOutErr: tt.err}
			s := NewState(p)
			require.NoError(t, s.Init(context.Background()))

			err := s.SignOut(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.False(t, s.Authenticated(), "local state is cleared either way")
			assert.Equal(t, []string{"tok"}, p.signOuts)

			// a second sign-out has nothing to tell the provider
			assert.NoError(t, s.SignOut(context.Background()))
			assert.Len(t, p.signOuts, 1)
		})
	}
}

type mapCache struct {
	items map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	v, ok := c.items[key]
	if !ok {
		return "", types.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) SetEx(_ context.Context, key, value string, _ time.Duration) error {
	c.items[key] = value
	return nil
}

func (c *mapCache) Del(_ context.Context, key string) error {
	delete(c.items, key)
	return nil
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{items: map[string]string{}}

	revoked, err := Revoked(ctx, cache, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, Revoke(ctx, cache, "tok", time.Now().Add(time.Hour)))
	require.NoError(t, Revoke(ctx, cache, "tok", time.Now().Add(time.Hour)))
	revoked, err = Revoked(ctx, cache, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, Revoke(ctx, cache, "old", time.Now().Add(-time.Hour)))
	assert.Len(t, cache.items, 1)
}

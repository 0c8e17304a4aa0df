package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Track is the audio a player wants to open.
type Track struct {
	URL       string
	ExpiresAt time.Time
}

// Loader fetches the audio behind a url.
type Loader interface {
	Load(ctx context.Context, url string) (io.ReadCloser, error)
}

type LoaderFunc func(ctx context.Context, url string) (io.ReadCloser, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (io.ReadCloser, error) {
	return f(ctx, url)
}

// TransientRetry retries a failed load up to MaxAttempts times. The n-th
// retry (0-based) waits BaseDelay*(n+1).
type TransientRetry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultTransientRetry() TransientRetry {
	return TransientRetry{MaxAttempts: 2, BaseDelay: time.Second}
}

func (s TransientRetry) Name() string { return "transient_retry" }

func (s TransientRetry) Allow(attempt int) bool {
	return attempt < s.MaxAttempts
}

func (s TransientRetry) Delay(attempt int) time.Duration {
	return s.BaseDelay * time.Duration(attempt+1)
}

// RefreshFunc re-signs the audio and returns the new url and its expiry.
type RefreshFunc func(ctx context.Context) (string, time.Time, error)

// CredentialRefresh replaces an expired url at most Max times per Open.
type CredentialRefresh struct {
	Refresh RefreshFunc
	Max     int
}

func (s CredentialRefresh) Name() string { return "credential_refresh" }

func (s CredentialRefresh) Allow(attempt int) bool {
	return s.Refresh != nil && attempt < s.Max
}

// Error is returned when recovery gives up.
type Error struct {
	Class     Class
	Retries   int
	Refreshes int
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("playback %s after %d retries and %d refreshes: %v", e.Class, e.Retries, e.Refreshes, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Observer is told about every recovery step, e.g. to count them.
type Observer func(strategy string, outcome string)

type Option func(*Recoverer)

func WithTransientRetry(s TransientRetry) Option {
	return func(r *Recoverer) { r.retry = s }
}

func WithObserver(o Observer) Option {
	return func(r *Recoverer) { r.observe = o }
}

func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Recoverer) {
		r.now = now
		r.sleep = sleep
	}
}

// Recoverer composes the two strategies around a Loader.
type Recoverer struct {
	loader  Loader
	retry   TransientRetry
	refresh CredentialRefresh
	observe Observer
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRecoverer(loader Loader, refresh CredentialRefresh, opts ...Option) *Recoverer {
	r := &Recoverer{
		loader:  loader,
		retry:   DefaultTransientRetry(),
		refresh: refresh,
		now:     time.Now,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open loads the track, refreshing or retrying as the failure class
// dictates. The returned Track carries the url that finally worked.
func (r *Recoverer) Open(ctx context.Context, track Track) (io.ReadCloser, Track, error) {
	var retries, refreshes int

	if track.URL == "" {
		return nil, track, &Error{Class: ClassTerminal, Err: ErrNoAudio}
	}

	// a url already known to be expired is refreshed before the first load
	if Expired(track.ExpiresAt, r.now()) && r.refresh.Allow(refreshes) {
		var err error
		if track, err = r.doRefresh(ctx, track); err != nil {
			return nil, track, &Error{Class: ClassExpired, Refreshes: 1, Err: err}
		}
		refreshes++
	}

	for {
		body, err := r.loader.Load(ctx, track.URL)
		if err == nil {
			return body, track, nil
		}

		class := Classify(err, track.ExpiresAt, r.now())
		switch class {
		case ClassExpired:
			if !r.refresh.Allow(refreshes) {
				r.notify(r.refresh.Name(), "exhausted")
				return nil, track, &Error{Class: class, Retries: retries, Refreshes: refreshes, Err: err}
			}
			refreshes++
			if track, err = r.doRefresh(ctx, track); err != nil {
				return nil, track, &Error{Class: class, Retries: retries, Refreshes: refreshes, Err: err}
			}
		case ClassTransient:
			if !r.retry.Allow(retries) {
				r.notify(r.retry.Name(), "exhausted")
				return nil, track, &Error{Class: class, Retries: retries, Refreshes: refreshes, Err: err}
			}
			if err := r.sleep(ctx, r.retry.Delay(retries)); err != nil {
				return nil, track, &Error{Class: ClassTerminal, Retries: retries, Refreshes: refreshes, Err: err}
			}
			retries++
			r.notify(r.retry.Name(), "retry")
		default:
			return nil, track, &Error{Class: class, Retries: retries, Refreshes: refreshes, Err: err}
		}
	}
}

func (r *Recoverer) doRefresh(ctx context.Context, track Track) (Track, error) {
	url, expiresAt, err := r.refresh.Refresh(ctx)
	if err != nil {
		r.notify(r.refresh.Name(), "failed")
		return track, err
	}
	if url == "" {
		r.notify(r.refresh.Name(), "failed")
		return track, ErrNoAudio
	}
	r.notify(r.refresh.Name(), "refreshed")
	return Track{URL: url, ExpiresAt: expiresAt}, nil
}

func (r *Recoverer) notify(strategy, outcome string) {
	if r.observe != nil {
		r.observe(strategy, outcome)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsClass reports whether err is a recovery failure of class c.
func IsClass(err error, c Class) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Class == c
}

// Package playback opens generated audio and recovers from load failures.
//
// Failures are classified first. Expired credentials are refreshed once and
// the load is repeated; transient failures are retried a bounded number of
// times with a linearly growing delay; everything else is terminal and left
// to the user.
package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Class int

const (
	ClassTransient Class = iota
	ClassExpired
	ClassTerminal
)

func (c Class) String() string {
	switch c {
	case ClassExpired:
		return "expired"
	case ClassTerminal:
		return "terminal"
	default:
		return "transient"
	}
}

var ErrNoAudio = errors.New("no audio available")

// StatusError is returned by loaders when the object store answers with a
// non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("audio request failed: %d", e.Code)
	}
	return fmt.Sprintf("audio request failed: %d - %s", e.Code, e.Body)
}

// Classify decides how a load failure is recovered. expiresAt may be zero
// when the expiry is unknown.
func Classify(err error, expiresAt, now time.Time) Class {
	if err == nil {
		return ClassTransient
	}
	if errors.Is(err, ErrNoAudio) || errors.Is(err, context.Canceled) {
		return ClassTerminal
	}
	if Expired(expiresAt, now) {
		return ClassExpired
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusForbidden:
			return ClassExpired
		case se.Code == http.StatusTooManyRequests || se.Code >= 500:
			return ClassTransient
		case se.Code >= 400:
			if strings.Contains(strings.ToLower(se.Body), "expired") {
				return ClassExpired
			}
			return ClassTerminal
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "expired") {
		return ClassExpired
	}
	// network errors, timeouts and anything unknown get retried
	return ClassTransient
}

// Expired reports whether a url with the given expiry must be refreshed
// before use.
func Expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}

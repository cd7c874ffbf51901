package session

import (
	"context"
	"errors"
)

// ErrIncompleteSession is returned by Save when only one of the two tokens is provided.
var ErrIncompleteSession = errors.New("session requires both access and refresh token")

// ErrStoreUnavailable wraps backend failures on Save and Clear.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the durable, process-wide home of the current [Session].
//
// Implementations must be safe for concurrent use. Save writes both tokens as one
// unit; Load never fails and returns the empty session when nothing usable is stored;
// Clear is idempotent.
type Store interface {
	Save(ctx context.Context, accessToken, refreshToken string) error
	Load(ctx context.Context) Session
	Clear(ctx context.Context) error
}

// IsAuthenticated reports whether store currently holds an access token.
func IsAuthenticated(ctx context.Context, store Store) bool {
	if store == nil {
		return false
	}
	return store.Load(ctx).AccessToken != ""
}

// WarnFunc receives read failures that Load reports as the empty session.
// args are slog-style key/value pairs.
type WarnFunc func(msg string, args ...any)

func (w WarnFunc) warn(msg string, args ...any) {
	if w != nil {
		w(msg, args...)
	}
}

func validatePair(accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrIncompleteSession
	}
	return nil
}

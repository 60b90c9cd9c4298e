package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/kvstore"
)

// Lockout defaults.
const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

const attemptsPrefix = "login_attempts:"

// LoginAttemptGuard counts failed logins per username. Every failure
// restarts the window, so the lock lifts Window after the last failure.
type LoginAttemptGuard struct {
	Store       kvstore.Store
	MaxAttempts int
	Window      time.Duration
}

func (g *LoginAttemptGuard) max() int {
	if g.MaxAttempts <= 0 {
		return DefaultMaxLoginAttempts
	}
	return g.MaxAttempts
}

// RetryAfter is how long a locked account stays locked without further
// failures.
func (g *LoginAttemptGuard) RetryAfter() time.Duration {
	if g.Window <= 0 {
		return DefaultLockoutWindow
	}
	return g.Window
}

func attemptsKey(username string) string {
	return attemptsPrefix + strings.ToLower(username)
}

// RecordFailure counts a failed attempt and returns how many remain before
// the account locks.
func (g *LoginAttemptGuard) RecordFailure(ctx context.Context, username string) (int, error) {
	n, err := g.Store.Incr(ctx, attemptsKey(username), g.RetryAfter())
	if err != nil {
		return 0, err
	}
	return max(0, g.max()-int(n)), nil
}

// RecordSuccess clears the counter.
func (g *LoginAttemptGuard) RecordSuccess(ctx context.Context, username string) error {
	return g.Store.Delete(ctx, attemptsKey(username))
}

// IsLocked reports whether the failure count reached the limit.
func (g *LoginAttemptGuard) IsLocked(ctx context.Context, username string) (bool, error) {
	v, err := g.Store.Get(ctx, attemptsKey(username))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeInternal, "corrupt login attempt counter")
	}
	return n >= g.max(), nil
}

// LockedError is the ACCOUNT_LOCKED error carrying retryAfter in seconds.
func (g *LoginAttemptGuard) LockedError() error {
	return ErrAccountLocked.WithMetadata("retryAfter", int(g.RetryAfter().Seconds()))
}

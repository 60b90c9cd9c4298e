// Package blacklist revokes access tokens before they expire. Entries are
// keyed by jti and live exactly as long as the token would have.
package blacklist

import (
	"context"
	"time"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
)

const (
	keyPrefix    = "blacklist:"
	revokedValue = "revoked"
)

// Blacklist records revoked token ids in a shared store so every instance
// sees a revocation.
type Blacklist struct {
	store kvstore.Store
	now   func() time.Time
}

func New(store kvstore.Store) *Blacklist {
	return &Blacklist{store: store, now: time.Now}
}

// Blacklist revokes accessToken until its exp. Tokens that are already
// expired or carry no jti need no entry.
//
// The token is decoded without verification; callers pass tokens they have
// already validated.
func (b *Blacklist) Blacklist(ctx context.Context, accessToken string) error {
	claims, err := jwtx.ParseUnverified(accessToken)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidToken, "cannot blacklist malformed token")
	}
	return b.Revoke(ctx, claims.ID, claims.Expiry())
}

// Revoke blacklists jti until expiresAt.
func (b *Blacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	return b.store.Set(ctx, keyPrefix+jti, revokedValue, ttl)
}

// IsBlacklisted reports whether jti was revoked. Store failures are returned
// so callers can fail closed.
func (b *Blacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return b.store.Exists(ctx, keyPrefix+jti)
}

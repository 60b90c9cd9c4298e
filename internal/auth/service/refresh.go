package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/idx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// RefreshTokenService persists refresh tokens by fingerprint and rotates
// them. A value is exchangeable at most once.
type RefreshTokenService struct {
	Store store.Store
	TTL   time.Duration
	Now   func() time.Time
}

func (s *RefreshTokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *RefreshTokenService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.TTL
}

// Create stores the fingerprint of raw for userID.
func (s *RefreshTokenService) Create(ctx context.Context, userID, raw string) (domain.RefreshToken, error) {
	rec := s.newRecord(userID, raw, s.now())
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return domain.RefreshToken{}, internal(err, "store refresh token")
	}
	return rec, nil
}

func (s *RefreshTokenService) newRecord(userID, raw string, now time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}
}

// Rotate revokes raw and issues its successor in one transaction. Of any
// number of concurrent rotations of the same value exactly one succeeds.
// An expired value is still revoked before ErrRefreshTokenExpired is
// returned, so a retry sees ErrInvalidRefreshToken.
func (s *RefreshTokenService) Rotate(ctx context.Context, raw string) (userID, next string, err error) {
	if raw == "" {
		return "", "", ErrInvalidRefreshToken
	}
	l := slogx.FromContext(ctx)
	now := s.now()
	hash := cryptox.FingerprintToken(raw)

	var expired bool
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return internal(err, "load refresh token")
		}
		if !cryptox.FingerprintEqual(rec.TokenHash, hash) {
			return ErrInvalidRefreshToken
		}
		if rec.Revoked {
			l.Warn("revoked refresh token presented", slog.String("user_id", rec.UserID), slog.String("token_id", rec.ID))
			return ErrInvalidRefreshToken
		}

		won, err := tx.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, now)
		if err != nil {
			return internal(err, "revoke refresh token")
		}
		if !won {
			return ErrInvalidRefreshToken
		}

		if !now.Before(rec.ExpiresAt) {
			expired = true
			return nil
		}

		next, err = newRefreshToken()
		if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, s.newRecord(rec.UserID, next, now)); err != nil {
			return internal(err, "store refresh token")
		}
		userID = rec.UserID
		return nil
	})
	if err != nil {
		return "", "", err
	}
	if expired {
		return "", "", ErrRefreshTokenExpired
	}
	return userID, next, nil
}

// Revoke marks the record revoked. Revoking twice is not an error.
func (s *RefreshTokenService) Revoke(ctx context.Context, id string) error {
	if _, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, id, s.now()); err != nil {
		return internal(err, "revoke refresh token")
	}
	return nil
}

// RevokeRaw revokes the record for a raw value. Unknown values are ignored.
func (s *RefreshTokenService) RevokeRaw(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	rec, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return internal(err, "load refresh token")
	}
	return s.Revoke(ctx, rec.ID)
}

// RevokeAllForUser revokes every live refresh token of userID.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, s.now())
	if err != nil {
		return 0, internal(err, "revoke user refresh tokens")
	}
	return n, nil
}

// SweepExpired deletes records past their expiry.
func (s *RefreshTokenService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, internal(err, "delete expired refresh tokens")
	}
	return n, nil
}

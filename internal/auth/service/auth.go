package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// TokenValidator validates access tokens presented back to the issuer.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*jwtx.Claims, error)
}

// Blacklister revokes access tokens before they expire.
type Blacklister interface {
	Blacklist(ctx context.Context, accessToken string) error
}

// AuthService composes the token lifecycle exposed under /auth.
type AuthService struct {
	Users     *UserService
	Issuer    *TokenIssuer
	Tokens    *RefreshTokenService
	Attempts  *LoginAttemptGuard
	Blacklist Blacklister
	Validator TokenValidator
}

// Login checks credentials under the lockout guard and issues a token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx).With(slog.String("username", username))
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	locked, err := s.Attempts.IsLocked(ctx, username)
	if err != nil {
		return domain.TokenPair{}, unavailable(err, "login attempt store")
	}
	if locked {
		l.Warn("login rejected for locked account")
		return domain.TokenPair{}, s.Attempts.LockedError()
	}

	u, err := s.Users.Authenticate(ctx, username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			return domain.TokenPair{}, err
		}
		remaining, ferr := s.Attempts.RecordFailure(ctx, username)
		if ferr != nil {
			return domain.TokenPair{}, unavailable(ferr, "login attempt store")
		}
		if remaining == 0 {
			l.Warn("account locked after repeated login failures")
			return domain.TokenPair{}, s.Attempts.LockedError()
		}
		l.Info("login failed", slog.Int("attempts_remaining", remaining))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if err := s.Attempts.RecordSuccess(ctx, username); err != nil {
		l.Warn("failed to reset login attempts", slog.Any("error", err))
	}
	if err := s.Users.RecordLogin(ctx, u.ID); err != nil {
		l.Warn("failed to record last login", slog.Any("error", err))
	}

	refresh, err := s.Issuer.IssueRefreshToken()
	if err != nil {
		return domain.TokenPair{}, err
	}
	if _, err := s.Tokens.Create(ctx, u.ID, refresh); err != nil {
		return domain.TokenPair{}, err
	}

	pair, err := s.pair(ctx, u, refresh)
	if err != nil {
		return domain.TokenPair{}, err
	}
	l.Info("login succeeded", slog.String("user_id", u.ID))
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented value is
// spent whether or not the exchange succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	userID, next, err := s.Tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if rerr := s.Tokens.RevokeRaw(ctx, next); rerr != nil {
				slogx.FromContext(ctx).Warn("failed to revoke successor refresh token",
					slog.String("user_id", userID), slog.Any("error", rerr))
			}
			return domain.TokenPair{}, ErrInvalidRefreshToken
		}
		return domain.TokenPair{}, err
	}
	return s.pair(ctx, u, next)
}

func (s *AuthService) pair(ctx context.Context, u domain.User, refresh string) (domain.TokenPair, error) {
	access, err := s.Issuer.IssueAccessToken(ctx, u.ID, u.Roles, u.Scopes, "")
	if err != nil {
		return domain.TokenPair{}, err
	}
	p := u.Profile()
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Issuer.AccessTTL() / time.Second),
		UserID:       u.ID,
		Roles:        p.Roles,
		Scopes:       p.Scopes,
	}, nil
}

// Logout blacklists the access token and revokes the refresh token. It is
// idempotent: an already revoked or expired access token is accepted.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.Validator.Validate(ctx, accessToken)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrTokenRevoked), errors.Is(err, apperr.ErrTokenExpired):
	default:
		return err
	}

	if err := s.Blacklist.Blacklist(ctx, accessToken); err != nil {
		return err
	}
	if err := s.Tokens.RevokeRaw(ctx, refreshToken); err != nil {
		return err
	}

	if claims != nil {
		slogx.FromContext(ctx).Info("logout", slog.String("user_id", claims.Subject))
	}
	return nil
}

// Introspect reports whether token is currently valid. It never fails:
// every problem yields an inactive result.
func (s *AuthService) Introspect(ctx context.Context, token string) domain.Introspection {
	claims, err := s.Validator.Validate(ctx, token)
	if err != nil {
		slogx.FromContext(ctx).Debug("introspected inactive token", slog.String("code", string(apperr.CodeOf(err))))
		return domain.Introspection{}
	}

	exp := claims.Expiry()
	return domain.Introspection{
		Active:     true,
		Subject:    &claims.Subject,
		Issuer:     &claims.Issuer,
		Expiration: &exp,
		Roles:      claims.Roles,
		Scopes:     claims.Scopes,
	}
}

func unavailable(err error, what string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(err, apperr.CodeUnavailable, what+" unavailable")
}

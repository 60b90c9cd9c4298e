package service

import (
	"context"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// ServiceScopes are granted to service-to-service tokens.
var ServiceScopes = []string{"service:internal", "user:create", "user:read"}

// TokenIssuer signs access tokens and mints opaque refresh tokens.
type TokenIssuer struct {
	KeyManager *jwtx.KeyManager
	Issuer     string

	// Audience is used when the caller does not name one.
	Audience string

	TTL time.Duration
	Now func() time.Time
}

func (i *TokenIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// AccessTTL is the lifetime of issued access tokens.
func (i *TokenIssuer) AccessTTL() time.Duration {
	if i.TTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return i.TTL
}

// IssueAccessToken signs an access token for subject. An empty audience
// falls back to the issuer's default audience.
func (i *TokenIssuer) IssueAccessToken(ctx context.Context, subject string, roles, scopes []string, audience string) (string, error) {
	signer := i.KeyManager.GetSigner()
	if signer == nil {
		slogx.FromContext(ctx).Error("access token requested with no active signing key")
		return "", ErrSigningUnavailable
	}
	if audience == "" {
		audience = i.Audience
	}

	claims := jwtx.NewAccessClaims(subject, i.Issuer, audience, roles, scopes, i.AccessTTL(), i.now())
	tok, err := signer.Sign(claims)
	if err != nil {
		return "", ErrSigningUnavailable.WithCause(err)
	}
	return tok, nil
}

// IssueRefreshToken returns a fresh opaque refresh token value.
func (i *TokenIssuer) IssueRefreshToken() (string, error) {
	return newRefreshToken()
}

// IssueServiceToken signs a token the auth service presents to another
// service. The subject is the issuer name.
func (i *TokenIssuer) IssueServiceToken(ctx context.Context, audience string) (string, error) {
	return i.IssueAccessToken(ctx, i.Issuer, []string{domain.RoleService}, ServiceScopes, audience)
}

func newRefreshToken() (string, error) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", internal(err, "generate refresh token")
	}
	return tok, nil
}

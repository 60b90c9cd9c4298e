package jwtx

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenTypeAccess is the token_type claim carried by every access token.
const TokenTypeAccess = "access"

// Claims are the access token claims shared by the issuer and every
// validating service. Roles and Scopes are never nil after decoding.
type Claims struct {
	jwt.RegisteredClaims

	Roles     []string `json:"roles"`
	Scopes    []string `json:"scopes"`
	TokenType string   `json:"token_type,omitempty"`
}

// NewAccessClaims builds the claims for an access token issued at now.
func NewAccessClaims(subject, issuer, audience string, roles, scopes []string, ttl time.Duration, now time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Roles:     slices.Clone(roles),
		Scopes:    slices.Clone(scopes),
		TokenType: TokenTypeAccess,
	}
	if audience != "" {
		c.Audience = jwt.ClaimStrings{audience}
	}
	c.normalize()
	return c
}

// NewJTI returns a fresh token identifier. The jti is the blacklist key.
func NewJTI() string {
	return uuid.NewString()
}

// UnmarshalJSON decodes the claims and applies the empty defaults.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Claims(p)
	c.normalize()
	return nil
}

func (c *Claims) normalize() {
	if c.Roles == nil {
		c.Roles = []string{}
	}
	if c.Scopes == nil {
		c.Scopes = []string{}
	}
}

// HasRole reports whether role is present.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAudience reports whether aud is one of the token audiences.
func (c *Claims) HasAudience(aud string) bool {
	return slices.Contains(c.Audience, aud)
}

// Expiry returns the exp claim or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

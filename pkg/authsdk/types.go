package authsdk

import (
	"time"

	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// ErrorResponse is the error envelope returned with every 4xx and 5xx.
type ErrorResponse = httpx.ErrorEnvelope

// ============================================================================
// Token Types
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"Correct-Horse-9-Battery"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body of POST /auth/logout. The access token travels
// in the Authorization header.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// IntrospectRequest is the body of POST /auth/introspect.
type IntrospectRequest struct {
	Token string `json:"token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType" example:"Bearer"`
	ExpiresIn    int64    `json:"expiresIn" example:"900"`
	UserID       string   `json:"userId"`
	Roles        []string `json:"roles"`
	Scopes       []string `json:"scopes"`
}

// IntrospectionResponse describes a token. Every field but Active is null
// for inactive tokens.
type IntrospectionResponse struct {
	Active     bool       `json:"active"`
	Subject    *string    `json:"subject"`
	Issuer     *string    `json:"issuer"`
	Expiration *time.Time `json:"expiration"`
	Roles      []string   `json:"roles"`
	Scopes     []string   `json:"scopes"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Logged out successfully"`
}

// ServiceTokenRequest asks the auth service for a token addressed to
// another service.
type ServiceTokenRequest struct {
	Audience string `json:"audience" example:"user-service"`
}

// ServiceTokenResponse carries a service-to-service access token.
type ServiceTokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn" example:"900"`
}

// ============================================================================
// User Types
// ============================================================================

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"Correct-Horse-9-Battery"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Roles       []string   `json:"roles"`
	Scopes      []string   `json:"scopes"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Cache    string `json:"cache"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse is the key set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Key Rotation Types
// ============================================================================

// RotateKeyRequest asks for a new signing key.
type RotateKeyRequest struct {
	// RetireExisting stops the current keys from signing. They keep
	// verifying until their grace period ends.
	RetireExisting bool `json:"retireExisting"`
}

// SigningKeyInfo describes a signing key. Signing keys issue new tokens;
// active keys still verify.
type SigningKeyInfo struct {
	Kid       string     `json:"kid"`
	Algorithm string     `json:"algorithm" example:"RS256"`
	Active    bool       `json:"active"`
	Signing   bool       `json:"signing"`
	CreatedAt time.Time  `json:"createdAt"`
	RetiredAt *time.Time `json:"retiredAt,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// RotateKeyResponse is the result of a rotation.
type RotateKeyResponse struct {
	NewKey      SigningKeyInfo   `json:"newKey"`
	RetiredKeys []SigningKeyInfo `json:"retiredKeys"`
	ActiveKeys  int              `json:"activeKeys"`
}

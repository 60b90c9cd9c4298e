package domain

import "time"

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"` // seconds
	UserID       string   `json:"userId"`
	Roles        []string `json:"roles"`
	Scopes       []string `json:"scopes"`
}

// RefreshToken is the stored refresh token record. The raw token is never
// persisted, only its fingerprint.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 fingerprint
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// Usable reports whether the record may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Introspection describes a token to a resource server. Pointer fields are
// null when the token is inactive.
type Introspection struct {
	Active     bool       `json:"active"`
	Subject    *string    `json:"subject"`
	Issuer     *string    `json:"issuer"`
	Expiration *time.Time `json:"expiration"`
	Roles      []string   `json:"roles"`
	Scopes     []string   `json:"scopes"`
}

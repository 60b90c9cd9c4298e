package domain

import "time"

// SigningKey is a stored JWT signing key. The private key is sealed with the
// master key; retired keys keep verifying until ExpiresAt.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

func (k *SigningKey) IsActive(now time.Time) bool {
	return k.RetiredAt == nil && now.Before(k.ExpiresAt)
}

func (k *SigningKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// KeyInfo is the admin view of a signing key.
type KeyInfo struct {
	Kid       string     `json:"kid"`
	Algorithm string     `json:"algorithm"`
	Active    bool       `json:"active"`
	Signing   bool       `json:"signing"`
	CreatedAt time.Time  `json:"createdAt"`
	RetiredAt *time.Time `json:"retiredAt,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

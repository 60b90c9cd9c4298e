package store

import (
	"context"
	"errors"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories are reached through accessors so a
// transaction can hand out the same repositories bound to itself.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Transactions do not nest.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Users() Users
	RefreshTokens() RefreshTokens
	SigningKeys() SigningKeys
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	DeleteUser(ctx context.Context, userID string) error
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash looks up through the unique token_hash index.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked only if it is still false and
	// reports whether this call did the flip. Exactly one of any number of
	// concurrent callers sees true.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) (bool, error)

	RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListActiveSigningKeys returns unretired, unexpired keys, newest first.
	ListActiveSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	// ListVerificationSigningKeys returns every unexpired key, retired or
	// not, newest first.
	ListVerificationSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)
	RetireSigningKey(ctx context.Context, kid string, at time.Time) error
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}

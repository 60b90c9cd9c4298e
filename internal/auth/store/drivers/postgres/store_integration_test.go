//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/internal/auth/store/drivers/postgres"
	"github.com/merigaumata/authplatform/pkg/idx"
)

// startPostgres runs postgres:16-alpine and returns a migrated store.
func startPostgres(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "docker.io/postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "auth",
			"POSTGRES_PASSWORD": "auth",
			"POSTGRES_DB":       "auth",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://auth:auth@%s:%s/auth?sslmode=disable", host, port.Port())
	s, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations(), "migrations must be idempotent")
	return s
}

func TestPostgresStore(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$fake",
		Roles:        []string{"ROLE_USER"},
		Scopes:       []string{"read"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("users", func(t *testing.T) {
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, []string{"read"}, got.Scopes)
		assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

		dup := u
		dup.ID = idx.New().String()
		dup.Username = "alice"
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

		_, err = s.Users().GetUserByUsername(ctx, "bob")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("refresh tokens", func(t *testing.T) {
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: "hash-1",
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

		ok, err := s.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transactions roll back", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				TokenHash: "tx",
				ExpiresAt: now.Add(time.Hour),
				CreatedAt: now,
			}))
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "tx")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("signing keys", func(t *testing.T) {
		key := domain.SigningKey{
			ID:                  idx.New().String(),
			Kid:                 "pg-key",
			Algorithm:           "ES256",
			PrivateKeyEncrypted: []byte{9, 8, 7},
			CreatedAt:           now,
			ExpiresAt:           now.Add(time.Hour),
		}
		require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, key))

		active, err := s.SigningKeys().ListActiveSigningKeys(ctx, now)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, []byte{9, 8, 7}, active[0].PrivateKeyEncrypted)

		require.NoError(t, s.SigningKeys().RetireSigningKey(ctx, "pg-key", now))
		active, err = s.SigningKeys().ListActiveSigningKeys(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	require.NoError(t, s.Ping(ctx))
}

//go:build integration

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authsdk"
)

// TestLoginRefreshLogout walks a session through its whole life:
// login, refresh with rotation, reuse of the spent refresh token, logout.
func TestLoginRefreshLogout(t *testing.T) {
	p := setupPlatform(t, relaxedLimits)
	ctx := t.Context()

	tokens, err := p.Client.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
	assertTokenResponse(t, tokens)
	require.Contains(t, tokens.Roles, "ROLE_ADMIN")

	refreshed, err := p.Client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, refreshed)
	require.NotEqual(t, tokens.AccessToken, refreshed.AccessToken, "Access token should be rotated")
	require.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken, "Refresh token should be rotated")

	_, err = p.Client.Refresh(ctx, tokens.RefreshToken)
	assertCode(t, err, apperr.CodeInvalidRefreshToken)

	require.NoError(t, p.Client.Logout(ctx, refreshed.AccessToken, refreshed.RefreshToken))

	info, err := p.Client.Introspect(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	require.False(t, info.Active, "Logged out token should be inactive")

	_, err = p.Client.Refresh(ctx, refreshed.RefreshToken)
	assertCode(t, err, apperr.CodeInvalidRefreshToken)
}

func TestInvalidCredentials(t *testing.T) {
	p := setupPlatform(t, relaxedLimits)

	_, err := p.Client.Login(t.Context(), adminUsername, "wrong-password")
	assertCode(t, err, apperr.CodeInvalidCredentials)

	_, err = p.Client.Login(t.Context(), "nobody", "wrong-password")
	assertCode(t, err, apperr.CodeInvalidCredentials)
}

// TestAccountLockout checks that failed attempts are counted in redis and
// that a correct password is refused while the account is locked.
func TestAccountLockout(t *testing.T) {
	p := setupPlatform(t, relaxedLimits)
	ctx := t.Context()

	password := registerUser(t, p.Client, "carol")

	for range 4 {
		_, err := p.Client.Login(ctx, "carol", "wrong-password")
		assertCode(t, err, apperr.CodeInvalidCredentials)
	}

	_, err := p.Client.Login(ctx, "carol", "wrong-password")
	assertCode(t, err, apperr.CodeAccountLocked)

	_, err = p.Client.Login(ctx, "carol", password)
	assertCode(t, err, apperr.CodeAccountLocked)
	require.ErrorIs(t, err, apperr.ErrAccountLocked)
}

func TestRegister(t *testing.T) {
	p := setupPlatform(t, relaxedLimits)
	ctx := t.Context()

	password := registerUser(t, p.Client, "dave")

	session, err := p.Client.AuthenticateWithPassword(ctx, "dave", password)
	require.NoError(t, err)
	require.Equal(t, []string{"ROLE_USER"}, session.Roles())
	require.False(t, session.HasRole("ROLE_ADMIN"))

	t.Run("duplicate", func(t *testing.T) {
		_, err := p.Client.Register(ctx, authsdk.RegisterRequest{
			Username: "DAVE",
			Email:    "other@example.com",
			Password: password,
		})
		assertCode(t, err, apperr.CodeDuplicateResource)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := p.Client.Register(ctx, authsdk.RegisterRequest{
			Username: "erin",
			Email:    "erin@example.com",
			Password: "short",
		})
		assertCode(t, err, apperr.CodeValidation)

		var api *authsdk.APIError
		require.ErrorAs(t, err, &api)
		require.Contains(t, api.FieldErrors(), "password")
	})

	t.Run("user lookup by service", func(t *testing.T) {
		user, err := p.Client.GetUser(ctx, "dave")
		require.NoError(t, err)
		require.Equal(t, session.UserID(), user.ID)
		require.Equal(t, "dave@example.com", user.Email)
	})
}

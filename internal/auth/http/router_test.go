package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhttp "github.com/merigaumata/authplatform/internal/auth/http"
	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/internal/auth/store/drivers/sqlite"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/blacklist"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"
	"github.com/merigaumata/authplatform/pkg/validator"
)

const (
	testIssuer        = "auth-service"
	testAudience      = "api-gateway"
	testPassword      = "Correct-Horse-9-Battery"
	testServiceSecret = "test-service-secret"
	adminUsername     = "admin"
)

var cryptoOnce sync.Once

var generousLimits = authhttp.RateLimits{
	Strict:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Moderate: httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Lenient:  httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Public:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
}

type testServer struct {
	*httptest.Server
	client *authsdk.SDKClient
	keys   *jwtx.KeyManager
}

// newTestServer runs the full router over sqlite and the in-memory kvstore.
func newTestServer(t *testing.T, limits authhttp.RateLimits) *testServer {
	t.Helper()
	cryptoOnce.Do(func() {
		cryptox.SetPepper("test-pepper")
		cryptox.SetMasterKey([]byte("test-master-key"))
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	kv := kvstore.NewMemory()
	bl := blacklist.New(kv)
	v := validator.New(km.Verifier, bl, validator.Config{
		Issuer:         testIssuer,
		Audience:       testAudience,
		StrictAudience: true,
	}, slogx.Discard())

	users, err := service.NewUserService(st)
	require.NoError(t, err)
	issuer := &service.TokenIssuer{KeyManager: km, Issuer: testIssuer, Audience: testAudience}
	authSvc := &service.AuthService{
		Users:     users,
		Issuer:    issuer,
		Tokens:    &service.RefreshTokenService{Store: st},
		Attempts:  &service.LoginAttemptGuard{Store: kv},
		Blacklist: bl,
		Validator: v,
	}

	created, err := users.EnsureAdmin(context.Background(), adminUsername, testPassword)
	require.NoError(t, err)
	require.True(t, created)

	gate := authgate.New(v, authgate.Config{
		PublicPaths:   authhttp.PublicPaths,
		ServicePaths:  authhttp.ServicePaths,
		ServiceSecret: testServiceSecret,
	})

	router := authhttp.NewRouter(km, gate, "test", st, kv, slogx.Discard())
	router.Limits = limits
	router.AuthService = authSvc
	router.UserService = users
	router.TokenIssuer = issuer
	router.KeyRotationService = &service.KeyRotationService{KeyManager: km}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, client: authsdk.NewSDKClient(srv.URL), keys: km}
}

func (s *testServer) register(t *testing.T, username string) *authsdk.UserResponse {
	t.Helper()
	u, err := s.client.Register(t.Context(), authsdk.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (s *testServer) post(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, s.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) httpx.ErrorEnvelope {
	t.Helper()
	var env httpx.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestLoginRefreshLogout(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	ctx := t.Context()
	alice := srv.register(t, "alice")

	tokens, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(900), tokens.ExpiresIn)
	assert.Equal(t, alice.ID, tokens.UserID)
	assert.Equal(t, []string{"ROLE_USER"}, tokens.Roles)
	assert.Equal(t, []string{"read", "write"}, tokens.Scopes)

	info, err := srv.client.Introspect(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.True(t, info.Active)
	assert.Equal(t, alice.ID, *info.Subject)
	assert.Equal(t, testIssuer, *info.Issuer)

	rotated, err := srv.client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = srv.client.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)

	require.NoError(t, srv.client.Logout(ctx, rotated.AccessToken, rotated.RefreshToken))

	info, err = srv.client.Introspect(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Nil(t, info.Subject)
	assert.Empty(t, info.Roles)

	_, err = srv.client.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)

	// Repeating the logout succeeds.
	require.NoError(t, srv.client.Logout(ctx, rotated.AccessToken, rotated.RefreshToken))
}

func TestLogout_RequiresBearer(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	resp := srv.post(t, "/auth/logout", authsdk.LogoutRequest{}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	assert.Equal(t, string(apperr.CodeMissingToken), decodeEnvelope(t, resp).ErrorCode)

	resp = srv.post(t, "/auth/logout", authsdk.LogoutRequest{}, map[string]string{"Authorization": "Bearer not-a-jwt"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(apperr.CodeInvalidToken), decodeEnvelope(t, resp).ErrorCode)
}

func TestIntrospect_InactiveBodyIsNull(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	resp := srv.post(t, "/auth/introspect", authsdk.IntrospectRequest{Token: "not.a.jwt"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["active"])
	for _, field := range []string{"subject", "issuer", "expiration", "roles", "scopes"} {
		v, present := body[field]
		assert.True(t, present, field)
		assert.Nil(t, v, field)
	}
}

func TestLogin_LocksAccountAfterFailures(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	srv.register(t, "bob")

	bad := authsdk.LoginRequest{Username: "bob", Password: "wrong-password"}
	for range 4 {
		resp := srv.post(t, "/auth/login", bad, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(apperr.CodeInvalidCredentials), decodeEnvelope(t, resp).ErrorCode)
	}

	resp := srv.post(t, "/auth/login", bad, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The right password is refused while locked.
	resp = srv.post(t, "/auth/login", authsdk.LoginRequest{Username: "bob", Password: testPassword}, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "900", resp.Header.Get("Retry-After"))
	env := decodeEnvelope(t, resp)
	assert.Equal(t, string(apperr.CodeAccountLocked), env.ErrorCode)
	assert.EqualValues(t, 900, env.Metadata["retryAfter"])

	_, err := srv.client.Login(t.Context(), "bob", testPassword)
	require.ErrorIs(t, err, apperr.ErrAccountLocked)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 15*time.Minute, apiErr.RetryAfter())
	assert.True(t, apiErr.Retryable())
}

func TestLogin_StrictRateLimit(t *testing.T) {
	t.Parallel()
	limits := generousLimits
	limits.Strict = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	srv := newTestServer(t, limits)

	req := authsdk.LoginRequest{Username: "nobody", Password: "whatever"}
	for range 2 {
		resp := srv.post(t, "/auth/login", req, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := srv.post(t, "/auth/login", req, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, string(apperr.CodeRateLimited), decodeEnvelope(t, resp).ErrorCode)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	ctx := t.Context()

	u := srv.register(t, "carol")
	assert.Equal(t, "carol", u.Username)
	assert.Equal(t, []string{"ROLE_USER"}, u.Roles)

	_, err := srv.client.Register(ctx, authsdk.RegisterRequest{
		Username: "CAROL", Email: "other@example.com", Password: testPassword,
	})
	require.ErrorIs(t, err, apperr.ErrDuplicateResource)

	_, err = srv.client.Register(ctx, authsdk.RegisterRequest{
		Username: "x", Email: "not-an-email", Password: "short",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	fields := apiErr.FieldErrors()
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestRegister_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	resp := srv.post(t, "/auth/register", map[string]string{
		"username": "dave", "email": "dave@example.com", "password": testPassword, "roles": "ROLE_ADMIN",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(apperr.CodeValidation), decodeEnvelope(t, resp).ErrorCode)
}

func TestJWKS(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	set, err := srv.client.FetchJWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, srv.keys.GetSigner().KID(), set.Keys[0].Kid)
	assert.Equal(t, "EC", set.Keys[0].Kty)
}

func TestInternalUsers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	ctx := t.Context()
	srv.register(t, "erin")

	_, err := srv.client.GetUser(ctx, "erin")
	require.ErrorIs(t, err, apperr.ErrMissingToken, "no secret configured on the client")

	svc := authsdk.NewSDKClient(srv.URL)
	svc.ServiceSecret = "wrong"
	_, err = svc.GetUser(ctx, "erin")
	require.ErrorIs(t, err, apperr.ErrInvalidServiceCredentials)

	svc.ServiceSecret = testServiceSecret
	svc.ServiceName = "user-service"
	u, err := svc.GetUser(ctx, "ERIN")
	require.NoError(t, err)
	assert.Equal(t, "erin", u.Username)

	_, err = svc.GetUser(ctx, "nobody")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// A user token lacks ROLE_SERVICE.
	session, err := srv.client.AuthenticateWithPassword(ctx, "erin", testPassword)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/internal/users/erin", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServiceToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	ctx := t.Context()
	srv.register(t, "frank")

	svc := authsdk.NewSDKClient(srv.URL)
	svc.ServiceSecret = testServiceSecret

	_, err := svc.ServiceToken(ctx, "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	tok, err := svc.ServiceToken(ctx, testAudience)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(900), tok.ExpiresIn)

	claims, err := jwtx.ParseUnverified(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testIssuer, claims.Subject)
	assert.Equal(t, []string{"ROLE_SERVICE"}, claims.Roles)

	// The service JWT reads users but cannot mint further tokens.
	bearer := map[string]string{"Authorization": "Bearer " + tok.AccessToken}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/internal/users/frank", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer["Authorization"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mint := srv.post(t, "/internal/service-token", authsdk.ServiceTokenRequest{Audience: "x"}, bearer)
	assert.Equal(t, http.StatusForbidden, mint.StatusCode)
}

func TestAdminKeys(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	ctx := t.Context()

	admin, err := srv.client.AuthenticateWithPassword(ctx, adminUsername, testPassword)
	require.NoError(t, err)
	require.True(t, admin.HasRole("ROLE_ADMIN"))

	keys, err := admin.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	original := keys[0].Kid

	rotated, err := admin.RotateKey(ctx, authsdk.RotateKeyRequest{RetireExisting: true})
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated.NewKey.Kid)
	assert.True(t, rotated.NewKey.Signing)
	require.Len(t, rotated.RetiredKeys, 1)
	assert.Equal(t, original, rotated.RetiredKeys[0].Kid)

	// Tokens signed before the rotation still verify.
	_, err = admin.ListKeys(ctx)
	require.NoError(t, err)

	err = admin.RetireKey(ctx, rotated.NewKey.Kid)
	require.ErrorIs(t, err, apperr.ErrValidation, "last signer cannot be retired")

	err = admin.RetireKey(ctx, "missing-kid")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminKeys_ForbiddenForUsers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)
	srv.register(t, "grace")

	client := authsdk.NewSDKClient(srv.URL)
	client.CheckRoles = false
	session, err := client.AuthenticateWithPassword(t.Context(), "grace", testPassword)
	require.NoError(t, err)

	_, err = session.ListKeys(t.Context())
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	live, err := srv.client.GetLiveness(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", live.Status)
	assert.Equal(t, "test", live.Version)

	ready, err := srv.client.GetReadiness(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	assert.Equal(t, "ok", ready.Checks.Database)
	assert.Equal(t, "ok", ready.Checks.Signer)
	assert.Equal(t, "ok", ready.Checks.Cache)
}

func TestCorrelationIDEchoed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	resp := srv.post(t, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: "bogus"},
		map[string]string{slogx.HeaderCorrelationID: "corr-123"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "corr-123", resp.Header.Get(slogx.HeaderCorrelationID))

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "corr-123", env.CorrelationID)
	assert.Equal(t, "/auth/refresh", env.Path)
	assert.Equal(t, string(apperr.CodeInvalidRefreshToken), env.ErrorCode)
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, generousLimits)

	resp, err := http.Get(srv.URL + "/admin/keys")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(apperr.CodeMissingToken), decodeEnvelope(t, resp).ErrorCode)
}

package authgate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// stubValidator accepts "good-<subject>" and rejects everything else as
// expired.
type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, raw string) (*jwtx.Claims, error) {
	if len(raw) > 5 && raw[:5] == "good-" {
		c := jwtx.NewAccessClaims(raw[5:], "auth-service", "", []string{"ROLE_USER"}, []string{"read"}, time.Minute, time.Now())
		return &c, nil
	}
	return nil, apperr.ErrTokenExpired
}

const secret = "s3cret-shared"

func newGate(mutate func(*authgate.Config)) *authgate.Gate {
	cfg := authgate.Config{
		PublicPaths:   []string{"/auth/login", "/public/**"},
		ServicePaths:  []string{"/internal/**"},
		ServiceSecret: secret,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return authgate.New(stubValidator{}, cfg)
}

func request(path string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		headers map[string]string
		trust   bool
		mode    authgate.Mode
		subject string
		code    apperr.Code
	}{
		{
			name: "valid bearer", path: "/whoami",
			headers: map[string]string{"Authorization": "Bearer good-alice"},
			mode:    authgate.ModeJWT, subject: "alice",
		},
		{
			name: "expired bearer", path: "/whoami",
			headers: map[string]string{"Authorization": "Bearer stale"},
			mode:    authgate.ModeRejected, code: apperr.CodeTokenExpired,
		},
		{
			name: "invalid bearer on public path", path: "/public/docs",
			headers: map[string]string{"Authorization": "Bearer stale"},
			mode:    authgate.ModePublic,
		},
		{
			name: "public path", path: "/auth/login",
			mode: authgate.ModePublic,
		},
		{
			name: "missing token", path: "/whoami",
			mode: authgate.ModeRejected, code: apperr.CodeMissingToken,
		},
		{
			name: "service token", path: "/internal/users/alice",
			headers: map[string]string{authgate.HeaderServiceToken: secret, authgate.HeaderServiceClient: "billing"},
			mode:    authgate.ModeService, subject: "billing",
		},
		{
			name: "wrong service token", path: "/internal/users/alice",
			headers: map[string]string{authgate.HeaderServiceToken: "nope"},
			mode:    authgate.ModeRejected, code: apperr.CodeInvalidServiceCredentials,
		},
		{
			name: "service token off allowlist", path: "/whoami",
			headers: map[string]string{authgate.HeaderServiceToken: secret},
			mode:    authgate.ModeRejected, code: apperr.CodeMissingToken,
		},
		{
			name: "forwarded headers trusted", path: "/whoami", trust: true,
			headers: map[string]string{authgate.HeaderUserID: "bob", authgate.HeaderUserRoles: "ROLE_USER,ROLE_ADMIN"},
			mode:    authgate.ModeForwardedHeaders, subject: "bob",
		},
		{
			name: "forwarded headers untrusted", path: "/whoami",
			headers: map[string]string{authgate.HeaderUserID: "bob", authgate.HeaderUserRoles: "ROLE_ADMIN"},
			mode:    authgate.ModeRejected, code: apperr.CodeMissingToken,
		},
		{
			name: "forwarded id without roles", path: "/whoami", trust: true,
			headers: map[string]string{authgate.HeaderUserID: "bob"},
			mode:    authgate.ModeRejected, code: apperr.CodeMissingToken,
		},
		{
			name: "bearer wins over forwarded headers", path: "/whoami", trust: true,
			headers: map[string]string{"Authorization": "Bearer good-alice", authgate.HeaderUserID: "bob", authgate.HeaderUserRoles: "ROLE_ADMIN"},
			mode:    authgate.ModeJWT, subject: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGate(func(c *authgate.Config) { c.TrustForwardedHeaders = tt.trust })

			d := g.Decide(request(tt.path, tt.headers))
			assert.Equal(t, tt.mode, d.Mode)
			if tt.subject != "" {
				require.NotNil(t, d.Principal)
				assert.Equal(t, tt.subject, d.Principal.ID)
			}
			if tt.code != "" {
				assert.Equal(t, tt.code, apperr.CodeOf(d.Err))
			} else {
				assert.NoError(t, d.Err)
			}
		})
	}
}

func TestDecide_ServiceDisabledWithoutSecret(t *testing.T) {
	g := newGate(func(c *authgate.Config) { c.ServiceSecret = "" })

	d := g.Decide(request("/internal/ping", map[string]string{authgate.HeaderServiceToken: ""}))
	assert.Equal(t, authgate.ModeRejected, d.Mode)

	d = g.Decide(request("/internal/ping", map[string]string{authgate.HeaderServiceToken: "anything"}))
	assert.Equal(t, apperr.CodeInvalidServiceCredentials, apperr.CodeOf(d.Err))
}

func TestDecide_ServicePrincipalRoles(t *testing.T) {
	d := newGate(nil).Decide(request("/internal/ping", map[string]string{authgate.HeaderServiceToken: secret}))
	require.NotNil(t, d.Principal)
	assert.Equal(t, "service", d.Principal.ID)
	assert.True(t, d.Principal.HasRole(authgate.RoleService))
}

func TestMiddleware_RejectsWithEnvelope(t *testing.T) {
	h := newGate(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/whoami", map[string]string{"Authorization": "Bearer stale"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var env httpx.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "TOKEN_EXPIRED", env.ErrorCode)
	assert.Equal(t, "/whoami", env.Path)
}

func TestMiddleware_StoresPrincipalAndStripsHeaders(t *testing.T) {
	var got *authgate.Principal
	var subject, forwarded string
	h := newGate(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = authgate.PrincipalFromContext(r.Context())
		subject = httpx.SubjectFromContext(r.Context())
		forwarded = r.Header.Get(authgate.HeaderUserID)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/whoami", map[string]string{
		"Authorization":       "Bearer good-alice",
		authgate.HeaderUserID: "mallory",
	}))

	require.NotNil(t, got)
	assert.Equal(t, "alice", got.ID)
	assert.Equal(t, "alice", subject)
	assert.Empty(t, forwarded)
}

func TestMiddleware_PropagatesIdentity(t *testing.T) {
	var roles, id string
	h := newGate(func(c *authgate.Config) { c.PropagateIdentity = true }).
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id = r.Header.Get(authgate.HeaderUserID)
			roles = r.Header.Get(authgate.HeaderUserRoles)
		}))

	h.ServeHTTP(httptest.NewRecorder(), request("/whoami", map[string]string{"Authorization": "Bearer good-alice"}))
	assert.Equal(t, "alice", id)
	assert.Equal(t, "ROLE_USER", roles)
}

func TestRequireAnyRole(t *testing.T) {
	g := newGate(func(c *authgate.Config) { c.TrustForwardedHeaders = true })
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), g.Middleware, authgate.RequireAnyRole("ROLE_ADMIN"))

	tests := []struct {
		name  string
		roles string
		want  int
	}{
		{"admin", "ROLE_USER,ROLE_ADMIN", http.StatusNoContent},
		{"user", "ROLE_USER", http.StatusForbidden},
		{"no roles", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request("/admin/ping", map[string]string{
				authgate.HeaderUserID:    "bob",
				authgate.HeaderUserRoles: tt.roles,
			}))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireAnyScope_NoPrincipal(t *testing.T) {
	h := authgate.RequireAnyScope("read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("/anything", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPathSet(t *testing.T) {
	ps := authgate.NewPathSet("/auth/login", "/swagger/**")

	assert.True(t, ps.Match("/auth/login"))
	assert.False(t, ps.Match("/auth/login/extra"))
	assert.True(t, ps.Match("/swagger"))
	assert.True(t, ps.Match("/swagger/index.html"))
	assert.False(t, ps.Match("/swaggerx"))
}

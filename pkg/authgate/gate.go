// Package authgate authenticates inbound requests. One gate serves the edge
// and every downstream service, so identity is re-established at each hop.
//
// Decision order:
//
//  1. service routes carrying X-Service-Token are checked against the shared
//     secret
//  2. a bearer token is validated
//  3. trusted X-User-* headers are accepted when enabled
//  4. public routes pass without a principal
//  5. anything else is rejected with MISSING_TOKEN
package authgate

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

const (
	HeaderUserID        = "X-User-Id"
	HeaderUserRoles     = "X-User-Roles"
	HeaderUserScopes    = "X-User-Scopes"
	HeaderServiceToken  = "X-Service-Token"
	HeaderServiceClient = "X-Service-Client"
)

// TokenValidator is satisfied by *validator.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*jwtx.Claims, error)
}

// Config selects which paths are public or open to service callers.
type Config struct {
	PublicPaths  []string
	ServicePaths []string

	// ServiceSecret enables X-Service-Token authentication. Empty disables
	// it and every presented service token is rejected.
	ServiceSecret string

	// TrustForwardedHeaders accepts X-User-* headers set by an upstream
	// gateway. Only enable behind a proxy that strips client copies.
	TrustForwardedHeaders bool

	// PropagateIdentity rewrites X-User-* from the principal so proxied
	// requests carry the caller downstream.
	PropagateIdentity bool
}

// Decision is the outcome for one request. Err is set only for
// ModeRejected.
type Decision struct {
	Mode      Mode
	Principal *Principal
	Err       error
}

type Gate struct {
	validator    TokenValidator
	cfg          Config
	publicPaths  PathSet
	servicePaths PathSet
}

func New(v TokenValidator, cfg Config) *Gate {
	return &Gate{
		validator:    v,
		cfg:          cfg,
		publicPaths:  NewPathSet(cfg.PublicPaths...),
		servicePaths: NewPathSet(cfg.ServicePaths...),
	}
}

// Decide authenticates r without writing a response.
func (g *Gate) Decide(r *http.Request) Decision {
	ctx := r.Context()
	path := r.URL.Path
	public := g.publicPaths.Match(path)

	if presented := r.Header.Get(HeaderServiceToken); presented != "" && g.servicePaths.Match(path) {
		return g.decideService(r, presented)
	}

	if raw, ok := httpx.BearerToken(r); ok {
		claims, err := g.validator.Validate(ctx, raw)
		if err == nil {
			return Decision{Mode: ModeJWT, Principal: &Principal{
				ID:     claims.Subject,
				Roles:  claims.Roles,
				Scopes: claims.Scopes,
				Mode:   ModeJWT,
				Claims: claims,
			}}
		}
		if !public {
			return reject(err)
		}
		slogx.FromContext(ctx).Debug("ignoring invalid bearer on public route", "path", path, "code", apperr.CodeOf(err))
		return Decision{Mode: ModePublic}
	}

	if g.cfg.TrustForwardedHeaders {
		if p, ok := forwardedPrincipal(r.Header); ok {
			return Decision{Mode: ModeForwardedHeaders, Principal: p}
		}
	}

	if public {
		return Decision{Mode: ModePublic}
	}
	return reject(apperr.ErrMissingToken)
}

func (g *Gate) decideService(r *http.Request, presented string) Decision {
	secret := g.cfg.ServiceSecret
	if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
		slogx.FromContext(r.Context()).Warn("service token rejected", "path", r.URL.Path)
		return reject(apperr.ErrInvalidServiceCredentials)
	}

	id := r.Header.Get(HeaderServiceClient)
	if id == "" {
		id = "service"
	}
	return Decision{Mode: ModeService, Principal: &Principal{
		ID:     id,
		Roles:  []string{RoleService},
		Scopes: []string{},
		Mode:   ModeService,
	}}
}

func forwardedPrincipal(h http.Header) (*Principal, bool) {
	id := strings.TrimSpace(h.Get(HeaderUserID))
	if id == "" {
		return nil, false
	}
	if _, ok := h[HeaderUserRoles]; !ok {
		return nil, false
	}
	return &Principal{
		ID:     id,
		Roles:  nonNil(httpx.SplitList(h.Get(HeaderUserRoles))),
		Scopes: nonNil(httpx.SplitList(h.Get(HeaderUserScopes))),
		Mode:   ModeForwardedHeaders,
	}, true
}

func reject(err error) Decision {
	return Decision{Mode: ModeRejected, Err: err}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Middleware enforces Decide and stores the principal in the request
// context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.cfg.TrustForwardedHeaders {
			stripIdentity(r.Header)
		}

		d := g.Decide(r)
		if d.Mode == ModeRejected {
			httpx.WriteError(w, r, d.Err)
			return
		}

		ctx := r.Context()
		if p := d.Principal; p != nil {
			ctx = WithPrincipal(ctx, p)
			ctx = httpx.WithSubject(ctx, p.ID)
			ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("subject", p.ID, "auth_mode", p.Mode.String()))

			if g.cfg.PropagateIdentity {
				stripIdentity(r.Header)
				r.Header.Set(HeaderUserID, p.ID)
				r.Header.Set(HeaderUserRoles, strings.Join(p.Roles, ","))
				r.Header.Set(HeaderUserScopes, strings.Join(p.Scopes, ","))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stripIdentity(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderUserRoles)
	h.Del(HeaderUserScopes)
}

// RequireAnyRole allows principals holding at least one of roles.
func RequireAnyRole(roles ...string) httpx.Middleware {
	return guard(func(p *Principal) bool { return p.HasAnyRole(roles...) })
}

// RequireAnyScope allows principals holding at least one of scopes.
func RequireAnyScope(scopes ...string) httpx.Middleware {
	return guard(func(p *Principal) bool {
		for _, s := range scopes {
			if p.HasScope(s) {
				return true
			}
		}
		return false
	})
}

func guard(allowed func(*Principal) bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			switch {
			case p == nil:
				httpx.WriteError(w, r, apperr.ErrMissingToken)
			case !allowed(p):
				slogx.FromContext(r.Context()).Info("access denied", "path", r.URL.Path, "roles", p.Roles)
				httpx.WriteError(w, r, apperr.ErrForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

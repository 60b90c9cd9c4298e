package authgate

import (
	"context"
	"slices"

	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// RoleService is granted to callers holding the shared service secret.
const RoleService = "ROLE_SERVICE"

// Mode records how a request was authenticated.
type Mode int

const (
	ModeRejected Mode = iota
	ModePublic
	ModeJWT
	ModeForwardedHeaders
	ModeService
)

func (m Mode) String() string {
	switch m {
	case ModePublic:
		return "public"
	case ModeJWT:
		return "jwt"
	case ModeForwardedHeaders:
		return "forwarded_headers"
	case ModeService:
		return "service"
	default:
		return "rejected"
	}
}

// Principal is the authenticated caller.
type Principal struct {
	ID     string
	Roles  []string
	Scopes []string
	Mode   Mode

	// Claims is set for ModeJWT.
	Claims *jwtx.Claims
}

func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

func (p *Principal) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, p.HasRole)
}

func (p *Principal) HasScope(scope string) bool {
	return p != nil && slices.Contains(p.Scopes, scope)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller established by the gate, or nil
// on public requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

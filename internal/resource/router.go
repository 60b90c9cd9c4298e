package resource

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

const roleAdmin = "ROLE_ADMIN"

var PublicPaths = []string{"/livez"}

var ServicePaths = []string{"/internal/**"}

// WhoAmIResponse describes the caller as the gate authenticated it.
type WhoAmIResponse struct {
	ID       string   `json:"id"`
	Roles    []string `json:"roles"`
	Scopes   []string `json:"scopes"`
	AuthMode string   `json:"authMode"`
}

type PingResponse struct {
	Service string `json:"service"`
	Caller  string `json:"caller"`
	Message string `json:"message"`
}

type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	service      string
	buildVersion string
	startTime    time.Time
}

func NewRouter(gate *authgate.Gate, service, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		service:      service,
		buildVersion: buildVersion,
		startTime:    time.Now(),
	}
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(logger),
		gate.Middleware,
	}
	r.applyRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) applyRoutes() {
	r.Mux.Handle("GET /whoami",
		httpx.Chain(http.HandlerFunc(r.handleWhoAmI),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /admin/ping",
		httpx.Chain(r.ping("admin pong"),
			authgate.RequireAnyRole(roleAdmin),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /internal/ping",
		httpx.Chain(r.ping("internal pong"),
			authgate.RequireAnyRole(authgate.RoleService),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /livez", r.handleLivez())
}

func (r *Router) handleWhoAmI(w http.ResponseWriter, req *http.Request) {
	p := authgate.PrincipalFromContext(req.Context())
	if p == nil {
		httpx.WriteError(w, req, apperr.ErrMissingToken)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, WhoAmIResponse{
		ID:       p.ID,
		Roles:    nonNil(p.Roles),
		Scopes:   nonNil(p.Scopes),
		AuthMode: p.Mode.String(),
	})
}

func (r *Router) ping(msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p := authgate.PrincipalFromContext(req.Context())
		httpx.WriteJSON(w, http.StatusOK, PingResponse{
			Service: r.service,
			Caller:  p.ID,
			Message: msg,
		})
	})
}

func (r *Router) handleLivez() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(r.startTime).String(),
			Version: r.buildVersion,
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

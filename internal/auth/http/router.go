package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"

	_ "github.com/merigaumata/authplatform/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// PublicPaths are reachable without credentials. Logout is listed because
// its handler verifies the bearer itself and tolerates expired tokens.
var PublicPaths = []string{
	"/auth/login",
	"/auth/refresh",
	"/auth/logout",
	"/auth/introspect",
	"/auth/register",
	"/.well-known/jwks.json",
	"/livez",
	"/readyz",
	"/swagger/**",
}

// ServicePaths accept the shared service secret.
var ServicePaths = []string{"/internal/**"}

// RateLimits selects the bucket sizes applied per route class.
type RateLimits struct {
	Strict   httpx.RateLimitConfig `mapstructure:"strict"`
	Moderate httpx.RateLimitConfig `mapstructure:"moderate"`
	Lenient  httpx.RateLimitConfig `mapstructure:"lenient"`
	Public   httpx.RateLimitConfig `mapstructure:"public"`
}

// DefaultRateLimits are the production presets.
var DefaultRateLimits = RateLimits{
	Strict:   httpx.StrictLimit,
	Moderate: httpx.ModerateLimit,
	Lenient:  httpx.LenientLimit,
	Public:   httpx.PublicLimit,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	gate         *authgate.Gate
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache kvstore.Store

	Limits             RateLimits
	AuthService        *service.AuthService
	UserService        *service.UserService
	TokenIssuer        *service.TokenIssuer
	KeyRotationService *service.KeyRotationService
}

func NewRouter(
	keys *jwtx.KeyManager,
	gate *authgate.Gate,
	buildVersion string,
	st store.Store,
	cache kvstore.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		gate:         gate,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        cache,
		logger:       logger,
		Limits:       DefaultRateLimits,
	}

	// Correlation id and request logging wrap the gate so rejections are
	// logged too.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.gate.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInternal()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Authentication Service API
//	@version		0.1.0
//	@description	Issues and validates JWT access tokens and rotating refresh tokens.
//	@description
//	@description				Access tokens are verified with the keys published at /.well-known/jwks.json.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	ServiceToken
//	@in							header
//	@name						X-Service-Token
//	@description				Shared service secret for service-to-service calls.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService, Users: r.UserService}

	// Credential endpoints - strict rate limit by IP
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	// Resource servers introspect on every request they cannot verify
	// locally.
	r.Mux.Handle("POST /auth/introspect",
		httpx.Chain(http.HandlerFunc(h.HandleIntrospect),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerInternal() {
	h := &InternalHandler{Users: r.UserService, Issuer: r.TokenIssuer}

	// Service token or ROLE_SERVICE JWT
	r.Mux.Handle("GET /internal/users/{username}",
		httpx.Chain(http.HandlerFunc(h.HandleGetUser),
			authgate.RequireAnyRole(domain.RoleService),
			httpx.RateLimitBySubject(r.Limits.Lenient),
		),
	)

	// Shared secret only; a service JWT cannot mint another.
	r.Mux.Handle("POST /internal/service-token",
		httpx.Chain(http.HandlerFunc(h.HandleServiceToken),
			requireServiceCredentials,
			httpx.RateLimitBySubject(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			authgate.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitBySubject(r.Limits.Moderate),
		)
	}

	r.Mux.Handle("POST /admin/keys/rotate", admin(h.HandleRotate))
	r.Mux.Handle("GET /admin/keys", admin(h.HandleListKeys))
	r.Mux.Handle("POST /admin/keys/{kid}/retire", admin(h.HandleRetireKey))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.cache),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}

package http

import (
	"net/http"
	"strings"

	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authgate"
	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// InternalHandler serves the service-to-service endpoints under /internal.
type InternalHandler struct {
	Users  *service.UserService
	Issuer *service.TokenIssuer
}

// HandleGetUser godoc
//
//	@Summary		Look up a user
//	@Description	Returns a user profile by username. Callers need the service secret or a ROLE_SERVICE token.
//	@Tags			Internal
//	@Produce		json
//	@Param			username	path		string	true	"Username (case-insensitive)"
//	@Success		200			{object}	authsdk.UserResponse
//	@Failure		401			{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403			{object}	authsdk.ErrorResponse	"Forbidden - requires ROLE_SERVICE"
//	@Failure		404			{object}	authsdk.ErrorResponse	"RESOURCE_NOT_FOUND"
//	@Security		ServiceToken
//	@Security		BearerAuth
//	@Router			/internal/users/{username} [get]
func (h *InternalHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse(u.Profile()))
}

// HandleServiceToken godoc
//
//	@Summary		Issue a service token
//	@Description	Issues a ROLE_SERVICE access token addressed to the requested audience.
//	@Tags			Internal
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ServiceTokenRequest	true	"Target service"
//	@Success		200		{object}	authsdk.ServiceTokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_ERROR"
//	@Failure		401		{object}	authsdk.ErrorResponse	"INVALID_SERVICE_CREDENTIALS"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Forbidden - requires the service secret"
//	@Security		ServiceToken
//	@Router			/internal/service-token [post]
func (h *InternalHandler) HandleServiceToken(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ServiceTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	audience := strings.TrimSpace(req.Audience)
	if audience == "" {
		httpx.WriteError(w, r, apperr.ErrValidation.WithMetadata("fieldErrors", map[string][]string{
			"audience": {"audience is required"},
		}))
		return
	}

	token, err := h.Issuer.IssueServiceToken(r.Context(), audience)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("service token issued", "audience", audience)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ServiceTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.Issuer.AccessTTL().Seconds()),
	})
}

// requireServiceCredentials admits only callers authenticated by the shared
// service secret.
func requireServiceCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := authgate.PrincipalFromContext(r.Context())
		switch {
		case p == nil:
			httpx.WriteError(w, r, apperr.ErrInvalidServiceCredentials)
		case p.Mode != authgate.ModeService:
			httpx.WriteError(w, r, apperr.ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

package http

import (
	"net/http"

	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/httpx"
)

// AuthHandler serves the public token endpoints under /auth.
type AuthHandler struct {
	Auth  *service.AuthService
	Users *service.UserService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges username and password for an access and refresh token pair.
//	@Description	Five consecutive failures lock the account for the lockout window.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_ERROR"
//	@Failure		401		{object}	authsdk.ErrorResponse	"INVALID_CREDENTIALS"
//	@Failure		429		{object}	authsdk.ErrorResponse	"ACCOUNT_LOCKED or RATE_LIMIT_EXCEEDED"
//	@Header			429		{integer}	Retry-After				"seconds until the lock lifts"
//	@Router			/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates a refresh token. The presented token is spent whether or not the call succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_ERROR"
//	@Failure		401		{object}	authsdk.ErrorResponse	"INVALID_REFRESH_TOKEN or REFRESH_TOKEN_EXPIRED"
//	@Router			/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Blacklists the bearer access token and revokes the refresh token in the body, if any.
//	@Description	Repeating a logout succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LogoutRequest	false	"Refresh token to revoke"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"MISSING_TOKEN or INVALID_TOKEN"
//	@Security		BearerAuth
//	@Router			/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	access, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, r, apperr.ErrMissingToken)
		return
	}

	var req authsdk.LogoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}

	if err := h.Auth.Logout(r.Context(), access, req.RefreshToken); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleIntrospect godoc
//
//	@Summary		Introspect a token
//	@Description	Reports whether an access token is currently valid. Invalid, expired and revoked
//	@Description	tokens all yield active=false with null subject, issuer and expiration.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.IntrospectRequest	true	"Token to inspect"
//	@Success		200		{object}	authsdk.IntrospectionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_ERROR"
//	@Router			/auth/introspect [post]
func (h *AuthHandler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	var req authsdk.IntrospectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result := h.Auth.Introspect(r.Context(), req.Token)
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse(result))
}

// HandleRegister godoc
//
//	@Summary		Register a user
//	@Description	Creates an account with ROLE_USER and the read and write scopes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_ERROR with metadata.fieldErrors"
//	@Failure		409		{object}	authsdk.ErrorResponse	"DUPLICATE_RESOURCE"
//	@Router			/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	u, err := h.Users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.UserResponse(u.Profile()))
}

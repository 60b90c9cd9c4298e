package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Login exchanges credentials for a token pair. A locked account yields an
// *APIError with code ACCOUNT_LOCKED and RetryAfter set.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postJSON(ctx, "/auth/login", LoginRequest{Username: username, Password: password}, &out, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken. The old value is spent even when the call
// fails.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.postJSON(ctx, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &out, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes accessToken and refreshToken. refreshToken may be empty.
func (c *SDKClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	return c.postJSON(ctx, "/auth/logout", LogoutRequest{RefreshToken: refreshToken}, nil, headers, http.StatusOK)
}

// Introspect asks whether token is currently valid.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	var out IntrospectionResponse
	err := c.postJSON(ctx, "/auth/introspect", IntrospectRequest{Token: token}, &out, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a user account.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var out UserResponse
	if err := c.postJSON(ctx, "/auth/register", req, &out, nil, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceToken requests a service-to-service token for audience using the
// client's service credentials.
func (c *SDKClient) ServiceToken(ctx context.Context, audience string) (*ServiceTokenResponse, error) {
	var out ServiceTokenResponse
	err := c.postJSON(ctx, "/internal/service-token", ServiceTokenRequest{Audience: audience}, &out, c.serviceHeaders(), http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser looks a user up by username using the client's service
// credentials.
func (c *SDKClient) GetUser(ctx context.Context, username string) (*UserResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/internal/users/"+url.PathEscape(username), nil, c.serviceHeaders())
	if err != nil {
		return nil, err
	}
	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

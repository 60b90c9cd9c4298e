package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Service credential headers.
const (
	HeaderServiceToken  = "X-Service-Token"
	HeaderServiceClient = "X-Service-Client"
)

// SDKClient is a client for the authentication service. It covers the
// public endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// ServiceSecret and ServiceName authenticate calls to /internal
	// endpoints.
	ServiceSecret string
	ServiceName   string

	// CheckRoles makes a Session refuse admin calls locally when its token
	// lacks the role. Tests disable it to exercise the server side check.
	CheckRoles bool
}

// NewSDKClient creates a client with role checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckRoles: true,
	}
}

// AuthenticateWithPassword logs in and returns a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, username, password string) (*Session, error) {
	tokenResp, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// AuthenticateWithRefreshToken exchanges an existing refresh token for a
// Session. The refresh token is spent.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

func (c *SDKClient) serviceHeaders() map[string]string {
	h := map[string]string{HeaderServiceToken: c.ServiceSecret}
	if c.ServiceName != "" {
		h[HeaderServiceClient] = c.ServiceName
	}
	return h
}

package authsdk

import (
	"context"
	"net/http"

	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// GetJWKS retrieves the public signing keys.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// FetchJWKS lets the client back a jwks.RemoteKeySet.
func (c *SDKClient) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	set, err := c.GetJWKS(ctx)
	if err != nil {
		return jwtx.JWKS{}, err
	}
	return jwtx.JWKS(*set), nil
}

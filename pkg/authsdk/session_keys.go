package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

const roleAdmin = "ROLE_ADMIN"

// RotateKey generates a new signing key. Requires ROLE_ADMIN.
func (s *Session) RotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	body, headers, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/admin/keys/rotate", body, headers, roleAdmin)
	if err != nil {
		return nil, err
	}

	var rotateResp RotateKeyResponse
	if err := decodeJSON(resp, &rotateResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &rotateResp, nil
}

// ListKeys returns every signing key with its status. Requires ROLE_ADMIN.
func (s *Session) ListKeys(ctx context.Context) ([]SigningKeyInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/admin/keys", nil, nil, roleAdmin)
	if err != nil {
		return nil, err
	}

	var keys []SigningKeyInfo
	if err := decodeJSON(resp, &keys, http.StatusOK); err != nil {
		return nil, err
	}
	return keys, nil
}

// RetireKey stops kid from signing. Requires ROLE_ADMIN.
func (s *Session) RetireKey(ctx context.Context, kid string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/admin/keys/"+url.PathEscape(kid)+"/retire", nil, nil, roleAdmin)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

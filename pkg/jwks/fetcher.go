package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// maxJWKSBytes caps the response body read from the endpoint.
const maxJWKSBytes = 1 << 20

// HTTPFetcher GETs a JWKS document.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{Timeout: DefaultFetchTimeout}}
}

func (f *HTTPFetcher) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("jwks: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("jwks: fetch %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jwtx.JWKS{}, fmt.Errorf("jwks: fetch %s: unexpected status %d", f.URL, resp.StatusCode)
	}

	var set jwtx.JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return jwtx.JWKS{}, fmt.Errorf("jwks: decode: %w", err)
	}
	return set, nil
}

package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merigaumata/authplatform/pkg/apperr"
)

// recorded is what the stub saw of the last request.
type recorded struct {
	mu     sync.Mutex
	method string
	path   string
	header http.Header
}

func (r *recorded) get() (method, path string, header http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method, r.path, r.header
}

// stubServer answers every request with handler and records the last one.
func stubServer(t *testing.T, handler http.HandlerFunc) (*SDKClient, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.method, rec.path, rec.header = r.Method, r.URL.Path, r.Header.Clone()
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewSDKClient(srv.URL + "/"), rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestIntrospect(t *testing.T) {
	t.Parallel()

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		tokens := make(chan string, 1)
		client, last := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req IntrospectRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			tokens <- req.Token
			writeJSON(w, http.StatusOK, map[string]any{
				"active":     true,
				"subject":    "user-1",
				"issuer":     "auth-service",
				"expiration": exp,
				"roles":      []string{"ROLE_USER"},
				"scopes":     []string{"read"},
			})
		})

		info, err := client.Introspect(t.Context(), "tok")
		require.NoError(t, err)
		method, path, header := last.get()
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "/auth/introspect", path)
		assert.Equal(t, "application/json", header.Get("Content-Type"))
		assert.Equal(t, "tok", <-tokens)

		require.True(t, info.Active)
		assert.Equal(t, "user-1", *info.Subject)
		assert.Equal(t, "auth-service", *info.Issuer)
		assert.True(t, exp.Equal(*info.Expiration))
		assert.Equal(t, []string{"ROLE_USER"}, info.Roles)
	})

	t.Run("inactive", func(t *testing.T) {
		t.Parallel()
		client, _ := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"active":false,"subject":null,"issuer":null,"expiration":null,"roles":null,"scopes":null}`))
		})

		info, err := client.Introspect(t.Context(), "revoked")
		require.NoError(t, err)
		assert.False(t, info.Active)
		assert.Nil(t, info.Subject)
		assert.Nil(t, info.Issuer)
		assert.Nil(t, info.Expiration)
		assert.Nil(t, info.Roles)
		assert.Nil(t, info.Scopes)
	})

	t.Run("rate limited", func(t *testing.T) {
		t.Parallel()
		client, _ := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				ErrorCode:     string(apperr.CodeRateLimited),
				Message:       "too many requests",
				CorrelationID: "corr-9",
				Metadata:      map[string]any{"retryAfter": 30},
			})
		})

		_, err := client.Introspect(t.Context(), "tok")
		require.ErrorIs(t, err, apperr.ErrRateLimited)

		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.Equal(t, http.StatusTooManyRequests, api.StatusCode)
		assert.Equal(t, "corr-9", api.CorrelationID)
		assert.True(t, api.Retryable())
		assert.Equal(t, 30*time.Second, api.RetryAfter())
	})
}

func TestServiceToken(t *testing.T) {
	t.Parallel()

	t.Run("sends service credentials", func(t *testing.T) {
		t.Parallel()
		audiences := make(chan string, 1)
		client, last := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req ServiceTokenRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			audiences <- req.Audience
			writeJSON(w, http.StatusOK, ServiceTokenResponse{AccessToken: "svc-token", TokenType: "Bearer", ExpiresIn: 900})
		})
		client.ServiceSecret = "shared-secret"
		client.ServiceName = "billing"

		tok, err := client.ServiceToken(t.Context(), "user-service")
		require.NoError(t, err)
		assert.Equal(t, "svc-token", tok.AccessToken)
		assert.Equal(t, int64(900), tok.ExpiresIn)

		_, path, header := last.get()
		assert.Equal(t, "/internal/service-token", path)
		assert.Equal(t, "shared-secret", header.Get(HeaderServiceToken))
		assert.Equal(t, "billing", header.Get(HeaderServiceClient))
		assert.Equal(t, "user-service", <-audiences)
	})

	t.Run("omits client header without a name", func(t *testing.T) {
		t.Parallel()
		client, last := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, ServiceTokenResponse{AccessToken: "svc-token"})
		})
		client.ServiceSecret = "shared-secret"

		_, err := client.ServiceToken(t.Context(), "user-service")
		require.NoError(t, err)
		_, _, header := last.get()
		assert.Empty(t, header.Values(HeaderServiceClient))
	})

	t.Run("bad secret", func(t *testing.T) {
		t.Parallel()
		client, _ := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				ErrorCode: string(apperr.CodeInvalidServiceCredentials),
				Message:   "invalid service credentials",
			})
		})
		client.ServiceSecret = "wrong"

		_, err := client.ServiceToken(t.Context(), "user-service")
		require.ErrorIs(t, err, apperr.ErrInvalidServiceCredentials)
		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.False(t, api.Retryable())
	})
}

func TestParseErrorResponse_NonEnvelopeBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   apperr.Code
	}{
		{http.StatusBadGateway, apperr.CodeUnavailable},
		{http.StatusServiceUnavailable, apperr.CodeUnavailable},
		{http.StatusTooManyRequests, apperr.CodeRateLimited},
		{http.StatusNotFound, apperr.CodeNotFound},
		{http.StatusTeapot, apperr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			client, _ := stubServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("<html>upstream error</html>"))
			})

			_, err := client.Introspect(t.Context(), "tok")
			var api *APIError
			require.ErrorAs(t, err, &api)
			assert.Equal(t, tt.status, api.StatusCode)
			assert.Equal(t, tt.want, api.Code)
		})
	}
}

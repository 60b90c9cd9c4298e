package slogx_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/merigaumata/authplatform/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware_CorrelationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "client supplied", headers: map[string]string{slogx.HeaderCorrelationID: "abc-123"}, want: "abc-123"},
		{name: "request id fallback", headers: map[string]string{slogx.HeaderRequestID: "req-9"}, want: "req-9"},
		{name: "generated", headers: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})

			var seen string
			h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = slogx.CorrelationID(r.Context())
				w.WriteHeader(http.StatusTeapot)
			}))

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			if tt.want != "" {
				require.Equal(t, tt.want, seen)
			}
			require.Equal(t, seen, rec.Header().Get(slogx.HeaderCorrelationID))

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, "http_request", line["msg"])
			require.Equal(t, seen, line["correlation_id"])
			require.EqualValues(t, http.StatusTeapot, line["status"])
		})
	}
}

package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	ErrorCode     string         `json:"errorCode"`
	Message       string         `json:"message"`
	Path          string         `json:"path"`
	CorrelationID string         `json:"correlationId"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// WriteError converts err into an ErrorEnvelope response. Uncoded errors and
// 5xx codes are logged with their cause and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	e, ok := apperr.As(err)
	if !ok {
		e = apperr.ErrInternal
	}
	status := e.HTTPStatus()

	msg := e.Message
	if !e.Code.Exposed() {
		log.Error("request failed", "code", e.Code, "err", err)
		msg = apperr.ErrInternal.Message
	} else {
		log.Debug("request rejected", "code", e.Code, "err", err)
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+string(e.Code)+`"`)
	}
	if status == http.StatusTooManyRequests {
		if secs, ok := e.Metadata["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	env := ErrorEnvelope{
		ErrorCode:     string(e.Code),
		Message:       msg,
		Path:          r.URL.Path,
		CorrelationID: slogx.CorrelationID(ctx),
		Timestamp:     time.Now().UTC(),
	}
	if e.Code.Exposed() && len(e.Metadata) > 0 {
		env.Metadata = e.Metadata
	}

	WriteJSON(w, status, env)
}

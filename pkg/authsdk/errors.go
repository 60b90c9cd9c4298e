package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/merigaumata/authplatform/pkg/apperr"
)

// APIError is a decoded error envelope. It matches the apperr sentinels by
// code, so errors.Is(err, apperr.ErrAccountLocked) works on SDK errors too.
type APIError struct {
	StatusCode    int
	Code          apperr.Code
	Message       string
	CorrelationID string
	Metadata      map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth service: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches another *APIError or an *apperr.Error with the same code.
func (e *APIError) Is(target error) bool {
	var api *APIError
	if errors.As(target, &api) {
		return api.Code == e.Code
	}
	if ae, ok := apperr.As(target); ok {
		return ae.Code == e.Code
	}
	return false
}

// Retryable reports whether the request may succeed later.
func (e *APIError) Retryable() bool {
	return e.Code.Retryable()
}

// RetryAfter returns metadata.retryAfter, or zero when absent.
func (e *APIError) RetryAfter() time.Duration {
	switch v := e.Metadata["retryAfter"].(type) {
	case float64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	}
	return 0
}

// FieldErrors returns metadata.fieldErrors of a VALIDATION_ERROR.
func (e *APIError) FieldErrors() map[string][]string {
	raw, ok := e.Metadata["fieldErrors"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for field, v := range raw {
		list, _ := v.([]any)
		for _, m := range list {
			if s, ok := m.(string); ok {
				out[field] = append(out[field], s)
			}
		}
	}
	return out
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not an envelope get a code derived from the status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.ErrorCode != "" {
		return &APIError{
			StatusCode:    resp.StatusCode,
			Code:          apperr.Code(env.ErrorCode),
			Message:       env.Message,
			CorrelationID: env.CorrelationID,
			Metadata:      env.Metadata,
		}
	}

	code := apperr.CodeInternal
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		code = apperr.CodeRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		code = apperr.CodeUnavailable
	case http.StatusNotFound:
		code = apperr.CodeNotFound
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

package apperr

import "net/http"

// Code is the machine readable error identifier sent to clients as
// errorCode.
type Code string

const (
	CodeInvalidCredentials        Code = "INVALID_CREDENTIALS"
	CodeAccountLocked             Code = "ACCOUNT_LOCKED"
	CodeMissingToken              Code = "MISSING_TOKEN"
	CodeInvalidToken              Code = "INVALID_TOKEN"
	CodeTokenExpired              Code = "TOKEN_EXPIRED"
	CodeTokenRevoked              Code = "TOKEN_REVOKED"
	CodeInvalidSignature          Code = "INVALID_SIGNATURE"
	CodeKeyNotFound               Code = "KEY_NOT_FOUND"
	CodeInvalidRefreshToken       Code = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired       Code = "REFRESH_TOKEN_EXPIRED"
	CodeInvalidServiceCredentials Code = "INVALID_SERVICE_CREDENTIALS"
	CodeForbidden                 Code = "FORBIDDEN"
	CodeNotFound                  Code = "RESOURCE_NOT_FOUND"
	CodeDuplicateResource         Code = "DUPLICATE_RESOURCE"
	CodeValidation                Code = "VALIDATION_ERROR"
	CodeRateLimited               Code = "RATE_LIMIT_EXCEEDED"
	CodeUnavailable               Code = "SERVICE_UNAVAILABLE"
	CodeSigning                   Code = "SIGNING_ERROR"
	CodeInternal                  Code = "INTERNAL_ERROR"
)

// HTTPStatus maps the code to its response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidCredentials, CodeMissingToken, CodeInvalidToken,
		CodeTokenExpired, CodeTokenRevoked, CodeInvalidSignature,
		CodeKeyNotFound, CodeInvalidRefreshToken, CodeRefreshTokenExpired,
		CodeInvalidServiceCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateResource:
		return http.StatusConflict
	case CodeAccountLocked, CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may retry the same request later.
func (c Code) Retryable() bool {
	switch c {
	case CodeAccountLocked, CodeRateLimited, CodeUnavailable:
		return true
	default:
		return false
	}
}

// Exposed reports whether the error message may be shown to clients.
// Server side failures are replaced by a generic message.
func (c Code) Exposed() bool {
	return c.HTTPStatus() < http.StatusInternalServerError
}

// Package apperr defines the error taxonomy shared by the auth service, the
// validator and every service that embeds the authentication gate.
//
// Each error carries a Code that decides the HTTP status and the errorCode
// field of the response envelope:
//
//	return apperr.New(apperr.CodeTokenExpired, "access token expired")
//
// Sentinel values compare by code, so errors.Is(err, apperr.ErrTokenExpired)
// matches any TOKEN_EXPIRED error regardless of message or metadata.
package apperr

import (
	"errors"
	"fmt"
	"maps"
)

// Error is a coded error with an optional cause and client visible metadata.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// Metadata is serialised into the envelope's metadata field.
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithMetadata returns a copy of e with key set in its metadata.
func (e *Error) WithMetadata(key string, value any) *Error {
	md := make(map[string]any, len(e.Metadata)+1)
	maps.Copy(md, e.Metadata)
	md[key] = value
	return &Error{Code: e.Code, Message: e.Message, Cause: e.Cause, Metadata: md}
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause, Metadata: e.Metadata}
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

var (
	ErrInvalidCredentials        = New(CodeInvalidCredentials, "invalid username or password")
	ErrAccountLocked             = New(CodeAccountLocked, "account temporarily locked due to too many failed login attempts")
	ErrMissingToken              = New(CodeMissingToken, "authentication required")
	ErrInvalidToken              = New(CodeInvalidToken, "invalid token")
	ErrTokenExpired              = New(CodeTokenExpired, "token has expired")
	ErrTokenRevoked              = New(CodeTokenRevoked, "token has been revoked")
	ErrInvalidSignature          = New(CodeInvalidSignature, "token signature is invalid")
	ErrKeyNotFound               = New(CodeKeyNotFound, "signing key not found")
	ErrInvalidRefreshToken       = New(CodeInvalidRefreshToken, "invalid refresh token")
	ErrRefreshTokenExpired       = New(CodeRefreshTokenExpired, "refresh token has expired")
	ErrInvalidServiceCredentials = New(CodeInvalidServiceCredentials, "invalid service credentials")
	ErrForbidden                 = New(CodeForbidden, "insufficient permissions")
	ErrNotFound                  = New(CodeNotFound, "resource not found")
	ErrDuplicateResource         = New(CodeDuplicateResource, "resource already exists")
	ErrValidation                = New(CodeValidation, "request validation failed")
	ErrRateLimited               = New(CodeRateLimited, "too many requests")
	ErrUnavailable               = New(CodeUnavailable, "dependency temporarily unavailable")
	ErrSigning                   = New(CodeSigning, "signing key unavailable")
	ErrInternal                  = New(CodeInternal, "an unexpected error occurred")
)

// Package service holds the auth service use cases: issuing and rotating
// tokens, login bookkeeping, user registration and signing key rotation.
//
// Errors returned to handlers are *apperr.Error values so the HTTP layer can
// render them without inspecting the cause.
package service

import "github.com/merigaumata/authplatform/pkg/apperr"

var (
	ErrSigningUnavailable  = apperr.New(apperr.CodeSigning, "no signing key available")
	ErrInvalidRefreshToken = apperr.ErrInvalidRefreshToken
	ErrRefreshTokenExpired = apperr.ErrRefreshTokenExpired
	ErrInvalidCredentials  = apperr.ErrInvalidCredentials
	ErrAccountLocked       = apperr.ErrAccountLocked
	ErrUserNotFound        = apperr.New(apperr.CodeNotFound, "user not found")
	ErrUsernameTaken       = apperr.New(apperr.CodeDuplicateResource, "username already exists")
	ErrKeyNotFound         = apperr.New(apperr.CodeNotFound, "signing key not found")
)

func internal(err error, msg string) error {
	return apperr.Wrap(err, apperr.CodeInternal, msg)
}

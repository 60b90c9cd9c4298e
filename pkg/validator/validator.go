// Package validator turns a raw bearer token into trusted claims. It is
// shared by the auth service and every resource service behind the gate.
package validator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// Revocations answers whether a token id was revoked.
type Revocations interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Config holds the issuer and audience policy.
type Config struct {
	Issuer   string
	Audience string

	// StrictAudience rejects tokens whose issuer or audience do not match.
	// When false a mismatch is logged and the token is accepted.
	StrictAudience bool
}

// Validator checks signature, time claims, token type, issuer, audience and
// revocation, in that order.
type Validator struct {
	verifier    *jwtx.Verifier
	revocations Revocations
	cfg         Config
	logger      *slog.Logger
}

// New builds a Validator. revocations may be nil when no blacklist is
// shared with the issuer.
func New(verifier *jwtx.Verifier, revocations Revocations, cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{verifier: verifier, revocations: revocations, cfg: cfg, logger: logger}
}

// Validate returns the claims of a valid access token. Every failure is an
// *apperr.Error with a distinct code.
func (v *Validator) Validate(ctx context.Context, raw string) (*jwtx.Claims, error) {
	if raw == "" {
		return nil, apperr.ErrMissingToken
	}

	claims, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, mapVerifyError(err)
	}

	if claims.TokenType != "" && claims.TokenType != jwtx.TokenTypeAccess {
		return nil, apperr.New(apperr.CodeInvalidToken, "token is not an access token")
	}

	if err := v.checkIssuerAudience(ctx, claims); err != nil {
		return nil, err
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnavailable, "revocation check unavailable")
		}
		if revoked {
			return nil, apperr.ErrTokenRevoked
		}
	}

	return claims, nil
}

func (v *Validator) checkIssuerAudience(ctx context.Context, claims *jwtx.Claims) error {
	if v.cfg.Issuer != "" && claims.Issuer != v.cfg.Issuer {
		if v.cfg.StrictAudience {
			return apperr.New(apperr.CodeInvalidToken, "token issuer is not trusted")
		}
		v.logger.WarnContext(ctx, "token issuer mismatch",
			"expected", v.cfg.Issuer, "actual", claims.Issuer, "jti", claims.ID)
	}

	if v.cfg.Audience != "" && !claims.HasAudience(v.cfg.Audience) {
		if v.cfg.StrictAudience {
			return apperr.New(apperr.CodeInvalidToken, "token audience is not accepted")
		}
		v.logger.WarnContext(ctx, "token audience mismatch",
			"expected", v.cfg.Audience, "actual", []string(claims.Audience), "jti", claims.ID)
	}
	return nil
}

func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return apperr.ErrTokenExpired.WithCause(err)
	case errors.Is(err, jwtx.ErrInvalidSig):
		return apperr.ErrInvalidSignature.WithCause(err)
	case errors.Is(err, jwtx.ErrUnknownKID):
		return apperr.ErrKeyNotFound.WithCause(err)
	case errors.Is(err, jwtx.ErrKeyResolution):
		if ae, ok := apperr.As(err); ok {
			return ae
		}
		return apperr.Wrap(err, apperr.CodeUnavailable, "verification keys unavailable")
	case errors.Is(err, jwtx.ErrNotYetValid):
		return apperr.New(apperr.CodeInvalidToken, "token is not valid yet").WithCause(err)
	default:
		return apperr.ErrInvalidToken.WithCause(err)
	}
}

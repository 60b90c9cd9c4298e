package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")

	// ErrKeyResolution wraps resolver failures other than an unknown kid,
	// such as a JWKS endpoint that could not be reached.
	ErrKeyResolution = errors.New("jwtx: key resolution failed")
)

// VerifyOptions tunes a Verifier.
type VerifyOptions struct {
	// Algorithms accepted in the token header. Defaults to
	// SupportedAlgorithms.
	Algorithms []string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
}

// Verifier checks signature and time claims of access tokens. Issuer,
// audience and revocation policy are left to the caller.
type Verifier struct {
	keys   KeyResolver
	parser *jwt.Parser
}

func NewVerifier(keys KeyResolver, opts VerifyOptions) *Verifier {
	algs := opts.Algorithms
	if len(algs) == 0 {
		algs = SupportedAlgorithms
	}

	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods(algs),
			jwt.WithLeeway(opts.Leeway),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// Verify parses raw, resolves its kid, checks the signature and time claims
// and returns the decoded claims. Errors wrap one of the package sentinels.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}

	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrMalformed)
		}

		key, err := v.keys.Key(ctx, kid)
		switch {
		case errors.Is(err, ErrNoKey), errors.Is(err, ErrUnknownKID):
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrKeyResolution, err)
		}
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// classify folds jwt library errors into the package sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID), errors.Is(err, ErrKeyResolution):
		return err
	case errors.Is(err, ErrMalformed), errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %w", ErrNotYetValid, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}

// ParseUnverified decodes claims without checking the signature. Only use it
// on tokens that were verified earlier in the same request.
func ParseUnverified(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}

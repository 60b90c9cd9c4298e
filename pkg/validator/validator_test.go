package validator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/blacklist"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/validator"
)

type fixture struct {
	km        *jwtx.KeyManager
	blacklist *blacklist.Blacklist
	store     *kvstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA})
	require.NoError(t, err)
	store := kvstore.NewMemory()
	return &fixture{km: km, blacklist: blacklist.New(store), store: store}
}

func (f *fixture) sign(t *testing.T, mutate func(*jwtx.Claims)) (string, jwtx.Claims) {
	t.Helper()
	c := jwtx.NewAccessClaims("alice", "auth-service", "api-gateway", []string{"ROLE_USER"}, []string{"read"}, time.Minute, time.Now())
	if mutate != nil {
		mutate(&c)
	}
	raw, err := f.km.GetSigner().Sign(c)
	require.NoError(t, err)
	return raw, c
}

func (f *fixture) validator(strict bool, logger *slog.Logger) *validator.Validator {
	return validator.New(f.km.Verifier, f.blacklist, validator.Config{
		Issuer:         "auth-service",
		Audience:       "api-gateway",
		StrictAudience: strict,
	}, logger)
}

func TestValidate_Success(t *testing.T) {
	f := newFixture(t)
	raw, want := f.sign(t, nil)

	got, err := f.validator(true, nil).Validate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, []string{"ROLE_USER"}, got.Roles)
}

func TestValidate_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired, _ := f.sign(t, func(c *jwtx.Claims) {
		past := time.Now().Add(-time.Hour)
		*c = jwtx.NewAccessClaims("alice", "auth-service", "api-gateway", nil, nil, time.Minute, past)
	})
	refreshType, _ := f.sign(t, func(c *jwtx.Claims) { c.TokenType = "refresh" })
	wrongIssuer, _ := f.sign(t, func(c *jwtx.Claims) { c.Issuer = "evil" })
	wrongAudience, _ := f.sign(t, func(c *jwtx.Claims) { c.Audience = nil })
	revoked, revokedClaims := f.sign(t, nil)
	require.NoError(t, f.blacklist.Revoke(ctx, revokedClaims.ID, revokedClaims.Expiry()))

	stranger, _, err := jwtx.GenerateSigner(jwtx.AlgorithmEdDSA, "other", 0)
	require.NoError(t, err)
	unknownKid, err := stranger.Sign(jwtx.NewAccessClaims("alice", "auth-service", "api-gateway", nil, nil, time.Minute, time.Now()))
	require.NoError(t, err)

	forged, _, err := jwtx.GenerateSigner(jwtx.AlgorithmEdDSA, jwtx.DefaultKeyID, 0)
	require.NoError(t, err)
	badSig, err := forged.Sign(jwtx.NewAccessClaims("alice", "auth-service", "api-gateway", nil, nil, time.Minute, time.Now()))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		code apperr.Code
	}{
		{"empty", "", apperr.CodeMissingToken},
		{"malformed", "abc.def", apperr.CodeInvalidToken},
		{"expired", expired, apperr.CodeTokenExpired},
		{"bad signature", badSig, apperr.CodeInvalidSignature},
		{"unknown kid", unknownKid, apperr.CodeKeyNotFound},
		{"refresh token type", refreshType, apperr.CodeInvalidToken},
		{"issuer mismatch", wrongIssuer, apperr.CodeInvalidToken},
		{"audience mismatch", wrongAudience, apperr.CodeInvalidToken},
		{"revoked", revoked, apperr.CodeTokenRevoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.validator(true, nil).Validate(ctx, tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestValidate_LenientAudienceWarns(t *testing.T) {
	f := newFixture(t)
	raw, _ := f.sign(t, func(c *jwtx.Claims) {
		c.Issuer = "legacy-issuer"
		c.Audience = nil
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := f.validator(false, logger).Validate(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "token issuer mismatch")
	assert.Contains(t, buf.String(), "token audience mismatch")
	assert.Contains(t, buf.String(), "legacy-issuer")
}

type brokenRevocations struct{}

func (brokenRevocations) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestValidate_RevocationOutageFailsClosed(t *testing.T) {
	f := newFixture(t)
	raw, _ := f.sign(t, nil)

	v := validator.New(f.km.Verifier, brokenRevocations{}, validator.Config{}, nil)
	_, err := v.Validate(context.Background(), raw)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

type failingResolver struct{}

func (failingResolver) Key(context.Context, string) (any, error) {
	return nil, apperr.Wrap(errors.New("timeout"), apperr.CodeUnavailable, "key set unavailable")
}

func TestValidate_ResolverOutage(t *testing.T) {
	f := newFixture(t)
	raw, _ := f.sign(t, nil)

	v := validator.New(jwtx.NewVerifier(failingResolver{}, jwtx.VerifyOptions{}), nil, validator.Config{}, nil)
	_, err := v.Validate(context.Background(), raw)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
	assert.True(t, apperr.IsRetryable(err))
}

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/service"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/internal/auth/store/drivers/sqlite"
	"github.com/merigaumata/authplatform/pkg/blacklist"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"
	"github.com/merigaumata/authplatform/pkg/validator"
)

const (
	testIssuer   = "auth-service"
	testAudience = "api-gateway"
	testPassword = "Correct-Horse-9-Battery"
)

var cryptoOnce sync.Once

func setupCrypto() {
	cryptoOnce.Do(func() {
		cryptox.SetPepper("test-pepper")
		cryptox.SetMasterKey([]byte("test-master-key"))
	})
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	setupCrypto()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newKeyManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)
	return km
}

// fixture wires the auth service over sqlite and the in-memory kvstore.
type fixture struct {
	store     store.Store
	kv        *kvstore.MemoryStore
	keys      *jwtx.KeyManager
	users     *service.UserService
	issuer    *service.TokenIssuer
	refresh   *service.RefreshTokenService
	attempts  *service.LoginAttemptGuard
	blacklist *blacklist.Blacklist
	validator *validator.Validator
	auth      *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newStore(t),
		kv:    kvstore.NewMemory(),
		keys:  newKeyManager(t),
	}
	users, err := service.NewUserService(f.store)
	require.NoError(t, err)
	f.users = users
	f.issuer = &service.TokenIssuer{KeyManager: f.keys, Issuer: testIssuer, Audience: testAudience}
	f.refresh = &service.RefreshTokenService{Store: f.store}
	f.attempts = &service.LoginAttemptGuard{Store: f.kv}
	f.blacklist = blacklist.New(f.kv)
	f.validator = validator.New(f.keys.Verifier, f.blacklist,
		validator.Config{Issuer: testIssuer, Audience: testAudience, StrictAudience: true}, slogx.Discard())
	f.auth = &service.AuthService{
		Users:     f.users,
		Issuer:    f.issuer,
		Tokens:    f.refresh,
		Attempts:  f.attempts,
		Blacklist: f.blacklist,
		Validator: f.validator,
	}
	return f
}

func (f *fixture) register(t *testing.T, username string) domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

// clock is a settable time source shared by services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Now()} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package jwtx_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeralKeyManager_Defaults(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA})
	require.NoError(t, err)

	assert.True(t, km.IsReady())
	assert.Equal(t, 1, km.NumSigners())
	assert.Equal(t, jwtx.DefaultKeyID, km.GetSigner().KID())
	assert.Equal(t, jwtx.AlgorithmEdDSA, km.Algorithm())

	jwks := km.PublicKeySet()
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, jwtx.DefaultKeyID, jwks.Keys[0].Kid)
}

func TestEphemeralKeyManager_MultipleKeys(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, NumKeys: 3})
	require.NoError(t, err)
	require.Equal(t, 3, km.NumSigners())

	seen := map[string]bool{}
	for _, s := range km.GetSigners() {
		assert.False(t, seen[s.KID()])
		seen[s.KID()] = true

		raw, err := s.Sign(jwtx.NewAccessClaims("alice", "iss", "", nil, nil, time.Minute, time.Now()))
		require.NoError(t, err)
		_, err = km.Verifier.Verify(context.Background(), raw)
		require.NoError(t, err)
	}
}

func TestKeyManager_RetireKeepsVerification(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA})
	require.NoError(t, err)

	old := km.GetSigner()
	raw, err := old.Sign(jwtx.NewAccessClaims("alice", "iss", "", nil, nil, time.Minute, time.Now()))
	require.NoError(t, err)

	require.ErrorIs(t, km.RetireSignerByKid(old.KID()), jwtx.ErrLastSigner)

	next, _, err := jwtx.GenerateSigner(jwtx.AlgorithmEdDSA, "next", 0)
	require.NoError(t, err)
	require.NoError(t, km.AddSigner(next))
	require.NoError(t, km.RetireSignerByKid(old.KID()))

	assert.Equal(t, "next", km.GetSigner().KID())
	assert.Len(t, km.PublicKeySet().Keys, 2)

	_, err = km.Verifier.Verify(context.Background(), raw)
	require.NoError(t, err)

	require.ErrorIs(t, km.RetireSignerByKid("missing"), jwtx.ErrNoKey)
}

func TestKeyManager_RejectsDuplicateKid(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA})
	require.NoError(t, err)

	dup, _, err := jwtx.GenerateSigner(jwtx.AlgorithmEdDSA, jwtx.DefaultKeyID, 0)
	require.NoError(t, err)
	require.Error(t, km.AddSigner(dup))
}

type memKeyStore struct {
	mu   sync.Mutex
	keys []jwtx.SigningKeyRecord
}

func (m *memKeyStore) ListVerificationKeys(context.Context) ([]jwtx.SigningKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []jwtx.SigningKeyRecord
	for _, k := range m.keys {
		if k.ExpiresAt.After(now) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memKeyStore) ListActiveSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	all, _ := m.ListVerificationKeys(ctx)
	var out []jwtx.SigningKeyRecord
	for _, k := range all {
		if k.RetiredAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memKeyStore) CreateSigningKey(_ context.Context, k jwtx.SigningKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, k)
	return nil
}

func TestPersistentKeyManager_SurvivesRestart(t *testing.T) {
	cryptox.SetMasterKey([]byte("test-master-key"))
	store := &memKeyStore{}
	ctx := context.Background()
	opts := jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256},
		Store:             store,
	}

	first, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.Equal(t, jwtx.DefaultKeyID, store.keys[0].Kid)

	raw, err := first.GetSigner().Sign(jwtx.NewAccessClaims("alice", "iss", "", nil, nil, time.Minute, time.Now()))
	require.NoError(t, err)

	second, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, store.keys, 1)
	assert.Equal(t, jwtx.DefaultKeyID, second.GetSigner().KID())

	_, err = second.Verifier.Verify(ctx, raw)
	require.NoError(t, err)
}

func TestPersistentKeyManager_RetiredKeysVerifyOnly(t *testing.T) {
	cryptox.SetMasterKey([]byte("test-master-key"))
	now := time.Now().UTC()
	retired := now.Add(-time.Hour)

	rec, s, err := jwtx.NewSigningKeyRecord(jwtx.AlgorithmEdDSA, "old", 0, time.Hour*24, now.Add(-2*time.Hour))
	require.NoError(t, err)
	rec.RetiredAt = &retired
	store := &memKeyStore{keys: []jwtx.SigningKeyRecord{rec}}

	km, err := jwtx.NewPersistentKeyManager(context.Background(), jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA},
		Store:             store,
	})
	require.NoError(t, err)

	require.Equal(t, 1, km.NumSigners())
	assert.NotEqual(t, "old", km.GetSigner().KID())
	assert.Len(t, km.PublicKeySet().Keys, 2)
	assert.Len(t, store.keys, 2)

	raw, err := s.Sign(jwtx.NewAccessClaims("alice", "iss", "", nil, nil, time.Minute, time.Now()))
	require.NoError(t, err)
	_, err = km.Verifier.Verify(context.Background(), raw)
	require.NoError(t, err)
}

package jwtx

import (
	"context"
	"fmt"
	"time"

	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/idx"
)

// SigningKeyRecord is a stored signing key with its private key sealed by
// cryptox.EncryptPrivateKey.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

// KeyStore is the persistence the key manager needs.
type KeyStore interface {
	// ListVerificationKeys returns every unexpired key, retired or not.
	ListVerificationKeys(ctx context.Context) ([]SigningKeyRecord, error)
	// ListActiveSigningKeys returns unretired, unexpired keys.
	ListActiveSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions extends KeyManagerOptions with storage.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store KeyStore

	// GracePeriod is how long a stored key stays valid for verification.
	GracePeriod time.Duration
}

// DefaultGracePeriod applies when PersistentKeyManagerOptions.GracePeriod is
// unset.
const DefaultGracePeriod = 30 * 24 * time.Hour

// NewPersistentKeyManager loads stored keys, publishes every unexpired one
// and signs with the active ones. Missing active keys are generated and
// stored so the manager always starts with NumKeys signers.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("jwtx: persistent key manager requires a store")
	}
	opts.setDefaults()
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	all, err := opts.Store.ListVerificationKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load keys: %w", err)
	}
	active, err := opts.Store.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load active keys: %w", err)
	}

	activeKids := make(map[string]struct{}, len(active))
	for _, r := range active {
		activeKids[r.Kid] = struct{}{}
	}

	km := newKeyManager(opts.KeyManagerOptions)
	for _, r := range all {
		s, err := openRecord(r)
		if err != nil {
			return nil, err
		}
		if _, ok := activeKids[r.Kid]; ok {
			err = km.AddSigner(s)
		} else {
			err = km.AddVerificationKey(s)
		}
		if err != nil {
			return nil, err
		}
	}

	for km.NumSigners() < opts.NumKeys {
		kid := opts.KeyID
		if len(all) > 0 || km.NumSigners() > 0 {
			if kid, err = NewKeyID(); err != nil {
				return nil, err
			}
		}

		rec, s, err := NewSigningKeyRecord(opts.Algorithm, kid, opts.RSABits, opts.GracePeriod, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store key %q: %w", kid, err)
		}
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// NewSigningKeyRecord generates a key pair and returns its sealed record and
// signer.
func NewSigningKeyRecord(alg, kid string, rsaBits int, ttl time.Duration, now time.Time) (SigningKeyRecord, Signer, error) {
	s, pemKey, err := GenerateSigner(alg, kid, rsaBits)
	if err != nil {
		return SigningKeyRecord{}, nil, err
	}
	sealed, err := cryptox.EncryptPrivateKey(pemKey)
	if err != nil {
		return SigningKeyRecord{}, nil, fmt.Errorf("jwtx: seal key %q: %w", kid, err)
	}

	return SigningKeyRecord{
		ID:                  idx.NewAt(now).String(),
		Kid:                 kid,
		Algorithm:           alg,
		PrivateKeyEncrypted: sealed,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}, s, nil
}

func openRecord(r SigningKeyRecord) (Signer, error) {
	pemKey, err := cryptox.DecryptPrivateKey(r.PrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("jwtx: open key %q: %w", r.Kid, err)
	}
	s, err := NewSigner(r.Algorithm, r.Kid, pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load key %q: %w", r.Kid, err)
	}
	return s, nil
}

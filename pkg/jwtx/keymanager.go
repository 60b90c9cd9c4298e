package jwtx

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"sync"
)

// DefaultKeyID names the first key when no kid is configured.
const DefaultKeyID = "main-key"

// ErrLastSigner is returned when retiring would leave nothing to sign with.
var ErrLastSigner = errors.New("jwtx: cannot retire the last signing key")

// KeyManager owns the process signing keys. It is built once at startup and
// handed to the issuer and the local verifier; nothing else holds private
// keys.
//
// Signers are the keys used for new tokens. The KeySet holds every key that
// may still verify, including retired signers in their grace period.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	algorithm string
	mu        sync.RWMutex
	signers   []Signer
}

// KeyManagerOptions configures key generation.
type KeyManagerOptions struct {
	// Algorithm for generated keys: RS256 (default), ES256 or EdDSA.
	Algorithm string

	// KeyID names the first generated key. Defaults to DefaultKeyID.
	// Additional keys get random ids.
	KeyID string

	// RSABits for RS256 keys, at least 2048.
	RSABits int

	// NumKeys to generate, between 1 (default) and 10.
	NumKeys int

	// Verify options for the local verifier.
	Verify VerifyOptions
}

func (o *KeyManagerOptions) setDefaults() {
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmRS256
	}
	if o.KeyID == "" {
		o.KeyID = DefaultKeyID
	}
	o.NumKeys = min(max(o.NumKeys, 1), 10)
}

// NewEphemeralKeyManager generates in-memory keys. Tokens stop verifying
// after a restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	opts.setDefaults()

	km := newKeyManager(opts)
	for i := range opts.NumKeys {
		kid := opts.KeyID
		if i > 0 {
			var err error
			if kid, err = NewKeyID(); err != nil {
				return nil, err
			}
		}

		s, _, err := GenerateSigner(opts.Algorithm, kid, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate key %d: %w", i+1, err)
		}
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func newKeyManager(opts KeyManagerOptions) *KeyManager {
	ks := NewKeySet()
	return &KeyManager{
		KeySet:    ks,
		Verifier:  NewVerifier(ks, opts.Verify),
		algorithm: opts.Algorithm,
	}
}

// Algorithm is the algorithm used for newly generated keys.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// IsReady reports whether a key is available for signing.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// PublicKeySet returns the JWKS to publish.
func (km *KeyManager) PublicKeySet() JWKS {
	return km.KeySet.PublicJWKS()
}

// GetSigner picks one of the active signers, or nil when none is loaded.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[mrand.IntN(len(km.signers))] // #nosec G404
	}
}

// GetSigners returns a copy of the active signers.
func (km *KeyManager) GetSigners() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]Signer, len(km.signers))
	copy(out, km.signers)
	return out
}

func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner activates s for signing and publishes its key.
func (km *KeyManager) AddSigner(s Signer) error {
	if s == nil {
		return errors.New("jwtx: nil signer")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	for _, existing := range km.signers {
		if existing.KID() == s.KID() {
			return fmt.Errorf("jwtx: duplicate kid %q", s.KID())
		}
	}
	if err := km.KeySet.AddSigner(s); err != nil {
		return err
	}
	km.signers = append(km.signers, s)
	return nil
}

// AddVerificationKey publishes a key that no longer signs, such as a retired
// key still inside its grace period.
func (km *KeyManager) AddVerificationKey(s Signer) error {
	return km.KeySet.AddSigner(s)
}

// RetireSignerByKid stops signing with kid. The public key stays published
// so tokens already issued keep verifying.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	idx := -1
	for i, s := range km.signers {
		if s.KID() == kid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("jwtx: signer %q: %w", kid, ErrNoKey)
	}
	if len(km.signers) == 1 {
		return ErrLastSigner
	}

	km.signers = append(km.signers[:idx:idx], km.signers[idx+1:]...)
	return nil
}

// NewKeyID returns a random key id.
func NewKeyID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("jwtx: generate key id: %w", err)
	}
	return "key-" + hex.EncodeToString(b[:]), nil
}

package jwtx

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoKey is returned when a kid is not in the set.
var ErrNoKey = errors.New("jwtx: key not found")

// KeyResolver maps a kid to a public verification key. KeySet resolves from
// memory; remote resolvers fetch and cache a JWKS.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (any, error)
}

// KeySet is a concurrency safe kid to public key map that also renders the
// published JWKS.
type KeySet struct {
	mu   sync.RWMutex
	jwks JWKS
	pub  map[string]any
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddSigner publishes the signer's public key.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK decodes and adds j. Adding an existing kid replaces it.
func (k *KeySet) AddJWK(j JWK) error {
	if j.Kid == "" {
		return errors.New("jwtx: JWK without kid")
	}
	key, err := j.PublicKey()
	if err != nil {
		return fmt.Errorf("jwtx: key %q: %w", j.Kid, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.pub[j.Kid]; exists {
		for i := range k.jwks.Keys {
			if k.jwks.Keys[i].Kid == j.Kid {
				k.jwks.Keys[i] = j
			}
		}
	} else {
		k.jwks.Keys = append(k.jwks.Keys, j)
	}
	k.pub[j.Kid] = key
	return nil
}

// Key implements KeyResolver.
func (k *KeySet) Key(_ context.Context, kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a copy of the published key set.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]JWK, len(k.jwks.Keys))
	copy(keys, k.jwks.Keys)
	return JWKS{Keys: keys}
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// Remove drops kid so tokens signed with it no longer verify.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.pub, kid)
	keys := k.jwks.Keys[:0]
	for _, j := range k.jwks.Keys {
		if j.Kid != kid {
			keys = append(keys, j)
		}
	}
	k.jwks.Keys = keys
}

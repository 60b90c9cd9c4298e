package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/domain"
	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// KeyRotationService rotates JWT signing keys at runtime.
//
// In ephemeral mode (Store == nil) keys live only in the KeyManager and a
// retired key keeps verifying until restart.
//
// In persistent mode keys are sealed and stored. A retired key keeps
// verifying until its grace period ends, across restarts.
type KeyRotationService struct {
	Store       store.Store // nil for ephemeral mode
	KeyManager  *jwtx.KeyManager
	RSABits     int
	GracePeriod time.Duration
	Now         func() time.Time
}

// RotateKeyRequest asks for a new signing key.
type RotateKeyRequest struct {
	// RetireExisting stops every current key from signing. Retired keys
	// still verify.
	RetireExisting bool `json:"retireExisting"`
}

// RotateKeyResponse reports the outcome of a rotation.
type RotateKeyResponse struct {
	NewKey      domain.KeyInfo   `json:"newKey"`
	RetiredKeys []domain.KeyInfo `json:"retiredKeys"`
	ActiveKeys  int              `json:"activeKeys"`
}

func (s *KeyRotationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *KeyRotationService) grace() time.Duration {
	if s.GracePeriod <= 0 {
		return jwtx.DefaultGracePeriod
	}
	return s.GracePeriod
}

// RotateKey generates a signing key and optionally retires the current ones.
// The new key signs before any old key stops signing.
func (s *KeyRotationService) RotateKey(ctx context.Context, req RotateKeyRequest) (RotateKeyResponse, error) {
	l := slogx.FromContext(ctx)
	now := s.now()
	alg := s.KeyManager.Algorithm()

	kid, err := jwtx.NewKeyID()
	if err != nil {
		return RotateKeyResponse{}, internal(err, "generate key id")
	}

	resp := RotateKeyResponse{RetiredKeys: []domain.KeyInfo{}}
	var signer jwtx.Signer
	var retire []string

	if s.Store != nil {
		rec, sg, err := jwtx.NewSigningKeyRecord(alg, kid, s.RSABits, s.grace(), now)
		if err != nil {
			return RotateKeyResponse{}, internal(err, "generate signing key")
		}
		signer = sg
		newKey := store.FromRecord(rec)

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SigningKeys().CreateSigningKey(ctx, newKey); err != nil {
				return fmt.Errorf("create signing key: %w", err)
			}
			if !req.RetireExisting {
				return nil
			}
			active, err := tx.SigningKeys().ListActiveSigningKeys(ctx, now)
			if err != nil {
				return fmt.Errorf("list active keys: %w", err)
			}
			for _, k := range active {
				if k.Kid == newKey.Kid {
					continue
				}
				if err := tx.SigningKeys().RetireSigningKey(ctx, k.Kid, now); err != nil {
					return fmt.Errorf("retire key %s: %w", k.Kid, err)
				}
				k.RetiredAt = &now
				retire = append(retire, k.Kid)
				resp.RetiredKeys = append(resp.RetiredKeys, keyInfo(k, false, now))
			}
			return nil
		})
		if err != nil {
			return RotateKeyResponse{}, internal(err, "rotate signing key")
		}
		resp.NewKey = keyInfo(newKey, true, now)
	} else {
		sg, _, err := jwtx.GenerateSigner(alg, kid, s.RSABits)
		if err != nil {
			return RotateKeyResponse{}, internal(err, "generate signing key")
		}
		signer = sg
		resp.NewKey = domain.KeyInfo{Kid: kid, Algorithm: alg, Active: true, Signing: true, CreatedAt: now}
		if req.RetireExisting {
			for _, cur := range s.KeyManager.GetSigners() {
				retire = append(retire, cur.KID())
				resp.RetiredKeys = append(resp.RetiredKeys, domain.KeyInfo{
					Kid: cur.KID(), Algorithm: cur.Alg(), Active: true, RetiredAt: &now,
				})
			}
		}
	}

	if err := s.KeyManager.AddSigner(signer); err != nil {
		return RotateKeyResponse{}, internal(err, "install signing key")
	}
	for _, k := range retire {
		if err := s.KeyManager.RetireSignerByKid(k); err != nil && !errors.Is(err, jwtx.ErrNoKey) {
			l.Warn("failed to retire signer", slog.String("kid", k), slog.Any("error", err))
		}
	}

	resp.ActiveKeys = s.KeyManager.NumSigners()
	l.Info("signing key rotated", slog.String("kid", kid), slog.Int("retired", len(retire)), slog.Int("active_keys", resp.ActiveKeys))
	return resp, nil
}

// ListKeys returns every known key. In ephemeral mode only the current
// signers are listed.
func (s *KeyRotationService) ListKeys(ctx context.Context) ([]domain.KeyInfo, error) {
	now := s.now()
	signing := map[string]bool{}
	for _, sg := range s.KeyManager.GetSigners() {
		signing[sg.KID()] = true
	}

	if s.Store == nil {
		out := make([]domain.KeyInfo, 0, len(signing))
		for _, sg := range s.KeyManager.GetSigners() {
			out = append(out, domain.KeyInfo{Kid: sg.KID(), Algorithm: sg.Alg(), Active: true, Signing: true})
		}
		return out, nil
	}

	keys, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
	if err != nil {
		return nil, internal(err, "list signing keys")
	}
	out := make([]domain.KeyInfo, len(keys))
	for i, k := range keys {
		out[i] = keyInfo(k, signing[k.Kid], now)
	}
	return out, nil
}

// RetireKey stops kid from signing. Retiring the last signer is refused so
// the issuer never runs without a key.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	if err := s.KeyManager.RetireSignerByKid(kid); err != nil {
		switch {
		case errors.Is(err, jwtx.ErrLastSigner):
			return apperr.Wrap(err, apperr.CodeValidation, "cannot retire the only signing key")
		case errors.Is(err, jwtx.ErrNoKey) && s.Store == nil:
			return ErrKeyNotFound
		case !errors.Is(err, jwtx.ErrNoKey):
			return internal(err, "retire signer")
		}
	}

	if s.Store != nil {
		if err := s.Store.SigningKeys().RetireSigningKey(ctx, kid, s.now()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrKeyNotFound
			}
			return internal(err, "retire signing key")
		}
	}

	slogx.FromContext(ctx).Info("signing key retired", slog.String("kid", kid))
	return nil
}

func keyInfo(k domain.SigningKey, signing bool, now time.Time) domain.KeyInfo {
	return domain.KeyInfo{
		Kid:       k.Kid,
		Algorithm: k.Algorithm,
		Active:    !k.IsExpired(now),
		Signing:   signing,
		CreatedAt: k.CreatedAt,
		RetiredAt: k.RetiredAt,
		ExpiresAt: k.ExpiresAt,
	}
}

// SweepExpired unpublishes and deletes stored keys past their grace period.
func (s *KeyRotationService) SweepExpired(ctx context.Context) (int64, error) {
	if s.Store == nil {
		return 0, nil
	}
	now := s.now()
	keys, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
	if err != nil {
		return 0, internal(err, "list signing keys")
	}
	for _, k := range keys {
		if !k.IsExpired(now) {
			continue
		}
		if err := s.KeyManager.RetireSignerByKid(k.Kid); errors.Is(err, jwtx.ErrLastSigner) {
			slogx.FromContext(ctx).Warn("expired key is the only signer, keeping it", slog.String("kid", k.Kid))
			continue
		}
		s.KeyManager.KeySet.Remove(k.Kid)
	}
	n, err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	if err != nil {
		return 0, internal(err, "delete expired signing keys")
	}
	return n, nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/cryptox"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": keys are generated on startup and kept in memory only.
//     Every token issued before a restart stops verifying.
//   - "persistent": keys are sealed with the master key and stored in the
//     database. Tokens survive restarts and retired keys keep verifying for
//     the grace period.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		KeyID:     cfg.KeyID,
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		if err := cryptox.LoadMasterKeyFile(cfg.MasterKeyFile); err != nil {
			return nil, fmt.Errorf("failed to load master key: %w", err)
		}
		logger.Info("master key loaded", "path", cfg.MasterKeyFile)

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			GracePeriod:       cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"grace_period", cfg.KeyGracePeriod,
		)
		return km, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
		)
		logger.Warn("ephemeral key mode: tokens issued before this start no longer verify")
		return km, nil
	}
}

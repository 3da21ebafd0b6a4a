// Package config defines the server configuration structure.
package config

import (
	"encoding/hex"
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySession(&cfg.Session); err != nil {
		return err
	}
	return verifySecurity(&cfg.Security)
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "memory":
		return nil
	case "badger":
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		return nil
	default:
		return errors.New("storage.backend must be memory or badger, got " + cfg.Backend)
	}
}

func verifySession(cfg *SessionSection) error {
	if cfg.DefaultTTL <= 0 {
		return errors.New("session.default_ttl must be positive")
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		return errors.New("session.max_ttl must not be below session.default_ttl")
	}
	if cfg.MaxHistoryDepth < 1 {
		return errors.New("session.max_history_depth must be at least 1")
	}
	if cfg.MaxPerOwner < 1 {
		return errors.New("session.max_per_owner must be at least 1")
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.EncryptionKey == "" {
		return nil
	}
	key, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return errors.New("security.encryption_key must be hex encoded")
	}
	if len(key) != 32 {
		return errors.New("security.encryption_key must decode to 32 bytes")
	}
	return nil
}

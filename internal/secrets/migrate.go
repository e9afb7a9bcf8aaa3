package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
)

// Migrator moves a file-held key into the native vault.
type Migrator struct {
	keys *KeyManager
}

func NewMigrator(keys *KeyManager) *Migrator {
	return &Migrator{keys: keys}
}

// MigrateKeyToVault copies the active key into the vault and removes the key
// file. It returns true once the vault holds the active key and no file copy
// remains. Running it again is harmless.
//
// If the vault already holds a different key nothing is changed and
// ErrMigrationConflict is returned.
func (m *Migrator) MigrateKeyToVault(ctx context.Context) (bool, error) {
	km := m.keys

	key, err := km.Key(ctx)
	if err != nil {
		return false, err
	}

	if !km.vault.Available() {
		return false, kerrors.ErrVaultUnavailable
	}

	unlock, err := km.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	existing, found, err := km.vault.Get(km.service, km.account)
	if err != nil {
		return false, fmt.Errorf("failed to check native vault: %w", err)
	}

	if found {
		if EncryptionKey(strings.TrimSpace(existing)) != key {
			return false, kerrors.ErrMigrationConflict
		}
		km.log.Infof("Key already exists in native vault")
	} else {
		if err := km.storeInVault(key); err != nil {
			return false, fmt.Errorf("failed to migrate key to vault: %w", err)
		}
		km.log.Infof("Encryption key migrated to native vault")
		km.audit.Log(audit.Entry{Operation: audit.OpKeyMigrate, Backend: string(BackendVault)})
	}

	km.adopt(key, BackendVault)

	// The vault copy is confirmed, so a leftover file is only a liability.
	// A failed removal is retried by the next run through the found branch.
	if km.file.Exists() {
		if err := km.file.Delete(); err != nil {
			return false, fmt.Errorf("key is in the vault but the key file remains: %w", err)
		}
		km.log.Infof("Removed fallback key file")
	}

	return true, nil
}

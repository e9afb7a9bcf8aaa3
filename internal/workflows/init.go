package workflows

import (
	"context"
	"fmt"

	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
)

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// DataDir is where encrypted files are stored.
	DataDir string

	// Backend is where the encryption key lives after init.
	Backend secrets.Backend

	// VaultName names the native vault backend, or "none".
	VaultName string

	// KeyID identifies the active key.
	KeyID string

	// InstallationID is the stable identifier from config.toml.
	InstallationID string

	// Migrated is true if init moved a file-held key into the vault.
	Migrated bool
}

// Initialize prepares the data directory and loads or creates the
// encryption key. Running it again is harmless.
//
// With key_backend = "vault", a key still held in the fallback file is
// moved into the vault when one is available.
func (s *Service) Initialize(ctx context.Context) (*InitResult, error) {
	if err := s.prepare(); err != nil {
		return nil, err
	}

	if _, err := s.keys.Key(ctx); err != nil {
		return nil, fmt.Errorf("loading encryption key: %w", err)
	}

	result := &InitResult{
		DataDir:        s.settings.DataDir,
		VaultName:      s.keys.Vault().Name(),
		InstallationID: s.config.Installation.ID,
	}

	if s.config.VaultRequired() && s.keys.Backend() == secrets.BackendFile {
		if !s.keys.Vault().Available() {
			s.log.WarnfAlways("key_backend is \"vault\" but no native vault is available; the key stays in %s", s.settings.KeyFilePath)
		} else {
			migrated, err := s.migrator.MigrateKeyToVault(ctx)
			if err != nil {
				return nil, fmt.Errorf("moving key to vault: %w", err)
			}
			result.Migrated = migrated
		}
	}

	result.Backend = s.keys.Backend()
	result.KeyID = s.keys.KeyID()
	return result, nil
}

package workflows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garmin-mcp/garmin-secrets/internal/audit"
	"github.com/garmin-mcp/garmin-secrets/internal/configs"
	logger "github.com/garmin-mcp/garmin-secrets/internal/logging"
	"github.com/garmin-mcp/garmin-secrets/internal/secrets"
	"github.com/garmin-mcp/garmin-secrets/internal/vault"
)

// Options configures a Service.
type Options struct {
	// DataDir overrides the platform data directory.
	DataDir string

	Logger logger.Logger

	// Vault replaces native vault detection. Used by tests.
	Vault vault.Vault

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the single entry point the rest of the application uses to
// read and write Garmin secrets.
type Service struct {
	settings *configs.Settings
	config   *configs.Config
	log      logger.Logger
	now      func() time.Time

	audit       *audit.Trail
	keys        *secrets.KeyManager
	records     *secrets.Records
	credentials *secrets.CredentialStore
	tokens      *secrets.TokenStore
	migrator    *secrets.Migrator

	mu       sync.Mutex
	prepared bool
}

// New resolves the data directory, reads config.toml and detects the native
// vault. Nothing is written until an operation needs it.
func New(opts Options) (*Service, error) {
	settings, err := configs.ResolveSettings(opts.DataDir)
	if err != nil {
		return nil, err
	}

	cfg, err := configs.LoadConfig(settings.ConfigPath)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	v := opts.Vault
	if v == nil || !cfg.VaultEnabled() {
		v = vault.Detect(vault.DetectConfig{Disabled: !cfg.VaultEnabled()})
	}
	opts.Logger.Debugf("Vault backend: %s (available: %t)", v.Name(), v.Available())

	trail := audit.New(settings.AuditPath, cfg.Installation.ID)
	keys := secrets.NewKeyManager(secrets.KeyManagerOptions{
		Vault:    v,
		Service:  cfg.Vault.Service,
		Account:  cfg.Vault.Account,
		File:     secrets.NewFileKeyBackend(settings.KeyFilePath),
		LockPath: settings.LockFilePath,
		Logger:   opts.Logger,
		Audit:    trail,
	})
	records := secrets.NewRecords(settings.DataDir, keys, opts.Logger, trail)

	return &Service{
		settings:    settings,
		config:      cfg,
		log:         opts.Logger,
		now:         now,
		audit:       trail,
		keys:        keys,
		records:     records,
		credentials: secrets.NewCredentialStore(records),
		tokens:      secrets.NewTokenStore(records, now),
		migrator:    secrets.NewMigrator(keys),
	}, nil
}

// Settings returns the resolved storage paths.
func (s *Service) Settings() *configs.Settings {
	return s.settings
}

// Config returns the loaded configuration.
func (s *Service) Config() *configs.Config {
	return s.config
}

// prepare creates the data directory, ignore manifest and config file
// before the first write. It is retried on failure.
func (s *Service) prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prepared {
		return nil
	}

	if err := configs.EnsureDataDir(s.settings.DataDir); err != nil {
		return err
	}

	cfg, err := configs.EnsureConfig(s.settings.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	s.config.Installation = cfg.Installation
	s.audit.SetInstallation(cfg.Installation.ID)

	s.prepared = true
	return nil
}

// SaveCredentials encrypts and stores the Garmin login.
func (s *Service) SaveCredentials(ctx context.Context, creds *secrets.GarminCredentials) error {
	if err := s.prepare(); err != nil {
		return err
	}
	return s.credentials.Save(ctx, creds)
}

// LoadCredentials returns the stored login, or nil if none is stored or it
// cannot be decrypted.
func (s *Service) LoadCredentials(ctx context.Context) (*secrets.GarminCredentials, error) {
	return s.credentials.Load(ctx)
}

func (s *Service) DeleteCredentials() error {
	return s.credentials.Delete()
}

// SaveTokens encrypts and stores an OAuth token set, stamping SavedAt.
func (s *Service) SaveTokens(ctx context.Context, tokens *secrets.OAuthTokenSet) error {
	if err := s.prepare(); err != nil {
		return err
	}
	return s.tokens.Save(ctx, tokens)
}

// LoadTokens returns the stored token set, or nil if none is stored or it
// cannot be decrypted.
func (s *Service) LoadTokens(ctx context.Context) (*secrets.OAuthTokenSet, error) {
	return s.tokens.Load(ctx)
}

func (s *Service) DeleteTokens() error {
	return s.tokens.Delete()
}

// Forget deletes both records. The key is kept.
func (s *Service) Forget() error {
	if err := s.credentials.Delete(); err != nil {
		return err
	}
	return s.tokens.Delete()
}

// MigrateKeyToVault moves a file-held key into the native vault.
func (s *Service) MigrateKeyToVault(ctx context.Context) (bool, error) {
	if err := s.prepare(); err != nil {
		return false, err
	}
	return s.migrator.MigrateKeyToVault(ctx)
}

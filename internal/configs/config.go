package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vault identity used when the config file does not override it.
const (
	DefaultVaultService = "garmin-mcp-server"
	DefaultVaultAccount = "encryption-key"
)

// Key backend preferences.
const (
	KeyBackendAuto  = "auto"
	KeyBackendVault = "vault"
	KeyBackendFile  = "file"
)

type Config struct {
	Storage      StorageConfig `toml:"storage"`
	Vault        VaultConfig   `toml:"vault"`
	Installation Installation  `toml:"installation"`
}

type StorageConfig struct {
	// KeyBackend is "auto" (vault first, file fallback), "vault" (as auto, but a
	// file-held key is migrated on init and doctor treats the fallback as an
	// error) or "file" (never touch the vault).
	KeyBackend string `toml:"key_backend"`
}

type VaultConfig struct {
	Service string `toml:"service"`
	Account string `toml:"account"`
}

type Installation struct {
	ID        string    `toml:"id"`
	CreatedAt time.Time `toml:"created_at"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{KeyBackend: KeyBackendAuto},
		Vault: VaultConfig{
			Service: DefaultVaultService,
			Account: DefaultVaultAccount,
		},
	}
}

// LoadConfig loads the configuration from path, filling defaults for unset
// fields. A missing file is not an error. GARMIN_MCP_KEY_BACKEND overrides
// the key backend preference.
func LoadConfig(path string) (*Config, error) {
	config, err := loadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return applyEnv(config)
}

// loadFileConfig reads path and fills defaults, ignoring the environment.
func loadFileConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(path, config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv returns a copy of config with environment overrides applied.
func applyEnv(config *Config) (*Config, error) {
	merged := *config
	if backend := os.Getenv(KeyBackendEnv); backend != "" {
		merged.Storage.KeyBackend = backend
		merged.applyDefaults()
		if err := merged.Validate(); err != nil {
			return nil, err
		}
	}
	return &merged, nil
}

// SaveConfig saves the configuration to path.
func SaveConfig(path string, config *Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GenerateInstallationID generates a new UUID for this installation.
func GenerateInstallationID() string {
	return uuid.New().String()
}

// EnsureConfig loads the configuration and assigns an installation ID on
// first use. Environment overrides apply to the returned value only and are
// never written to path.
func EnsureConfig(path string) (*Config, error) {
	config, err := loadFileConfig(path)
	if err != nil {
		return nil, err
	}

	if config.Installation.ID == "" {
		config.Installation.ID = GenerateInstallationID()
		config.Installation.CreatedAt = time.Now().UTC()
		if err := SaveConfig(path, config); err != nil {
			return nil, err
		}
	}

	return applyEnv(config)
}

// Validate reports an unknown key backend preference.
func (c *Config) Validate() error {
	switch c.Storage.KeyBackend {
	case KeyBackendAuto, KeyBackendVault, KeyBackendFile:
		return nil
	default:
		return fmt.Errorf("invalid key_backend %q: expected %q, %q or %q",
			c.Storage.KeyBackend, KeyBackendAuto, KeyBackendVault, KeyBackendFile)
	}
}

// VaultEnabled reports whether the native vault may be used.
func (c *Config) VaultEnabled() bool {
	return c.Storage.KeyBackend != KeyBackendFile
}

// VaultRequired reports whether falling back to the key file is a misconfiguration.
func (c *Config) VaultRequired() bool {
	return c.Storage.KeyBackend == KeyBackendVault
}

func (c *Config) applyDefaults() {
	c.Storage.KeyBackend = strings.ToLower(strings.TrimSpace(c.Storage.KeyBackend))
	if c.Storage.KeyBackend == "" {
		c.Storage.KeyBackend = KeyBackendAuto
	}
	if c.Vault.Service == "" {
		c.Vault.Service = DefaultVaultService
	}
	if c.Vault.Account == "" {
		c.Vault.Account = DefaultVaultAccount
	}
}

package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName is the directory created under the platform's per-user config location.
const AppDirName = "garmin-mcp"

// File names inside the data directory.
const (
	KeyFileName         = ".encryption.key"
	LockFileName        = ".encryption.lock"
	CredentialsFileName = "garmin-credentials.enc"
	TokensFileName      = "garmin-tokens.enc"
	IgnoreFileName      = ".gitignore"
	ConfigFileName      = "config.toml"
	AuditFileName       = "audit.jsonl"
)

// Environment overrides.
const (
	DataDirEnv    = "GARMIN_MCP_DATA_DIR"
	KeyBackendEnv = "GARMIN_MCP_KEY_BACKEND"
)

// ignoreManifest keeps everything secret out of version control if the
// directory ever ends up inside a repository.
const ignoreManifest = "# Ignore all encrypted files and keys\n*.enc\n*.key\n.encryption.key\n.encryption.lock\naudit.jsonl\n"

type Settings struct {
	DataDir         string
	KeyFilePath     string
	LockFilePath    string
	CredentialsPath string
	TokensPath      string
	ConfigPath      string
	AuditPath       string
	Platform        string
}

// DataDir returns the per-user directory for encrypted files on the given platform.
func DataDir(goos, home string, getenv func(string) string) string {
	switch goos {
	case "windows":
		localAppData := getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(localAppData, AppDirName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirName)
	default:
		configHome := getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, AppDirName)
	}
}

// NewSettings lays out every storage path under dir.
func NewSettings(dir string) *Settings {
	return &Settings{
		DataDir:         dir,
		KeyFilePath:     filepath.Join(dir, KeyFileName),
		LockFilePath:    filepath.Join(dir, LockFileName),
		CredentialsPath: filepath.Join(dir, CredentialsFileName),
		TokensPath:      filepath.Join(dir, TokensFileName),
		ConfigPath:      filepath.Join(dir, ConfigFileName),
		AuditPath:       filepath.Join(dir, AuditFileName),
		Platform:        runtime.GOOS,
	}
}

// ResolveSettings resolves the data directory for the current user.
// An explicit override wins, then GARMIN_MCP_DATA_DIR, then the platform default.
func ResolveSettings(override string) (*Settings, error) {
	if override != "" {
		return NewSettings(override), nil
	}
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return NewSettings(dir), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return NewSettings(DataDir(runtime.GOOS, homeDir, os.Getenv)), nil
}

// EnsureDataDir creates the data directory with owner-only access and
// writes the ignore manifest if it is missing.
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	ignorePath := filepath.Join(dir, IgnoreFileName)
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(ignoreManifest), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", ignorePath, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check %s: %w", ignorePath, err)
	}

	return nil
}

// Package configs resolves where the secret store lives and how it behaves.
//
// Everything is kept in a single per-user data directory:
//
//   - Windows: %LOCALAPPDATA%\garmin-mcp
//   - macOS: ~/Library/Application Support/garmin-mcp
//   - Linux and others: $XDG_CONFIG_HOME/garmin-mcp (default ~/.config/garmin-mcp)
//
// GARMIN_MCP_DATA_DIR overrides the platform default. The directory is
// created with owner-only permissions and carries a .gitignore that excludes
// every secret file.
//
// # Configuration
//
// An optional config.toml in the data directory selects the key backend
// ("auto", "vault" or "file") and the vault service and account names. The file also
// records an installation UUID that is stamped onto audit log entries.
// GARMIN_MCP_KEY_BACKEND overrides the key backend preference.
package configs

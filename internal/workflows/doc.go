// Package workflows provides the operations the rest of the application
// uses to store Garmin secrets.
//
// A Service ties the storage pieces together: it resolves the data
// directory, reads config.toml, detects the native vault and wires the key
// manager, record stores and audit trail. Callers construct one Service
// and use it for the lifetime of the process.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate Service method
//   - Formats the result for display
//
// The Service handles everything else:
//   - Creating the data directory and config on first write
//   - Loading or generating the encryption key
//   - Encrypting and decrypting records
//   - Recording audit trail entries
//
// Read-only operations (Status, Doctor, Log) never create a key or write to
// the data directory.
//
// # Operations
//
//   - Initialize: Creates the data directory and the encryption key
//   - Status: Reports where the key lives and which records exist
//   - Doctor: Runs health checks on permissions, key and records
//   - SaveCredentials, LoadCredentials, DeleteCredentials
//   - SaveTokens, LoadTokens, DeleteTokens
//   - Forget: Deletes both records
//   - MigrateKeyToVault: Moves a file-held key into the native vault
//   - ImportLegacyTokens: Encrypts plaintext OAuth token files
//   - ImportEnvCredentials: Moves credentials out of a .env file
//   - Log: Reads the audit trail
//
// # Error Handling
//
// Operations return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	ok, err := svc.MigrateKeyToVault(ctx)
//	if errors.Is(err, kerrors.ErrVaultUnavailable) {
//	    // Explain how to enable a native vault
//	}
//
// Loading a record that cannot be decrypted is not an error: the record is
// reported as absent and the cause is logged.
package workflows

package errors

import "errors"

// Vault errors indicate the native secret store could not serve a request.
// Both are recoverable: the key manager falls back to the key file.
var (
	// ErrVaultUnavailable indicates no native vault backend could be loaded.
	ErrVaultUnavailable = errors.New("native vault is not available")

	// ErrVaultAccessDenied indicates the vault exists but refused the request (locked session, denied prompt).
	ErrVaultAccessDenied = errors.New("native vault access denied")
)

// Key errors indicate the encryption key could not be obtained or used.
var (
	// ErrKeyUnavailable indicates neither backend holds a key and none could be persisted.
	ErrKeyUnavailable = errors.New("encryption key unavailable")

	// ErrInvalidKey indicates stored key material is not a 64 character hex string.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrMigrationConflict indicates the vault already holds a different key than the active one.
	ErrMigrationConflict = errors.New("vault holds a different encryption key")
)

// Cryptographic errors indicate an envelope could not be opened.
// The record stores absorb these into "absent" results.
var (
	// ErrCipher indicates authentication failed or the envelope was malformed.
	ErrCipher = errors.New("failed to decrypt envelope")

	// ErrKeyMismatch indicates the envelope was written under a different key.
	ErrKeyMismatch = errors.New("envelope was encrypted with a different key")

	// ErrInvalidEnvelope indicates the envelope JSON could not be parsed.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)

// ErrNilRecord indicates a nil value was passed to a record store.
var ErrNilRecord = errors.New("no record to save")

// Import errors indicate legacy secrets could not be found.
var (
	// ErrNoLegacyTokens indicates no plaintext token files were found.
	ErrNoLegacyTokens = errors.New("no legacy token files found")

	// ErrNoEnvCredentials indicates the env file holds no usable credentials.
	ErrNoEnvCredentials = errors.New("no credentials found in env file")
)

// Audit log errors.
var (
	// ErrInvalidDateFormat indicates a date filter is not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")
)

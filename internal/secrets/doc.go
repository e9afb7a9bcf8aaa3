// Package secrets implements the encrypted record store for Garmin
// credentials and OAuth tokens.
//
// # Encryption Architecture
//
// One random 256-bit key per installation encrypts every record with
// AES-256-GCM. Each record is a self-contained JSON envelope:
//
//	{"iv":"<12 bytes>","authTag":"<16 bytes>","data":"<ciphertext>","kid":"<key id>"}
//
// All byte fields are standard base64. The optional kid is derived from the
// key with HKDF-SHA256 and lets a decrypt failure be reported as "written
// under a different key" instead of a bare authentication failure. Envelopes
// without a kid are accepted.
//
// # Key Management
//
// The key is held by a KeyManager and resolved lazily on first use:
//
//  1. the native vault, when one is available
//  2. the .encryption.key file in the data directory (mode 0600)
//  3. a freshly generated key, persisted to the vault if possible and to
//     the key file otherwise
//
// Concurrent callers share a single resolution. Generation runs under an
// advisory lock on .encryption.lock so two processes starting together do
// not each create a key. A Migrator moves a file-held key into the vault.
//
// # Records
//
// Records marshals values to JSON, encrypts them and writes them atomically
// with mode 0600. Loading a record that cannot be decrypted or parsed yields
// "absent" rather than an error, so a corrupted file never blocks the host
// from re-authenticating. Inspect exposes the underlying error for
// diagnostics.
//
// CredentialStore and TokenStore are typed views over the two well-known
// record files.
package secrets

// Package errors provides typed error values for the secret store.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
//   - Vault errors: the native vault is missing or locked (ErrVaultUnavailable,
//     ErrVaultAccessDenied). These trigger the file fallback and never reach callers
//     of the record stores.
//   - Key errors: no key can be loaded or persisted (ErrKeyUnavailable). These are
//     fatal for every save and load.
//   - Crypto errors: an envelope failed authentication (ErrCipher, ErrKeyMismatch).
//     Record stores log them and report the record as absent.
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("persisting key to %s: %w", path, errors.ErrKeyUnavailable)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrVaultUnavailable) {
//	    // Suggest installing a secret service
//	}
package errors

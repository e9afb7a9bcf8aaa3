// Package vault wraps the operating system's credential store.
//
// The store is reached through github.com/99designs/keyring and restricted
// to native backends: the macOS Keychain, the Windows Credential Manager,
// the freedesktop Secret Service and KWallet. Encrypted-file and pass
// backends are never used, since the key file already covers that case.
//
// Detect decides once, at startup, whether a native backend exists. When none
// does, it returns Unavailable and callers fall back to the key file.
//
//	v := vault.Detect(vault.DetectConfig{})
//	if v.Available() {
//		secret, found, err := v.Get("garmin-mcp-server", "encryption-key")
//		...
//	}
package vault

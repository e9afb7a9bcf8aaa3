// Package utils provides shared helpers used across the secret store.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: writes a file through a synced temp file and rename
//   - FileExists: reports whether a regular file is present
//
// # System Utilities
//
//   - LocalIdentity: identifies who performed an audited operation
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - IsValidEmail: checks the shape of a Garmin account email
//
// # I/O Utilities
//
//   - ReadStdin: reads piped input such as a password
//
// # Terminal Utilities
//
//   - IsTerminal: checks if stdin is a terminal
//   - ReadPassphrase: prompts for a password without echo
package utils

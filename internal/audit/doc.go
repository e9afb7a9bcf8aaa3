// Package audit records what happened to the stored secrets.
//
// Key generation, key migration, record saves and deletes, and legacy
// imports are appended to a per-installation log. The log never contains
// secret values, only which record or backend an operation touched.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) in the
// data directory, readable only by the owner:
//
//	audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - A unique entry ID and the installation ID from config.toml
//   - The local user and host
//   - Operation name
//   - Operation-specific details (record file, key backend, import source)
//
// # Usage
//
//	trail := audit.New(settings.AuditPath, config.Installation.ID)
//	trail.Log(audit.Entry{Operation: audit.OpSave, Record: "garmin-tokens.enc"})
//
// A nil *Trail is valid and discards every entry.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Operations should never
// fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit

// Package ui formats CLI output for garmin-secrets.
//
// Formatters colorize text when the terminal supports it. With NO_COLOR set
// or on a dumb terminal they fall back to plain decorations instead:
//
//	ui.Code.Sprint("garmin-secrets init")    // `garmin-secrets init`
//	ui.Highlight.Sprint("me@example.com")    // 'me@example.com'
//	ui.Muted.Sprint("not stored")            // (not stored)
//
// Done, Failed, Caution and Hint prefix a line with the matching mark:
//
//	✓ Credentials deleted
//	→ Run `garmin-secrets migrate-key`
//
// Output never contains secret values. Callers redact before formatting.
package ui

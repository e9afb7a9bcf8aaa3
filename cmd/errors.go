package cmd

import (
	"errors"

	kerrors "github.com/garmin-mcp/garmin-secrets/internal/errors"
	"github.com/garmin-mcp/garmin-secrets/internal/ui"
)

// formatError turns a workflow error into the final spinner message.
func formatError(action string, err error) string {
	switch {
	case errors.Is(err, kerrors.ErrVaultUnavailable):
		return ui.Failed("No native credential vault is available on this system\n") +
			ui.Hint("The key stays in the private key file. Install and unlock a Secret Service provider to use a vault")

	case errors.Is(err, kerrors.ErrMigrationConflict):
		return ui.Failed("The native vault already holds a different encryption key\n") +
			ui.Hint("Nothing was changed. Remove the vault entry by hand if it is stale, then run ") +
			ui.Code.Sprint("garmin-secrets migrate-key") + " again"

	case errors.Is(err, kerrors.ErrKeyUnavailable), errors.Is(err, kerrors.ErrInvalidKey):
		return ui.Failed("") + action + ": " + err.Error() + "\n" +
			ui.Hint("Run ") + ui.Code.Sprint("garmin-secrets doctor") + " for details"

	case errors.Is(err, kerrors.ErrNoLegacyTokens):
		return ui.Failed("") + err.Error() + "\n" +
			ui.Hint("Both oauth1_token.json and oauth2_token.json are required")

	case errors.Is(err, kerrors.ErrNoEnvCredentials):
		return ui.Failed("") + err.Error() + "\n" +
			ui.Hint("Set GARMIN_EMAIL and GARMIN_PASSWORD in the file, or use ") +
			ui.Code.Sprint("garmin-secrets credentials set")

	case errors.Is(err, kerrors.ErrInvalidDateFormat):
		return ui.Failed("") + err.Error()

	default:
		return ui.Failed("") + action + ": " + err.Error()
	}
}

// reportedError marks an error the command already showed to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error {
	return reportedError{err}
}

// IsReported reports whether err was already printed by the command.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
